package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"vastu-check/api/internal/ocr"
)

// Engine runs the local Tesseract library. A gosseract client is not safe for
// concurrent use, so every Detect call gets its own client.
type Engine struct {
	clientFactory func() *gosseract.Client
	langs         []string
}

func New(langs ...string) *Engine {
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{clientFactory: gosseract.NewClient, langs: langs}
}

func (e *Engine) Name() string     { return "tesseract" }
func (e *Engine) GetModel() string { return strings.Join(e.langs, "+") }

// Detect reports one detection per text line. Tesseract confidences are
// percentages and are scaled to 0..1.
func (e *Engine) Detect(ctx context.Context, img []byte, opt ocr.Options) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	langs := e.langs
	if len(opt.Langs) > 0 {
		langs = opt.Langs
	}
	if err := c.SetLanguage(langs...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	// Floor plans scatter labels over the page; sparse text mode finds them
	// without assuming paragraphs.
	if err := c.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("set psm: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toDetections(boxes), nil
}

func toDetections(boxes []gosseract.BoundingBox) []ocr.Detection {
	out := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, ocr.Detection{
			Text:       text,
			Confidence: min(max(b.Confidence/100.0, 0), 1),
			Bounds: ocr.Bounds{
				X0: float64(b.Box.Min.X),
				Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X),
				Y1: float64(b.Box.Max.Y),
			},
		})
	}
	return out
}
