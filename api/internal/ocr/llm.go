package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"vastu-check/api/internal/util"
)

// DetectionPrompt asks a vision LLM for floor-plan labels in the
// box_2d convention: [ymin, xmin, ymax, xmax] normalized to 0..1000.
const DetectionPrompt = `You read architectural floor plans.
List every text label printed on the plan (room names, stair markers such as UP or DN, annotations).
Return STRICT JSON, an array, no prose:
[{"text": string, "box_2d": [ymin, xmin, ymax, xmax], "confidence": number}]
- box_2d is normalized to 0..1000 relative to the full image.
- confidence is your certainty that the text is read correctly, 0..1.
- Keep the text verbatim; one entry per label; do not merge labels.`

type llmDetection struct {
	Text       string    `json:"text"`
	Box2D      []float64 `json:"box_2d"`
	Confidence *float64  `json:"confidence"`
}

// ParseLLMDetections decodes a DetectionPrompt answer and scales the boxes
// to a width x height image. Entries with malformed boxes are skipped.
func ParseLLMDetections(answer string, width, height int) ([]Detection, error) {
	txt := util.StripCodeFences(strings.TrimSpace(answer))
	var items []llmDetection
	if err := json.Unmarshal([]byte(txt), &items); err != nil {
		var wrapped struct {
			Detections []llmDetection `json:"detections"`
		}
		if err2 := json.Unmarshal([]byte(txt), &wrapped); err2 != nil {
			return nil, fmt.Errorf("bad JSON: %w", err)
		}
		items = wrapped.Detections
	}

	sx, sy := float64(width)/1000, float64(height)/1000
	out := make([]Detection, 0, len(items))
	for _, it := range items {
		if len(it.Box2D) != 4 || strings.TrimSpace(it.Text) == "" {
			continue
		}
		conf := 1.0
		if it.Confidence != nil {
			conf = min(max(*it.Confidence, 0), 1)
		}
		out = append(out, Detection{
			Text:       it.Text,
			Confidence: conf,
			Bounds: Bounds{
				X0: it.Box2D[1] * sx,
				Y0: it.Box2D[0] * sy,
				X1: it.Box2D[3] * sx,
				Y1: it.Box2D[2] * sy,
			},
		})
	}
	return out, nil
}

// ImageSize reads only the header of an encoded image.
func ImageSize(img []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
