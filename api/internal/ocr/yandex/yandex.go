package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/util"
)

const recognizeURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

type Engine struct {
	iamc     *IamClient
	folderID string
	model    string
	URL      string
	httpc    *http.Client
}

func New(oauth2Token, folderID string) *Engine {
	return &Engine{
		iamc:     NewIamClient(oauth2Token),
		folderID: folderID,
		model:    "page",
		URL:      recognizeURL,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "yandex" }
func (e *Engine) GetModel() string { return e.model }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["en","ru"]
	Model         string   `json:"model,omitempty"`         // "page", "handwritten"
}

// coord is an int64 the API serializes as a JSON string.
type coord float64

func (c *coord) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", s, err)
	}
	*c = coord(v)
	return nil
}

type boundingBox struct {
	Vertices []struct {
		X coord `json:"x"`
		Y coord `json:"y"`
	} `json:"vertices"`
}

type line struct {
	Text        string      `json:"text,omitempty"`
	BoundingBox boundingBox `json:"boundingBox"`
	Confidence  *float64    `json:"confidence,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *struct {
			Blocks []struct {
				Lines []line `json:"lines,omitempty"`
			} `json:"blocks,omitempty"`
		} `json:"textAnnotation,omitempty"`
	} `json:"result,omitempty"`
}

func (e *Engine) Detect(ctx context.Context, img []byte, opt ocr.Options) ([]ocr.Detection, error) {
	reqBody := request{
		Content:       base64.StdEncoding.EncodeToString(img),
		MimeType:      util.SniffMimeForOCR(img),
		LanguageCodes: opt.Langs,
		Model:         e.model,
	}
	if opt.Model != "" {
		reqBody.Model = opt.Model
	}
	payload, _ := json.Marshal(reqBody)

	resp, err := e.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// one retry with a fresh token
		resp.Body.Close()
		e.iamc.Invalidate()
		if resp, err = e.post(ctx, payload); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, string(x))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.detections(), nil
}

func (e *Engine) post(ctx context.Context, payload []byte) (*http.Response, error) {
	iamToken, err := e.iamc.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+iamToken)
	req.Header.Set("x-folder-id", e.folderID)
	return e.httpc.Do(req)
}

// detections flattens blocks into one detection per recognized line.
func (r *response) detections() []ocr.Detection {
	if r == nil || r.Result == nil || r.Result.TextAnnotation == nil {
		return nil
	}
	var out []ocr.Detection
	for _, b := range r.Result.TextAnnotation.Blocks {
		for _, l := range b.Lines {
			text := strings.TrimSpace(l.Text)
			if text == "" || len(l.BoundingBox.Vertices) == 0 {
				continue
			}
			conf := 1.0
			if l.Confidence != nil {
				conf = *l.Confidence
			}
			out = append(out, ocr.Detection{
				Text:       text,
				Confidence: conf,
				Bounds:     l.BoundingBox.bounds(),
			})
		}
	}
	return out
}

func (bb boundingBox) bounds() ocr.Bounds {
	v := bb.Vertices
	b := ocr.Bounds{X0: float64(v[0].X), Y0: float64(v[0].Y), X1: float64(v[0].X), Y1: float64(v[0].Y)}
	for _, p := range v[1:] {
		b.X0 = min(b.X0, float64(p.X))
		b.Y0 = min(b.Y0, float64(p.Y))
		b.X1 = max(b.X1, float64(p.X))
		b.Y1 = max(b.Y1, float64(p.Y))
	}
	return b
}
