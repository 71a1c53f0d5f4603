package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/util"
)

const defaultURL = "https://api.openai.com/v1/chat/completions"

type Engine struct {
	APIKey string
	Model  string
	URL    string
	httpc  *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey: key,
		Model:  model,
		URL:    defaultURL,
		httpc:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "gpt" }

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Detect(ctx context.Context, img []byte, opt ocr.Options) ([]ocr.Detection, error) {
	if e.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	w, h, err := ocr.ImageSize(img)
	if err != nil {
		return nil, fmt.Errorf("openai detect: %w", err)
	}
	model := e.Model
	if opt.Model != "" {
		model = opt.Model
	}

	// json_object mode only allows an object at the top level.
	user := `Wrap the array as {"detections": [...]}.`
	if len(opt.Langs) > 0 {
		user += " Expected languages: " + strings.Join(opt.Langs, ", ") + "."
	}

	body := map[string]any{
		"model": model,
		"messages": []any{
			map[string]any{"role": "system", "content": ocr.DetectionPrompt},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": user},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": util.ImageDataURL(img), "detail": "high"}},
				},
			},
		},
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai detect %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("openai detect: empty response")
	}
	out, err := ocr.ParseLLMDetections(raw.Choices[0].Message.Content, w, h)
	if err != nil {
		return nil, fmt.Errorf("openai detect: %w", err)
	}
	return out, nil
}
