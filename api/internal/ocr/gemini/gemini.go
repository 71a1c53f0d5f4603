package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Detect asks Gemini for the plan labels and maps its 0..1000 boxes onto the
// pixel grid of img.
func (e *Engine) Detect(ctx context.Context, img []byte, opt ocr.Options) ([]ocr.Detection, error) {
	if e.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	w, h, err := ocr.ImageSize(img)
	if err != nil {
		return nil, fmt.Errorf("gemini detect: %w", err)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	model := e.Model
	if opt.Model != "" {
		model = opt.Model
	}
	m := cl.GenerativeModel(strings.TrimSpace(model))
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ocr.DetectionPrompt)},
	}

	userText := "Return the labels as strict JSON."
	if len(opt.Langs) > 0 {
		userText += " Expected languages: " + strings.Join(opt.Langs, ", ") + "."
	}
	parts := []genai.Part{
		genai.Text(userText),
		&genai.Blob{MIMEType: util.SniffMimeHTTP(img), Data: img},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return nil, fmt.Errorf("gemini detect: empty response")
		}
		out, err := ocr.ParseLLMDetections(txt, w, h)
		if err != nil {
			return nil, fmt.Errorf("gemini detect: %w", err)
		}
		return out, nil
	}
	return nil, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
