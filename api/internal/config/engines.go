package config

import (
	"fmt"
	"log"

	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/ocr/gemini"
	"vastu-check/api/internal/ocr/openai"
	"vastu-check/api/internal/ocr/tesseract"
	"vastu-check/api/internal/ocr/yandex"
)

// Engines builds every engine whose credentials are present and returns the
// set together with the default engine named by OCR_ENGINE. Tesseract runs
// locally and is always available.
func (c *Config) Engines() (*ocr.Engines, ocr.Engine, error) {
	list := []ocr.Engine{tesseract.New(c.OCRLangs...)}
	if c.GeminiAPIKey != "" {
		list = append(list, gemini.New(c.GeminiAPIKey, c.GeminiModel))
	}
	if c.OpenAIAPIKey != "" {
		list = append(list, openai.New(c.OpenAIAPIKey, c.OpenAIModel))
	}
	if c.YCOAuthToken != "" && c.YCFolderID != "" {
		list = append(list, yandex.New(c.YCOAuthToken, c.YCFolderID))
	}
	if c.OCRSerialize {
		for i, e := range list {
			list[i] = ocr.Serialize(e)
		}
	}

	engs := ocr.NewEngines(list...)
	def, err := engs.GetEngine(c.OCREngine)
	if err != nil {
		return nil, nil, fmt.Errorf("OCR_ENGINE: %w", err)
	}
	log.Printf("ocr engines: %v (default %s, model %q)", engs.Names(), def.Name(), def.GetModel())
	return engs, def, nil
}
