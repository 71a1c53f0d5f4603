package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"vastu-check/api/internal/ocr"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "8000" || cfg.OCREngine != "tesseract" || !cfg.PlanCrop {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.OCRLangs, []string{"eng"}) {
		t.Fatalf("langs = %v", cfg.OCRLangs)
	}
	if cfg.RequestTimeout != 180*time.Second || cfg.AnalysisCacheTTL != 24*time.Hour {
		t.Fatalf("durations = %v %v", cfg.RequestTimeout, cfg.AnalysisCacheTTL)
	}
	if cfg.MaxUploadBytes() != 20<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes())
	}
	opt := cfg.AnalyzeOptions()
	if opt.Plan.Padding != 20 || opt.Plan.Scale != 1.875 || !opt.Plan.Crop {
		t.Fatalf("plan options = %+v", opt.Plan)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OCR_LANGS", "eng,hin")
	t.Setenv("PLAN_CROP", "false")
	t.Setenv("PLAN_UPSCALE", "2")
	t.Setenv("REQUEST_TIMEOUT", "30s")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "9090" || cfg.PlanCrop || cfg.PlanUpscale != 2 || cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AnalyzeOptions().OCR.Langs, []string{"eng", "hin"}) {
		t.Fatalf("langs = %v", cfg.OCRLangs)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"MAX_UPLOAD_MB":   "0",
		"PLAN_UPSCALE":    "-1",
		"REQUEST_TIMEOUT": "soon",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Parse(); err == nil {
				t.Fatalf("%s=%s accepted", key, val)
			}
		})
	}
}

func TestEngines(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OCR_ENGINE", "openai")
	t.Setenv("OCR_SERIALIZE", "true")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engs, def, err := cfg.Engines()
	if err != nil {
		t.Fatalf("Engines: %v", err)
	}
	if !reflect.DeepEqual(engs.Names(), []string{"gpt", "tesseract"}) {
		t.Fatalf("names = %v", engs.Names())
	}
	if def.Name() != "gpt" || def.GetModel() != "gpt-4o-mini" {
		t.Fatalf("default = %s/%s", def.Name(), def.GetModel())
	}

	cfg.OCREngine = "gemini"
	if _, _, err := cfg.Engines(); !errors.Is(err, ocr.ErrUnknownEngine) {
		t.Fatalf("err = %v", err)
	}
}
