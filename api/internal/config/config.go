package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/ocr"
	"vastu-check/api/internal/plan"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8000"`

	OCREngine    string   `env:"OCR_ENGINE" envDefault:"tesseract"`
	OCRLangs     []string `env:"OCR_LANGS" envDefault:"eng" envSeparator:","`
	OCRSerialize bool     `env:"OCR_SERIALIZE" envDefault:"false"`

	PlanCrop        bool    `env:"PLAN_CROP" envDefault:"true"`
	PlanCropPadding int     `env:"PLAN_CROP_PADDING" envDefault:"20"`
	PlanUpscale     float64 `env:"PLAN_UPSCALE" envDefault:"1.875"`

	MaxUploadMB    int64         `env:"MAX_UPLOAD_MB" envDefault:"20"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"180s"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YCOAuthToken string `env:"YC_OAUTH_TOKEN"`
	YCFolderID   string `env:"YC_FOLDER_ID"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `env:"WEBHOOK_URL"`

	DatabaseURL      string        `env:"DATABASE_URL"`
	DBDriver         string        `env:"DB_DRIVER" envDefault:"pgx"`
	AnalysisCacheTTL time.Duration `env:"ANALYSIS_CACHE_TTL" envDefault:"24h"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	if cfg.PlanUpscale <= 0 {
		return nil, fmt.Errorf("PLAN_UPSCALE must be positive, got %v", cfg.PlanUpscale)
	}
	return &cfg, nil
}

// Load is Parse for main packages: a bad environment stops the process.
func Load() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c *Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

func (c *Config) AnalyzeOptions() analyze.Options {
	return analyze.Options{
		Plan: plan.Options{
			Crop:    c.PlanCrop,
			Padding: c.PlanCropPadding,
			Scale:   c.PlanUpscale,
		},
		OCR: ocr.Options{Langs: c.OCRLangs},
	}
}
