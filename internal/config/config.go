package config

import (
	"time"

	"github.com/landlorddocs/smartreview/internal/common"
)

// Config holds all process-level configuration. The legal catalog (markers,
// thresholds, rule tables) is loaded separately via LoadCatalog.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Cache    CacheConfig
	OCR      OCRConfig
	Intake   IntakeConfig
	Catalog  string // path to catalog yaml; empty = embedded default
}

// DatabaseConfig holds the case-fact store settings.
type DatabaseConfig struct {
	Driver string // "sqlite" or "pgx"
	DSN    string
}

// LLMConfig holds the probabilistic extractor settings.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Temperature float32
	Timeout     time.Duration
	RatePerSec  float64 // outbound inference call budget
}

// CacheConfig holds the extraction cache settings.
type CacheConfig struct {
	Dir      string
	InMemory bool
}

// OCRConfig holds the external text-recovery tool settings for images and
// scanned PDFs.
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
	DPI       int
	Lang      string
}

// IntakeConfig holds the directory watcher settings.
type IntakeConfig struct {
	Roots    []string
	Debounce time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: common.GetEnv("DB_DRIVER", "sqlite"),
			DSN:    common.GetEnv("DB_URL", "file:smartreview.db?_pragma=journal_mode(WAL)"),
		},
		LLM: LLMConfig{
			APIKey:      common.GetEnv("OPENAI_API_KEY", ""),
			BaseURL:     common.GetEnv("OPENAI_BASE_URL", ""),
			TextModel:   common.GetEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
			VisionModel: common.GetEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			Temperature: float32(common.GetEnvAsFloat64("OPENAI_TEMPERATURE", 0.0)),
			Timeout:     common.GetEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RatePerSec:  common.GetEnvAsFloat64("OPENAI_RATE_PER_SEC", 2),
		},
		Cache: CacheConfig{
			Dir:      common.GetEnv("CACHE_DIR", "./cache"),
			InMemory: common.GetEnvAsBool("CACHE_IN_MEMORY", false),
		},
		OCR: OCRConfig{
			Pdftotext: common.GetEnv("OCR_PDFTOTEXT", "pdftotext"),
			Pdftoppm:  common.GetEnv("OCR_PDFTOPPM", "pdftoppm"),
			Tesseract: common.GetEnv("OCR_TESSERACT", "tesseract"),
			DPI:       common.GetEnvAsInt("OCR_DPI", 300),
			Lang:      common.GetEnv("OCR_LANG", "eng"),
		},
		Intake: IntakeConfig{
			Roots:    splitNonEmpty(common.GetEnv("INTAKE_ROOTS", "")),
			Debounce: common.GetEnvAsDuration("INTAKE_DEBOUNCE", 500*time.Millisecond),
		},
		Catalog: common.GetEnv("SMARTREVIEW_CATALOG", ""),
	}
}

// Validate checks the process configuration. Catalog validation happens in
// LoadCatalog; both must pass before any run starts.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return common.NewConfigError("DB_URL is required")
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return common.NewConfigErrorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.LLM.APIKey == "" {
		return common.NewConfigError("OPENAI_API_KEY is required")
	}
	return nil
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
