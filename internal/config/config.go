package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"

	RecognitionBackendDevice = "device"
	RecognitionBackendGoogle = "google"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"PARLEY_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"PARLEY_DB_MAX_CONNS" default:"4"`

	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"file"`
	CacheFile    string        `envconfig:"CACHE_FILE" default:".parley/translation-cache.json"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	TranslationTimeout      time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"8s"`
	TranslationChainIndian  string        `envconfig:"TRANSLATION_CHAIN_INDIAN" default:"google,mymemory,lingva,gemini,local"`
	TranslationChainDefault string        `envconfig:"TRANSLATION_CHAIN_DEFAULT" default:"google,lingva,libretranslate,mymemory,gemini,local"`

	GoogleTranslateURL   string `envconfig:"GOOGLE_TRANSLATE_URL" default:"https://translate.googleapis.com/translate_a/single"`
	MyMemoryURL          string `envconfig:"MYMEMORY_URL" default:"https://api.mymemory.translated.net/get"`
	MyMemoryEmail        string `envconfig:"MYMEMORY_EMAIL" default:""`
	LingvaURL            string `envconfig:"LINGVA_URL" default:"https://lingva.ml"`
	LibreTranslateURL    string `envconfig:"LIBRETRANSLATE_URL" default:"https://libretranslate.com"`
	LibreTranslateAPIKey string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	TranslationEndpoint  string `envconfig:"TRANSLATION_ENDPOINT" default:""`
	TranslationModel     string `envconfig:"TRANSLATION_MODEL" default:""`
	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel          string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	RecognitionBackend  string        `envconfig:"SPEECH_RECOGNITION_BACKEND" default:"device"`
	GoogleSTTEncoding   string        `envconfig:"GOOGLE_STT_ENCODING" default:"LINEAR16"`
	GoogleSTTSampleRate int           `envconfig:"GOOGLE_STT_SAMPLE_RATE" default:"16000"`
	SpeechIdleTimeout   time.Duration `envconfig:"SPEECH_IDLE_TIMEOUT" default:"5s"`
	SpeechMaxRetries    int           `envconfig:"SPEECH_MAX_RETRIES" default:"3"`
	SynthesisWatchdog   time.Duration `envconfig:"SYNTHESIS_WATCHDOG" default:"60s"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.NormalizedCacheBackend() {
	case CacheBackendMemory:
	case CacheBackendFile:
		if strings.TrimSpace(c.CacheFile) == "" {
			return fmt.Errorf("CACHE_FILE is required when CACHE_BACKEND=file")
		}
	case CacheBackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, file or postgres")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("PARLEY_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("PARLEY_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("PARLEY_DB_MIN_CONNS (%d) cannot exceed PARLEY_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be > 0")
	}
	switch c.NormalizedRecognitionBackend() {
	case RecognitionBackendDevice, RecognitionBackendGoogle:
	default:
		return fmt.Errorf("SPEECH_RECOGNITION_BACKEND must be device or google")
	}
	if c.GoogleSTTSampleRate <= 0 {
		return fmt.Errorf("GOOGLE_STT_SAMPLE_RATE must be > 0")
	}
	if c.SpeechIdleTimeout <= 0 {
		return fmt.Errorf("SPEECH_IDLE_TIMEOUT must be > 0")
	}
	if c.SpeechMaxRetries < 0 {
		return fmt.Errorf("SPEECH_MAX_RETRIES must be >= 0")
	}
	if c.SynthesisWatchdog <= 0 {
		return fmt.Errorf("SYNTHESIS_WATCHDOG must be > 0")
	}
	return nil
}

func (c *Config) NormalizedCacheBackend() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.CacheBackend))
}

func (c *Config) NormalizedRecognitionBackend() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.RecognitionBackend))
}

// IndianChain returns the provider order used for the indian regional group.
func (c *Config) IndianChain() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TranslationChainIndian)
}

// DefaultChain returns the provider order used for every other group.
func (c *Config) DefaultChain() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TranslationChainDefault)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items
}
