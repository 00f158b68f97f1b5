// Package config holds newsreader's settings: defaults, the YAML config file
// read through viper, NEWSREADER_* environment overrides and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

// Translation providers.
const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
	ProviderNone    = "none"
)

// Config contains all newsreader configuration options.
type Config struct {
	API APIConfig `yaml:"api"`

	// Narration settings
	Voice          string `yaml:"voice" env:"NEWSREADER_VOICE" envDefault:"en-CA-LiamNeural"`
	Language       string `yaml:"language" env:"NEWSREADER_LANGUAGE" envDefault:"en"`
	Category       string `yaml:"category" env:"NEWSREADER_CATEGORY" envDefault:"general"`
	AutoPlay       bool   `yaml:"auto_play" env:"NEWSREADER_AUTO_PLAY" envDefault:"true"`
	RequireGesture bool   `yaml:"require_gesture" env:"NEWSREADER_REQUIRE_GESTURE" envDefault:"false"`

	Cache       CacheConfig       `yaml:"cache"`
	TTS         TTSConfig         `yaml:"tts"`
	Translation TranslationConfig `yaml:"translation"`

	// Diagnostics
	Debug   bool   `yaml:"debug" env:"NEWSREADER_DEBUG" envDefault:"false"`
	LogFile string `yaml:"log_file" env:"NEWSREADER_LOG_FILE"`
}

// APIConfig locates the news and narration backend.
type APIConfig struct {
	URL               string        `yaml:"url" env:"NEWSREADER_API_URL" envDefault:"http://localhost:5000"`
	Timeout           time.Duration `yaml:"timeout" env:"NEWSREADER_API_TIMEOUT" envDefault:"30s"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"NEWSREADER_API_RPM" envDefault:"120"`
}

// CacheConfig sizes the narration and audio caches.
type CacheConfig struct {
	// Capacity is the number of narrations remembered per session.
	Capacity int `yaml:"capacity" env:"NEWSREADER_CACHE_CAPACITY" envDefault:"25"`
	// Dir holds downloaded audio. Empty means the user cache directory.
	Dir         string        `yaml:"dir" env:"NEWSREADER_CACHE_DIR"`
	MaxSizeMB   int64         `yaml:"max_size_mb" env:"NEWSREADER_CACHE_MAX_SIZE_MB" envDefault:"100"`
	MaxAge      time.Duration `yaml:"max_age" env:"NEWSREADER_CACHE_MAX_AGE" envDefault:"168h"`
	Compression int           `yaml:"compression" env:"NEWSREADER_CACHE_COMPRESSION" envDefault:"3"`
}

// TTSConfig tunes audio generation.
type TTSConfig struct {
	AsyncThreshold  int           `yaml:"async_threshold" env:"NEWSREADER_TTS_ASYNC_THRESHOLD" envDefault:"300"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"NEWSREADER_TTS_POLL_INTERVAL" envDefault:"2s"`
	MaxPollAttempts int           `yaml:"max_poll_attempts" env:"NEWSREADER_TTS_MAX_POLL_ATTEMPTS" envDefault:"60"`
	Speed           float64       `yaml:"speed" env:"NEWSREADER_TTS_SPEED" envDefault:"1.0"`
	Depth           int           `yaml:"depth" env:"NEWSREADER_TTS_DEPTH" envDefault:"1"`
	EnrichThreshold int           `yaml:"enrich_threshold" env:"NEWSREADER_TTS_ENRICH_THRESHOLD" envDefault:"500"`
}

// TranslationConfig selects how text is translated for non-English voices.
type TranslationConfig struct {
	Provider string       `yaml:"provider" env:"NEWSREADER_TRANSLATION_PROVIDER" envDefault:"backend"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the OpenAI translator.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"NEWSREADER_OPENAI_API_KEY"`
	Model   string `yaml:"model" env:"NEWSREADER_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string `yaml:"base_url" env:"NEWSREADER_OPENAI_BASE_URL"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			URL:               "http://localhost:5000",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 120,
		},

		Voice:          string(voice.DefaultID),
		Language:       "en",
		Category:       "general",
		AutoPlay:       true,
		RequireGesture: false,

		Cache: CacheConfig{
			Capacity:    25,
			MaxSizeMB:   100,
			MaxAge:      7 * 24 * time.Hour,
			Compression: 3,
		},
		TTS: TTSConfig{
			AsyncThreshold:  300,
			PollInterval:    2 * time.Second,
			MaxPollAttempts: 60,
			Speed:           1.0,
			Depth:           1,
			EnrichThreshold: 500,
		},
		Translation: TranslationConfig{
			Provider: ProviderBackend,
			OpenAI:   OpenAIConfig{Model: "gpt-4o-mini"},
		},
	}
}

// VoiceID returns the configured default voice.
func (c *Config) VoiceID() voice.ID {
	return voice.ID(c.Voice)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	if _, err := voice.Parse(c.Voice); err != nil {
		return fmt.Errorf("voice: %w", err)
	}

	if len(c.Language) < 2 || len(c.Language) > 5 {
		return fmt.Errorf("language code must be 2-5 characters, got %q", c.Language)
	}

	categoryValid := false
	for _, cat := range article.Categories {
		if strings.EqualFold(c.Category, cat) {
			categoryValid = true
			c.Category = strings.ToLower(c.Category)
			break
		}
	}
	if !categoryValid {
		return fmt.Errorf("invalid category '%s': must be one of %v", c.Category, article.Categories)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.TTS.Validate(); err != nil {
		return fmt.Errorf("tts config: %w", err)
	}
	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}

	return nil
}

// Validate checks if the API configuration is valid.
func (c *APIConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https, got %q", c.URL)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	return nil
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.MaxSizeMB < 1 || c.MaxSizeMB > 10000 {
		return fmt.Errorf("max_size_mb must be between 1 and 10000, got %d", c.MaxSizeMB)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative, got %v", c.MaxAge)
	}
	if c.Compression < 0 || c.Compression > 22 {
		return fmt.Errorf("compression must be between 0 and 22, got %d", c.Compression)
	}
	return nil
}

// MaxSizeBytes returns the audio cache bound in bytes.
func (c *CacheConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

// Validate checks if the TTS configuration is valid.
func (c *TTSConfig) Validate() error {
	if c.AsyncThreshold < 1 {
		return fmt.Errorf("async_threshold must be positive, got %d", c.AsyncThreshold)
	}
	if c.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("poll_interval must be at least 100ms, got %v", c.PollInterval)
	}
	if c.MaxPollAttempts < 1 {
		return fmt.Errorf("max_poll_attempts must be positive, got %d", c.MaxPollAttempts)
	}
	if c.Speed < 0.5 || c.Speed > 2.0 {
		return fmt.Errorf("speed must be between 0.5 and 2.0, got %.2f", c.Speed)
	}
	if c.Depth < 1 || c.Depth > 3 {
		return fmt.Errorf("depth must be between 1 and 3, got %d", c.Depth)
	}
	if c.EnrichThreshold < 0 {
		return fmt.Errorf("enrich_threshold cannot be negative, got %d", c.EnrichThreshold)
	}
	return nil
}

// Validate checks if the translation configuration is valid.
func (c *TranslationConfig) Validate() error {
	validProviders := []string{ProviderBackend, ProviderOpenAI, ProviderNone}
	providerValid := false
	for _, p := range validProviders {
		if strings.EqualFold(c.Provider, p) {
			providerValid = true
			c.Provider = p
			break
		}
	}
	if !providerValid {
		return fmt.Errorf("invalid provider '%s': must be one of %v", c.Provider, validProviders)
	}

	if c.Provider == ProviderOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai provider requires an api_key")
	}
	return nil
}
