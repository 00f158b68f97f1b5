package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// overlayTag is a struct tag no field carries. Using it as the default-value
// tag stops env from resetting fields whose variable is unset.
const overlayTag = "envOverlay"

// Load reads configuration from v, overlays NEWSREADER_* environment
// variables and validates the result.
func Load(v *viper.Viper) (Config, error) {
	cfg := LoadConfigFromViper(v)
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any NEWSREADER_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{DefaultValueTagName: overlayTag}); err != nil {
		return fmt.Errorf("unable to parse environment: %w", err)
	}
	return nil
}

// LoadConfigFromViper loads configuration from v, falling back to defaults
// for unset keys. A nil v means the global viper instance.
func LoadConfigFromViper(v *viper.Viper) Config {
	if v == nil {
		v = viper.GetViper()
	}
	cfg := DefaultConfig()

	// API settings
	if v.IsSet("api.url") {
		cfg.API.URL = v.GetString("api.url")
	}
	if v.IsSet("api.timeout") {
		cfg.API.Timeout = duration(v, "api.timeout", cfg.API.Timeout)
	}
	if v.IsSet("api.requests_per_minute") {
		cfg.API.RequestsPerMinute = v.GetInt("api.requests_per_minute")
	}

	// Narration settings
	if v.IsSet("voice") {
		cfg.Voice = v.GetString("voice")
	}
	if v.IsSet("language") {
		cfg.Language = v.GetString("language")
	}
	if v.IsSet("category") {
		cfg.Category = v.GetString("category")
	}
	if v.IsSet("auto_play") {
		cfg.AutoPlay = v.GetBool("auto_play")
	}
	if v.IsSet("require_gesture") {
		cfg.RequireGesture = v.GetBool("require_gesture")
	}

	// Cache settings
	if v.IsSet("cache.capacity") {
		cfg.Cache.Capacity = v.GetInt("cache.capacity")
	}
	if v.IsSet("cache.dir") {
		cfg.Cache.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("cache.max_size_mb") {
		cfg.Cache.MaxSizeMB = v.GetInt64("cache.max_size_mb")
	}
	if v.IsSet("cache.max_age") {
		cfg.Cache.MaxAge = duration(v, "cache.max_age", cfg.Cache.MaxAge)
	}
	if v.IsSet("cache.compression") {
		cfg.Cache.Compression = v.GetInt("cache.compression")
	}

	// Generation settings
	if v.IsSet("tts.async_threshold") {
		cfg.TTS.AsyncThreshold = v.GetInt("tts.async_threshold")
	}
	if v.IsSet("tts.poll_interval") {
		cfg.TTS.PollInterval = duration(v, "tts.poll_interval", cfg.TTS.PollInterval)
	}
	if v.IsSet("tts.max_poll_attempts") {
		cfg.TTS.MaxPollAttempts = v.GetInt("tts.max_poll_attempts")
	}
	if v.IsSet("tts.speed") {
		cfg.TTS.Speed = v.GetFloat64("tts.speed")
	}
	if v.IsSet("tts.depth") {
		cfg.TTS.Depth = v.GetInt("tts.depth")
	}
	if v.IsSet("tts.enrich_threshold") {
		cfg.TTS.EnrichThreshold = v.GetInt("tts.enrich_threshold")
	}

	// Translation settings
	if v.IsSet("translation.provider") {
		cfg.Translation.Provider = v.GetString("translation.provider")
	}
	if v.IsSet("translation.openai.api_key") {
		cfg.Translation.OpenAI.APIKey = v.GetString("translation.openai.api_key")
	}
	if v.IsSet("translation.openai.model") {
		cfg.Translation.OpenAI.Model = v.GetString("translation.openai.model")
	}
	if v.IsSet("translation.openai.base_url") {
		cfg.Translation.OpenAI.BaseURL = v.GetString("translation.openai.base_url")
	}

	// Diagnostics
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if v.IsSet("log_file") {
		cfg.LogFile = v.GetString("log_file")
	}

	return cfg
}

// duration reads key as a duration string, keeping fallback if it does not
// parse.
func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil {
		return d
	}
	return fallback
}

// SetDefaults sets default values in v. A nil v means the global viper
// instance.
func SetDefaults(v *viper.Viper) {
	if v == nil {
		v = viper.GetViper()
	}
	defaults := DefaultConfig()

	v.SetDefault("api.url", defaults.API.URL)
	v.SetDefault("api.timeout", defaults.API.Timeout.String())
	v.SetDefault("api.requests_per_minute", defaults.API.RequestsPerMinute)

	v.SetDefault("voice", defaults.Voice)
	v.SetDefault("language", defaults.Language)
	v.SetDefault("category", defaults.Category)
	v.SetDefault("auto_play", defaults.AutoPlay)
	v.SetDefault("require_gesture", defaults.RequireGesture)

	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("cache.max_size_mb", defaults.Cache.MaxSizeMB)
	v.SetDefault("cache.max_age", defaults.Cache.MaxAge.String())
	v.SetDefault("cache.compression", defaults.Cache.Compression)

	v.SetDefault("tts.async_threshold", defaults.TTS.AsyncThreshold)
	v.SetDefault("tts.poll_interval", defaults.TTS.PollInterval.String())
	v.SetDefault("tts.max_poll_attempts", defaults.TTS.MaxPollAttempts)
	v.SetDefault("tts.speed", defaults.TTS.Speed)
	v.SetDefault("tts.depth", defaults.TTS.Depth)
	v.SetDefault("tts.enrich_threshold", defaults.TTS.EnrichThreshold)

	v.SetDefault("translation.provider", defaults.Translation.Provider)
	v.SetDefault("translation.openai.model", defaults.Translation.OpenAI.Model)

	v.SetDefault("debug", defaults.Debug)
}
