package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/audio"
	"github.com/aminemaliki7/NEWS/internal/backend"
	"github.com/aminemaliki7/NEWS/internal/cache"
	"github.com/aminemaliki7/NEWS/internal/config"
	"github.com/aminemaliki7/NEWS/internal/narration"
	"github.com/aminemaliki7/NEWS/internal/playback"
	"github.com/aminemaliki7/NEWS/internal/tts"
)

// app wires the services behind the TUI and the listen command.
type app struct {
	cfg      config.Config
	backend  *backend.Client
	articles *article.Client
	disk     *cache.DiskCache
	player   *playback.Controller
	narrator *narration.Orchestrator
	prefs    *config.Preferences
}

func newApp(cfg config.Config, prefs *config.Preferences) (*app, error) {
	b, err := backend.New(backend.Options{
		BaseURL:           cfg.API.URL,
		Timeout:           cfg.API.Timeout,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		UserAgent:         config.AppName + "/" + Version,
	})
	if err != nil {
		return nil, err
	}

	disk, err := openDiskCache(cfg)
	if err != nil {
		return nil, err
	}

	translator, err := newTranslator(cfg, b)
	if err != nil {
		_ = disk.Close()
		return nil, err
	}

	ttsOpts := tts.Options{
		AsyncThreshold:  cfg.TTS.AsyncThreshold,
		PollInterval:    cfg.TTS.PollInterval,
		MaxPollAttempts: cfg.TTS.MaxPollAttempts,
		Speed:           cfg.TTS.Speed,
		Depth:           cfg.TTS.Depth,
	}

	articles := article.NewClient(b)
	source := audio.NewSource(b, disk, nil)
	player := playback.NewController(audio.NewPlayer(source, audio.Options{
		RequireGesture: cfg.RequireGesture,
		LoadTimeout:    cfg.API.Timeout,
	}), nil)

	narrator := narration.New(narration.Options{
		Store:           cache.NewStore(cfg.Cache.Capacity),
		Synthesizer:     tts.NewClient(b, ttsOpts),
		Player:          player,
		Translator:      translator,
		Content:         articles,
		Preferences:     prefs,
		DefaultVoice:    cfg.VoiceID(),
		SourceLanguage:  cfg.Language,
		EnrichThreshold: cfg.TTS.EnrichThreshold,
	})

	return &app{
		cfg:      cfg,
		backend:  b,
		articles: articles,
		disk:     disk,
		player:   player,
		narrator: narrator,
		prefs:    prefs,
	}, nil
}

// openDiskCache opens the audio cache and drops entries past their age.
func openDiskCache(cfg config.Config) (*cache.DiskCache, error) {
	dir, err := config.CacheDir(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	disk, err := cache.NewDiskCache(dir, cfg.Cache.MaxSizeBytes(), cfg.Cache.Compression)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	if cfg.Cache.MaxAge > 0 {
		start := time.Now()
		n, err := disk.Prune(cfg.Cache.MaxAge)
		if err != nil {
			log.Warn("Could not prune audio cache", "dir", dir, "error", err)
		} else if n > 0 {
			log.Debug("Pruned audio cache", "removed", n, "took", time.Since(start))
		}
	}
	return disk, nil
}

func newTranslator(cfg config.Config, b *backend.Client) (tts.Translator, error) {
	switch cfg.Translation.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		t, err := tts.NewOpenAITranslator(tts.OpenAIConfig{
			APIKey:  cfg.Translation.OpenAI.APIKey,
			Model:   cfg.Translation.OpenAI.Model,
			BaseURL: cfg.Translation.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to set up translation: %w", err)
		}
		return t, nil
	default:
		return tts.NewBackendTranslator(b), nil
	}
}

func (a *app) Close() error {
	a.narrator.StopAll()
	return a.disk.Close()
}
