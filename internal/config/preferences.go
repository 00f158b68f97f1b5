package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aminemaliki7/NEWS/internal/voice"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Preferences persists choices made in the TUI to the config file.
type Preferences struct {
	v    *viper.Viper
	path string

	mu sync.Mutex
}

// NewPreferences returns Preferences writing through v. path is used when v
// has not read a config file yet.
func NewPreferences(v *viper.Viper, path string) *Preferences {
	if v == nil {
		v = viper.GetViper()
	}
	return &Preferences{v: v, path: path}
}

// SetDefaultVoice stores the voice used for articles without a selection.
func (p *Preferences) SetDefaultVoice(id voice.ID) error {
	if _, err := voice.Parse(string(id)); err != nil {
		return err
	}
	return p.set("voice", string(id))
}

// SetCategory stores the last category browsed.
func (p *Preferences) SetCategory(category string) error {
	return p.set("category", category)
}

func (p *Preferences) set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.v.Set(key, value)

	target := p.v.ConfigFileUsed()
	if target == "" {
		target = p.path
	}
	if target == "" {
		return fmt.Errorf("no config file to save %s", key)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	if err := p.v.WriteConfigAs(target); err != nil {
		return fmt.Errorf("unable to save %s: %w", key, err)
	}

	log.Debug("Saved preference", "key", key, "value", value, "path", target)
	return nil
}

// Watch reloads the configuration whenever the config file changes and
// passes valid results to onChange. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, onChange func(Config)) {
	if v == nil {
		v = viper.GetViper()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Debug("Config file changed", "file", e.Name, "event", e.Op)

		cfg, err := Load(v)
		if err != nil {
			log.Warn("Ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
