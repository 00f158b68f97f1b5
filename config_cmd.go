package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aminemaliki7/NEWS/internal/config"
)

const defaultConfig = `# newsreader configuration

# backend serving news, narration and translation
api:
  url: "http://localhost:5000"
  timeout: "30s"
  # 0 disables client-side rate limiting
  requests_per_minute: 120

# default narration voice, <language>-<region>-<name>
voice: "en-CA-LiamNeural"
# language articles are listed in
language: "en"
# category opened at start: general, world, nation, business, technology,
# entertainment, sports, science or health
category: "general"
# start playing as soon as audio is ready
auto_play: true
# wait for a key press before the first playback
require_gesture: false

cache:
  # narrations remembered per session
  capacity: 25
  # where downloaded audio is kept (default: the user cache directory)
  # dir: "~/.cache/newsreader/audio"
  max_size_mb: 100
  max_age: "168h"
  # zstd level, 0 stores audio uncompressed
  compression: 3

tts:
  # texts at least this many characters long are generated in the background
  async_threshold: 300
  poll_interval: "2s"
  max_poll_attempts: 60
  speed: 1.0
  depth: 1
  # fetch the full article when its content is shorter than this
  enrich_threshold: 500

translation:
  # backend, openai or none
  provider: "backend"
  openai:
    # api_key: "sk-..."
    model: "gpt-4o-mini"
    # base_url: "https://api.openai.com/v1"

# write debug output to the log file
debug: false
# log_file: "~/.local/state/newsreader/newsreader.log"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the newsreader config file",
	Long:    paragraph(fmt.Sprintf("\n%s the newsreader config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("newsreader config\nnewsreader config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// Runs even when the config file is invalid.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("newsreader", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		v := viper.New()
		v.SetConfigFile(configFile)
		config.SetDefaults(v)
		if err := v.ReadInConfig(); err != nil {
			fmt.Println("Warning: unable to parse config file:", err)
		} else if _, err := config.Load(v); err != nil {
			fmt.Println("Warning:", err)
		}
		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
