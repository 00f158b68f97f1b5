package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// AppName names the config file and the per-user directories.
const AppName = "newsreader"

// FileName is the config file looked up in the config directories.
const FileName = AppName + ".yml"

func scope() *gap.Scope {
	return gap.NewScope(gap.User, AppName)
}

// ConfigDirs returns the directories searched for the config file, most
// specific first. NEWSREADER_CONFIG_HOME and XDG_CONFIG_HOME take
// precedence over the platform defaults.
func ConfigDirs() ([]string, error) {
	dirs, err := scope().ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("NEWSREADER_CONFIG_HOME"); c != "" {
		dirs = append([]string{ExpandPath(c)}, dirs...)
	}
	return dirs, nil
}

// CacheDir returns the directory for downloaded audio. A configured dir
// wins over the platform cache directory.
func CacheDir(configured string) (string, error) {
	if configured != "" {
		return ExpandPath(configured), nil
	}
	dir, err := scope().CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

// LogPath returns the debug log file location. A configured path wins over
// the platform log directory.
func LogPath(configured string) (string, error) {
	if configured != "" {
		return ExpandPath(configured), nil
	}
	path, err := scope().LogPath(AppName + ".log")
	if err != nil {
		return "", fmt.Errorf("could not find log directory: %w", err)
	}
	return path, nil
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return os.ExpandEnv(expanded)
}
