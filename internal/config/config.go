// Package config loads engine settings from a TOML file. A missing
// file is not an error: callers get the defaults.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileSystem is an abstraction for file reads, swappable in tests.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Config holds all tunable settings.
type Config struct {
	Search SearchConfig `toml:"search"`
	Engine EngineConfig `toml:"engine"`
}

// SearchConfig holds default search behavior. Flags on the command
// line override these per invocation.
type SearchConfig struct {
	CaseSensitive bool `toml:"case_sensitive"`
	WholeWord     bool `toml:"whole_word"`
	Regex         bool `toml:"regex"`
	// Limit caps matches per search; zero means unlimited.
	Limit int `toml:"limit"`
}

// EngineConfig holds output tuning for position reporting.
type EngineConfig struct {
	// ContextLines is the number of surrounding lines shown with each
	// search match.
	ContextLines int `toml:"context_lines"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Search: SearchConfig{CaseSensitive: true},
	}
}

// Loader reads Config from a TOML file.
type Loader struct {
	fs   FileSystem
	path string
}

// NewLoader creates a loader for the given path backed by the OS file
// system.
func NewLoader(path string) *Loader {
	return &Loader{fs: OSFS{}, path: path}
}

// NewLoaderWithFS creates a loader with a custom file system.
func NewLoaderWithFS(fs FileSystem, path string) *Loader {
	return &Loader{fs: fs, path: path}
}

// Load reads and parses the configured file. A missing file yields the
// defaults without error.
func (l *Loader) Load() (*Config, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", l.path, err)
	}
	return cfg, nil
}
