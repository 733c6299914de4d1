// Package config loads the YAML configuration for the planner CLI and the
// agent-side defaults: which classes are eligible for replacement, where the
// base cache lives, logging level and watch debounce.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config configures the engine's surrounding tooling.
type Config struct {
	// CacheDir is the base directory for recorded base definitions.
	CacheDir string `yaml:"cache_dir"`

	// Replaceable lists class name patterns (path.Match syntax over the
	// dotted name, e.g. "com.acme.*") eligible for replacement. Empty means
	// every loaded class is replaceable.
	Replaceable []string `yaml:"replaceable"`

	// Loader is the loader identity recorded on base snapshots.
	Loader string `yaml:"loader"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// WatchDebounceMS batches rapid file events in watch mode.
	WatchDebounceMS int `yaml:"watch_debounce_ms"`
}

// WatchDebounce returns the debounce window as a duration.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

func (c *Config) defaults() {
	if c.CacheDir == "" {
		c.CacheDir = "tmp/.frcache"
	}
	if c.Loader == "" {
		c.Loader = "app"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WatchDebounceMS <= 0 {
		c.WatchDebounceMS = 250
	}
}

// Load reads the config file. A missing file yields the defaults; a present
// but malformed file is an error.
func Load(p string) (Config, error) {
	var c Config
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.defaults()
			return c, nil
		}
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", p, err)
	}
	c.defaults()
	return c, nil
}

// Replaceable reports whether the class name matches one of the configured
// patterns. Dots are treated as separators so "com.acme.*" matches
// "com.acme.Greeter" but not "com.acme.web.Handler".
func (c Config) IsReplaceable(className string) bool {
	if len(c.Replaceable) == 0 {
		return true
	}
	slashed := strings.ReplaceAll(className, ".", "/")
	for _, pat := range c.Replaceable {
		if ok, err := path.Match(strings.ReplaceAll(pat, ".", "/"), slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// Level maps the configured log level to a slog level; unknown values fall
// back to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
