// Package config loads the vista server configuration from a YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Platform modes.
const (
	PlatformMemory = "memory"
	PlatformNone   = "none"
	PlatformRod    = "rod"
)

// Config is the file layout shared by `vista serve` and `vista mcp`.
type Config struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Platform string        `yaml:"platform" json:"platform"`
	Redis    RedisConfig   `yaml:"redis" json:"redis"`
	SQLite   SQLiteConfig  `yaml:"sqlite" json:"sqlite"`
	Log      LogConfig     `yaml:"log" json:"log"`
	Browser  BrowserConfig `yaml:"browser" json:"browser"`
	// LockTTL bounds how long a distributed session lock is held.
	LockTTL Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// BrowserConfig is only read when Platform is "rod".
type BrowserConfig struct {
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL string `yaml:"control_url" json:"control_url"`
	Page       string `yaml:"page" json:"page"`
}

// Duration accepts "30s" style strings in both formats.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:     ":8080",
		Platform: PlatformMemory,
		Redis:    RedisConfig{Prefix: "vista:"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Browser:  BrowserConfig{Page: "about:blank"},
		LockTTL:  Duration(30 * time.Second),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate rejects unknown platform modes and log formats.
func (c Config) Validate() error {
	switch c.Platform {
	case PlatformMemory, PlatformNone, PlatformRod:
	default:
		return fmt.Errorf("unknown platform %q (want memory, none or rod)", c.Platform)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.LockTTL.Std() <= 0 {
		return fmt.Errorf("lock_ttl must be positive")
	}
	return nil
}
