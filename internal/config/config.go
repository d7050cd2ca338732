// Package config loads RDMFS configuration from defaults, an optional
// YAML file, and environment variables, in that override order. CLI
// flags (bound in cmd/rdmfs) take precedence over all three.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds RDMFS's resolved settings.
type Config struct {
	Username string      `yaml:"username"`
	BaseURL  string      `yaml:"base_url"`
	Cache    CacheConfig `yaml:"cache"`
	Mount    MountConfig `yaml:"mount"`
	Log      LogConfig   `yaml:"log"`

	// Password is never read from the config file; it is sourced only
	// from the OSF_PASSWORD environment variable (spec.md §6).
	Password string `yaml:"-"`
}

// CacheConfig bounds the listing cache (spec.md §4.2) and the
// per-inode attribute cache (spec.md §4.3).
type CacheConfig struct {
	ListTTL        time.Duration `yaml:"list_ttl"`
	ListMaxEntries int           `yaml:"list_max_entries"`
	AttrTTL        time.Duration `yaml:"attr_ttl"`
}

type MountConfig struct {
	AllowOther bool `yaml:"allow_other"`
	FileMode   int  `yaml:"file_mode"`
	DirMode    int  `yaml:"dir_mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the design defaults from spec.md §4.2/§4.3/§6.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.osf.io/v2/",
		Cache: CacheConfig{
			ListTTL:        180 * time.Second,
			ListMaxEntries: 256,
			AttrTTL:        60 * time.Second,
		},
		Mount: MountConfig{
			AllowOther: false,
			FileMode:   0644,
			DirMode:    0755,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function. This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if password := getenv("OSF_PASSWORD"); password != "" {
		cfg.Password = password
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rdmfs", "config.yaml")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rdmfs", "config.yaml")
}
