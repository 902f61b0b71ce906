package io

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/slok/packlaunch/internal/model"
)

// ConfigFileRepository loads the launcher configuration from YAML or TOML files.
type ConfigFileRepository struct {
	fs fs.FS
}

// NewConfigFileRepository creates a new config file repository.
func NewConfigFileRepository(filesystem fs.FS) *ConfigFileRepository {
	return &ConfigFileRepository{fs: filesystem}
}

// GetConfig loads a launcher configuration file and returns a validated domain model.
// The format is selected by the file extension: `.yaml`, `.yml` or `.toml`.
func (r *ConfigFileRepository) GetConfig(ctx context.Context, path string) (model.LauncherConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.LauncherConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.LauncherConfig{}, ctx.Err()
	}

	var cfg LauncherConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return model.LauncherConfig{}, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return model.LauncherConfig{}, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		return model.LauncherConfig{}, fmt.Errorf("unsupported config format %q: %w", ext, model.ErrNotValid)
	}

	m, err := cfg.toModel()
	if err != nil {
		return model.LauncherConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := m.Validate(); err != nil {
		return model.LauncherConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return m, nil
}

// LauncherConfig represents the file structure of the launcher configuration.
type LauncherConfig struct {
	DataDir         string             `yaml:"data_dir" toml:"data_dir"`
	Realtime        RealtimeConfig     `yaml:"realtime" toml:"realtime"`
	ListenerTimeout string             `yaml:"listener_timeout" toml:"listener_timeout"`
	VersionQuery    VersionQueryConfig `yaml:"version_query" toml:"version_query"`
}

// RealtimeConfig represents the file structure of the realtime channel configuration.
type RealtimeConfig struct {
	URL           string `yaml:"url" toml:"url"`
	RetryInterval string `yaml:"retry_interval" toml:"retry_interval"`
	MaxAttempts   int    `yaml:"max_attempts" toml:"max_attempts"`
}

// VersionQueryConfig represents the file structure of the version query configuration.
type VersionQueryConfig struct {
	URL string `yaml:"url" toml:"url"`
}

func (c LauncherConfig) toModel() (model.LauncherConfig, error) {
	retry, err := parseDuration(c.Realtime.RetryInterval)
	if err != nil {
		return model.LauncherConfig{}, fmt.Errorf("realtime retry_interval: %w", err)
	}
	timeout, err := parseDuration(c.ListenerTimeout)
	if err != nil {
		return model.LauncherConfig{}, fmt.Errorf("listener_timeout: %w", err)
	}

	return model.LauncherConfig{
		DataDir:               c.DataDir,
		RealtimeURL:           c.Realtime.URL,
		RealtimeRetryInterval: retry,
		RealtimeMaxAttempts:   c.Realtime.MaxAttempts,
		ListenerTimeout:       timeout,
		VersionQueryURL:       c.VersionQuery.URL,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrNotValid, err)
	}
	return d, nil
}
