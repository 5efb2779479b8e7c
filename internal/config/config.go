// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional mfstat.toml settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is loaded when --config is not given and the file exists
const DefaultPath = "mfstat.toml"

// DefaultBaudRate matches the MobiFlight firmware
const DefaultBaudRate = 115200

// Binding attaches a display label to a configured device name
type Binding struct {
	Device string
	Label  string
}

// Config holds connection and CLI defaults
type Config struct {
	Port               string
	BaudRate           int
	URL                string
	Username           string
	NoSSLVerify        bool
	LogLevel           string
	TestedVersionsOnly bool
	Bindings           []Binding

	// Path is the file the config was loaded from, empty for defaults
	Path string
}

type fileConfig struct {
	Port               string        `toml:"port"`
	Baud               int           `toml:"baud"`
	URL                string        `toml:"url"`
	Username           string        `toml:"username"`
	NoSSLVerify        bool          `toml:"no_ssl_verify"`
	LogLevel           string        `toml:"log_level"`
	TestedVersionsOnly bool          `toml:"tested_versions_only"`
	Bindings           []fileBinding `toml:"bindings"`
}

type fileBinding struct {
	Device string `toml:"device"`
	Label  string `toml:"label"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		BaudRate: DefaultBaudRate,
		LogLevel: "info",
	}
}

// Load reads path. An empty path falls back to DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over the defaults
func LoadFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg, err := apply(Default(), raw, meta)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML text over the defaults
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.BaudRate = raw.Baud
	}
	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("no_ssl_verify") {
		cfg.NoSSLVerify = raw.NoSSLVerify
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("tested_versions_only") {
		cfg.TestedVersionsOnly = raw.TestedVersionsOnly
	}
	if meta.IsDefined("bindings") {
		bindings, err := normalizeBindings(raw.Bindings)
		if err != nil {
			return Config{}, err
		}
		cfg.Bindings = bindings
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeBindings(in []fileBinding) ([]Binding, error) {
	out := make([]Binding, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, b := range in {
		device := strings.TrimSpace(b.Device)
		if device == "" {
			return nil, fmt.Errorf("bindings[%d]: device is required", i)
		}
		if seen[device] {
			return nil, fmt.Errorf("bindings[%d]: duplicate device %q", i, device)
		}
		seen[device] = true
		out = append(out, Binding{Device: device, Label: strings.TrimSpace(b.Label)})
	}
	return out, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.BaudRate)
	}
	if c.URL != "" && !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("url must use ws:// or wss://, got %q", c.URL)
	}
	return nil
}

// Label returns the display label bound to a device name, or the name itself
func (c Config) Label(device string) string {
	for _, b := range c.Bindings {
		if b.Device == device && b.Label != "" {
			return b.Label
		}
	}
	return device
}
