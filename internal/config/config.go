// cordova-mifare
// Copyright (c) 2025 Frosty Elk AB and contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of cordova-mifare.
//
// cordova-mifare is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// cordova-mifare is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with cordova-mifare; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package config loads mifaretool settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FrostyElk/cordova-mifare/detection"
	"github.com/FrostyElk/cordova-mifare/native"
	"github.com/FrostyElk/cordova-mifare/pn532"
)

// Transport names accepted in Config.Transport
const (
	TransportUART = "uart"
	TransportI2C  = "i2c"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all settings. Zero values in a file keep the defaults.
type Config struct {
	// Device is a serial port or I2C bus; empty means auto-detect
	Device       string        `yaml:"device"`
	Transport    string        `yaml:"transport"`
	Password     string        `yaml:"password"`
	LogLevel     string        `yaml:"log_level"`
	Detect       Detect        `yaml:"detect"`
	Retry        Retry         `yaml:"retry"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ReadPages    int           `yaml:"read_pages"`
}

// Retry mirrors the transport retry settings.
type Retry struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Detect configures reader auto-detection.
type Detect struct {
	// Mode is "passive" or "safe"
	Mode        string   `yaml:"mode"`
	IgnorePaths []string `yaml:"ignore_paths"`
	Blocklist   []string `yaml:"blocklist"`
}

// Default returns the built-in settings.
func Default() Config {
	retry := pn532.DefaultRetryConfig()
	return Config{
		Transport:    TransportUART,
		Password:     "",
		LogLevel:     "info",
		Timeout:      30 * time.Second,
		PollInterval: native.DefaultPollInterval,
		ReadPages:    native.DefaultReadPages,
		Retry: Retry{
			MaxAttempts:    retry.MaxAttempts,
			InitialBackoff: retry.InitialBackoff,
			MaxBackoff:     retry.MaxBackoff,
		},
		Detect: Detect{
			Mode:      "passive",
			Blocklist: detection.DefaultBlocklist(),
		},
	}
}

// Load reads path over the defaults. A missing file is an error; callers
// that treat the file as optional check os.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportUART, TransportI2C:
	default:
		return fmt.Errorf("%w: transport %q, want uart or i2c", ErrInvalid, c.Transport)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if _, err := c.DetectionMode(); err != nil {
		return err
	}
	if c.ReadPages < 1 || c.ReadPages > 256 {
		return fmt.Errorf("%w: read_pages %d out of range 1-256", ErrInvalid, c.ReadPages)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalid)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalid)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// DetectionMode parses Detect.Mode.
func (c Config) DetectionMode() (detection.Mode, error) {
	switch c.Detect.Mode {
	case "", "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	default:
		return detection.Passive, fmt.Errorf("%w: detect.mode %q, want passive or safe", ErrInvalid, c.Detect.Mode)
	}
}

// DetectionOptions builds detection options from the detect section.
func (c Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.Mode, _ = c.DetectionMode()
	opts.IgnorePaths = c.Detect.IgnorePaths
	if c.Detect.Blocklist != nil {
		opts.Blocklist = c.Detect.Blocklist
	}
	return opts
}

// RetryConfig converts the retry section for the pn532 driver.
func (c Config) RetryConfig() *pn532.RetryConfig {
	rc := pn532.DefaultRetryConfig()
	rc.MaxAttempts = c.Retry.MaxAttempts
	if c.Retry.InitialBackoff > 0 {
		rc.InitialBackoff = c.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff > 0 {
		rc.MaxBackoff = c.Retry.MaxBackoff
	}
	return rc
}
