// Package config loads the engine configuration. Configuration is a
// flat JSON file under the data directory; missing file or fields fall
// back to defaults, so a fresh install needs no setup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults for the update catalog endpoint.
const (
	DefaultEndpoint       = "http://nus.shop.wii.com/nus/services/NetUpdateSOAP"
	DefaultSOAPAction     = "urn:nus.wsapi.broadon.com/GetSystemUpdate"
	DefaultUserAgent      = "wii libnup/1.0"
	DefaultTimeoutMinutes = 3
)

// Config represents the flat engine configuration
type Config struct {
	Endpoint       string `json:"endpoint,omitempty"`
	SOAPAction     string `json:"soap_action,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	TimeoutMinutes int    `json:"timeout_minutes,omitempty"`
	DefaultRegion  string `json:"default_region,omitempty"` // JPN, USA, EUR or KOR
	DataDir        string `json:"data_dir,omitempty"`
}

// Default returns the built-in configuration: the production catalog
// endpoint and a data directory under the home directory.
func Default() *Config {
	return &Config{
		Endpoint:       DefaultEndpoint,
		SOAPAction:     DefaultSOAPAction,
		UserAgent:      DefaultUserAgent,
		TimeoutMinutes: DefaultTimeoutMinutes,
	}
}

// LoadConfig reads config.json from the specified directory and fills
// missing fields with defaults. A missing file yields the defaults
// without error; a malformed file is an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// DefaultDataDir returns the data directory used when the config does
// not name one.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nusup"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SOAPAction == "" {
		cfg.SOAPAction = DefaultSOAPAction
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.TimeoutMinutes <= 0 {
		cfg.TimeoutMinutes = DefaultTimeoutMinutes
	}
}
