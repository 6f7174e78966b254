package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	API struct {
		Key        string `yaml:"key" json:"key"`
		Base       string `yaml:"base" json:"base"`
		WindowDays int    `yaml:"windowDays" json:"windowDays"`
	} `yaml:"api" json:"api"`

	Listings struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"listings" json:"listings"`

	Fetch struct {
		UA       string `yaml:"ua" json:"ua"`
		Attempts int    `yaml:"attempts" json:"attempts"`
		MaxBytes int64  `yaml:"maxBytes" json:"maxBytes"`
	} `yaml:"fetch" json:"fetch"`

	Listen  string `yaml:"listen" json:"listen"`
	Verbose bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are currently unset in cfg. Flags and env should already have been
// applied; this function lets file config supply defaults while preserving
// explicit settings.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.APIKey == "" && fc.API.Key != "" {
		cfg.APIKey = fc.API.Key
	}
	if cfg.BaseURL == "" && fc.API.Base != "" {
		cfg.BaseURL = fc.API.Base
	}
	if cfg.WindowDays == 0 && fc.API.WindowDays > 0 {
		cfg.WindowDays = fc.API.WindowDays
	}
	if cfg.ListingsFile == "" && fc.Listings.File != "" {
		cfg.ListingsFile = fc.Listings.File
	}
	if cfg.Listen == "" && fc.Listen != "" {
		cfg.Listen = fc.Listen
	}
	if cfg.UserAgent == "" && fc.Fetch.UA != "" {
		cfg.UserAgent = fc.Fetch.UA
	}
	if cfg.FetchAttempts == 0 && fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}
	if cfg.MaxFetchBytes == 0 && fc.Fetch.MaxBytes > 0 {
		cfg.MaxFetchBytes = fc.Fetch.MaxBytes
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation. A missing API key is
// not an error here: tools report it per call so the server can still start
// and list its tools.
func ValidateConfig(cfg Config) error {
	if cfg.WindowDays < 0 {
		return errors.New("config: negative search window")
	}
	if cfg.FetchAttempts < 0 {
		return errors.New("config: negative fetch attempts")
	}
	if cfg.MaxFetchBytes < 0 {
		return errors.New("config: negative fetch size cap")
	}
	if cfg.ListingsFile != "" && strings.TrimSpace(cfg.ListingsFile) == "" {
		return errors.New("config: listings file path is blank")
	}
	return nil
}
