package app

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.APIKey == "" {
		// Support both NARA_API_KEY and the bare SERVICE_KEY name used by
		// data.go.kr sample code; prefer NARA_API_KEY if set.
		v := os.Getenv("NARA_API_KEY")
		if v == "" {
			v = os.Getenv("SERVICE_KEY")
		}
		cfg.APIKey = v
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("NARA_BASE_URL")
	}
	if cfg.WindowDays == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("NARA_WINDOW_DAYS"))); err == nil && n > 0 {
			cfg.WindowDays = n
		}
	}
	if cfg.ListingsFile == "" {
		cfg.ListingsFile = os.Getenv("NARA_LISTINGS_FILE")
	}
	if cfg.Listen == "" {
		cfg.Listen = os.Getenv("NARA_LISTEN")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("NARA_USER_AGENT")
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.Verbose, "NARA_VERBOSE")
}
