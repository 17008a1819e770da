// Package config provides configuration for the client application using
// command-line flags, environment variables, and an optional JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Options holds the configuration values for the client application.
// Precedence: defaults < JSON config file < environment.
type Options struct {
	// APIBase is the backend base URL.
	APIBase string `json:"api_base" env:"AMANPAY_API_BASE"`

	// DataDir is where the vault file, device key, and profile database
	// live.
	DataDir string `json:"data_dir" env:"AMANPAY_DATA_DIR"`

	// AppID namespaces the profile cache key per build variant.
	AppID string `json:"app_id" env:"AMANPAY_APP_ID"`

	// PinLength is the installation's PIN length, 4 or 6.
	PinLength int `json:"pin_length" env:"AMANPAY_PIN_LENGTH"`

	// SplashSeconds is the minimum splash display floor.
	SplashSeconds float64 `json:"splash_seconds" env:"AMANPAY_SPLASH_SECONDS"`

	// LogLevel selects the zap level (debug/info/warn/error).
	LogLevel string `json:"log_level" env:"AMANPAY_LOG_LEVEL"`
}

// Defaults returns the baseline configuration.
func Defaults() *Options {
	return &Options{
		APIBase:       "http://localhost:8080",
		DataDir:       ".",
		AppID:         "com.amanpay.app",
		PinLength:     4,
		SplashSeconds: 3,
		LogLevel:      "info",
	}
}

// Load fills Options from the optional JSON file at path and then from
// the environment. A missing file is not an error.
func Load(path string) (*Options, error) {
	options := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if options.PinLength != 4 && options.PinLength != 6 {
		return nil, fmt.Errorf("pin_length must be 4 or 6, got %d", options.PinLength)
	}
	return options, nil
}
