// Package config loads the client configuration from a YAML file,
// applying defaults and the LMRK_API_URL environment override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://lmrk-backend-pmnr.vercel.app"

// Config is the client configuration.
type Config struct {
	// BaseURL is the backend root URL.
	BaseURL string

	// TokenFile is where the access token is persisted between runs.
	TokenFile string

	// RefreshInterval is the proactive token refresh period.
	RefreshInterval time.Duration

	// RequestTimeout bounds each backend request.
	RequestTimeout time.Duration
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		TokenFile:       defaultTokenFile(),
		RefreshInterval: 20 * time.Minute,
		RequestTimeout:  10 * time.Second,
	}
}

// Load reads the configuration at path. An empty path or a missing
// file yields the defaults. Unset fields fall back to their defaults;
// the LMRK_API_URL environment variable overrides the base URL last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			fileCfg, err := parse(data)
			if err != nil {
				return Config{}, err
			}
			cfg = merge(cfg, fileCfg)
		}
	}

	if url := os.Getenv("LMRK_API_URL"); url != "" {
		cfg.BaseURL = url
	}
	return cfg, nil
}

// fileConfig is the on-disk shape. Durations travel as strings so the
// file can say "5m" rather than nanosecond counts.
type fileConfig struct {
	BaseURL         string `yaml:"base_url"`
	TokenFile       string `yaml:"token_file"`
	RefreshInterval string `yaml:"refresh_interval"`
	RequestTimeout  string `yaml:"request_timeout"`
}

func parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Config{BaseURL: fc.BaseURL, TokenFile: fc.TokenFile}
	var err error
	if fc.RefreshInterval != "" {
		if cfg.RefreshInterval, err = time.ParseDuration(fc.RefreshInterval); err != nil {
			return Config{}, fmt.Errorf("parsing refresh_interval: %w", err)
		}
	}
	if fc.RequestTimeout != "" {
		if cfg.RequestTimeout, err = time.ParseDuration(fc.RequestTimeout); err != nil {
			return Config{}, fmt.Errorf("parsing request_timeout: %w", err)
		}
	}
	return cfg, nil
}

func merge(base, over Config) Config {
	if over.BaseURL != "" {
		base.BaseURL = over.BaseURL
	}
	if over.TokenFile != "" {
		base.TokenFile = over.TokenFile
	}
	if over.RefreshInterval != 0 {
		base.RefreshInterval = over.RefreshInterval
	}
	if over.RequestTimeout != 0 {
		base.RequestTimeout = over.RequestTimeout
	}
	return base
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lmrkctl/token"
	}
	return filepath.Join(home, ".lmrkctl", "token")
}
