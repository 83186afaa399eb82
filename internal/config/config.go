package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration, loaded from the environment.
type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG"`

	// Database configuration
	DBPath    string `env:"BOOKTRACKER_DB_PATH" envDefault:"data/booktracker.db"`
	UseMockDB bool   `env:"USE_MOCK_DB"`

	// Static shell cache configuration. ShellOriginURL is where the app
	// shell assets are deployed; ShellVersion tags the cache namespace and
	// bumping it on deploy invalidates older caches.
	ShellOriginURL string `env:"SHELL_ORIGIN_URL,required"`
	ShellVersion   string `env:"SHELL_CACHE_VERSION" envDefault:"1.4.0"`
	CacheDir       string `env:"BOOKTRACKER_CACHE_DIR" envDefault:"data/cache"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
