package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings read from the environment. CLI flags override them.
type Config struct {
	DBPath  string `env:"JOURNAL_DB"`
	Addr    string `env:"JOURNAL_ADDR" envDefault:":8080"`
	APIURL  string `env:"JOURNAL_API_URL" envDefault:"http://localhost:8080"`
	TZ      string `env:"JOURNAL_TZ" envDefault:"Local"`
	LogFile string `env:"JOURNAL_LOG_FILE"`

	HTTPTimeout   time.Duration `env:"JOURNAL_HTTP_TIMEOUT" envDefault:"10s"`
	CompetencyTTL time.Duration `env:"JOURNAL_COMPETENCY_TTL" envDefault:"5m"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	ClassifierModel string `env:"JOURNAL_CLASSIFIER_MODEL" envDefault:"claude-sonnet-4-20250514"`
}

// Load parses the environment into a Config and fills in the default database path.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return &cfg, nil
}

// DefaultDBPath is ~/.journal/journal.db
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".journal", "journal.db")
}

// Location resolves TZ. "Local" and "" map to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.TZ == "" || c.TZ == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.TZ, err)
	}
	return loc, nil
}
