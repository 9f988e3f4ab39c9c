// Package config loads the bot configuration: the shared core sections
// plus the database connection.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/calorico/core/config"
	coredatabase "github.com/m3rciful/calorico/core/database"
)

// Config is the full bot configuration file.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core sections for the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file, applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return nil, fmt.Errorf("database.host and database.name are required")
	}
	return &cfg, nil
}
