package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds pdf-quickcheck configuration.
type Config struct {
	Limits   Limits        `yaml:"limits"`
	Workers  int           `yaml:"workers"`    // 0 = auto by document count
	Timeout  int           `yaml:"timeout_ms"` // per-document deadline, 0 = none
	SkipMail bool          `yaml:"skip_mail"`  // ignore eml/mbox/msg containers
	Export   ExportConfig  `yaml:"export"`
	Logging  LoggingConfig `yaml:"logging"`
}

type ExportConfig struct {
	Format string `yaml:"format"` // json | csv | "" (none)
	Dir    string `yaml:"dir"`
}

type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Load reads configuration from a YAML file.
// An empty path or a missing file yields the default config.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Limits: DefaultLimits(),
	}
}

func applyDefaults(cfg *Config) {
	cfg.Limits = cfg.Limits.WithDefaults()
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
}
