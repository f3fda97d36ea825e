package domheal

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all domheal configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls the snapshot retention policy.
type RetentionConfig struct {
	IntervalDays    int           `yaml:"interval_days"`
	MaxPeriods      int           `yaml:"max_periods"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "domheal.db"
	}
	if c.Retention.IntervalDays <= 0 {
		c.Retention.IntervalDays = 15
	}
	if c.Retention.MaxPeriods <= 0 {
		c.Retention.MaxPeriods = 3
	}
	if c.Retention.RetentionDays <= 0 {
		c.Retention.RetentionDays = c.Retention.IntervalDays * c.Retention.MaxPeriods
	}
	if c.Retention.CleanupInterval <= 0 {
		c.Retention.CleanupInterval = 24 * time.Hour
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
