package extractsignals

import (
	"fmt"
	"time"
)

type Config struct {
	Enabled       bool                `mapstructure:"enabled"`
	MaxJobsActive int                 `mapstructure:"max_jobs_active"`
	Timeout       time.Duration       `mapstructure:"timeout"`
	Vocabulary    map[string][]string `mapstructure:"vocabulary"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       5 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	for category, phrases := range c.Vocabulary {
		if len(phrases) == 0 {
			return fmt.Errorf("vocabulary category %q has no phrases", category)
		}
	}
	return nil
}
