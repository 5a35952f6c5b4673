package notifydispatch

import (
	"fmt"
	"time"

	"triage-workers/internal/models"
)

type Config struct {
	Enabled         bool                 `mapstructure:"enabled"`
	MaxJobsActive   int                  `mapstructure:"max_jobs_active"`
	Timeout         time.Duration        `mapstructure:"timeout"`
	Threshold       models.SeverityLevel `mapstructure:"priority_threshold"`
	EmailEnabled    bool                 `mapstructure:"email_enabled"`
	FromEmail       string               `mapstructure:"from_email"`
	ToEmails        []string             `mapstructure:"to_emails"`
	SMSEnabled      bool                 `mapstructure:"sms_enabled"`
	DispatchNumbers []string             `mapstructure:"dispatch_numbers"`
	SenderID        string               `mapstructure:"sender_id"`
	AWSRegion       string               `mapstructure:"aws_region"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Threshold:     models.SeverityALS,
		AWSRegion:     "us-east-1",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if !c.Threshold.IsValid() {
		return fmt.Errorf("priority_threshold %q is not a level of care", c.Threshold)
	}
	if c.EmailEnabled {
		if c.FromEmail == "" {
			return fmt.Errorf("from_email is required when email is enabled")
		}
		if len(c.ToEmails) == 0 {
			return fmt.Errorf("to_emails is required when email is enabled")
		}
	}
	if c.SMSEnabled && len(c.DispatchNumbers) == 0 {
		return fmt.Errorf("dispatch_numbers is required when sms is enabled")
	}
	return nil
}
