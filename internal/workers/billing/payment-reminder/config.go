package paymentreminder

import (
	"time"

	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/timeutil"
)

type Config struct {
	Timeout            time.Duration
	BaseURL            string
	ExcludedCarparkIDs []int64
	ReminderDays       []int
	SummaryEmail       string
	// ClaimTTL bounds the Redis send claim; it only has to outlive one day's runs.
	ClaimTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:            config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		BaseURL:            cfg.Billing.BaseURL,
		ExcludedCarparkIDs: cfg.Billing.ExcludedCarparkIDs,
		ReminderDays:       cfg.Billing.ReminderDays,
		SummaryEmail:       cfg.Email.SummaryEmail,
		ClaimTTL:           36 * time.Hour,
	}
}

// Due reports whether reminders go out on ref: only when the days left in
// the month are one of the configured reminder days.
func (c *Config) Due(ref time.Time) bool {
	remaining := timeutil.RemainingDays(ref)
	for _, d := range c.ReminderDays {
		if d == remaining {
			return true
		}
	}
	return false
}
