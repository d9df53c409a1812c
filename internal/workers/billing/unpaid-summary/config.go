package unpaidsummary

import (
	"time"

	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/timeutil"
)

type Config struct {
	Timeout            time.Duration
	ExcludedCarparkIDs []int64
	SummaryDays        []int
	StaffEmail         string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:            config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		ExcludedCarparkIDs: cfg.Billing.ExcludedCarparkIDs,
		SummaryDays:        cfg.Billing.SummaryDays,
		StaffEmail:         cfg.Email.StaffEmail,
	}
}

// Due is true on the first of the month and whenever the days left in the
// month are one of the configured summary days.
func (c *Config) Due(ref time.Time) bool {
	if ref.Day() == 1 {
		return true
	}
	remaining := timeutil.RemainingDays(ref)
	for _, d := range c.SummaryDays {
		if d == remaining {
			return true
		}
	}
	return false
}
