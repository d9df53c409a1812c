package incompleteprofile

import (
	"time"

	"parking-jobs/internal/common/config"
)

type Config struct {
	Timeout   time.Duration
	CarparkID int64
	// CutoffHour excludes users who registered after this hour today.
	CutoffHour int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:    config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		CarparkID:  cfg.Onboarding.CarparkID,
		CutoffHour: 5,
	}
}
