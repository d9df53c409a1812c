package accountcleanup

import (
	"time"

	"parking-jobs/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	TokenGrace    time.Duration
	UserRetention time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:       config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		TokenGrace:    time.Duration(cfg.Maintenance.TokenGraceDays) * 24 * time.Hour,
		UserRetention: time.Duration(cfg.Maintenance.UserRetentionDays) * 24 * time.Hour,
	}
}
