package transactioncloser

import (
	"time"

	"parking-jobs/internal/common/config"
)

type Config struct {
	Timeout   time.Duration
	TopicRoot string
	// Cooldown suppresses a second stop command for the same transaction
	// within the window. Zero disables it.
	Cooldown time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:   config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		TopicRoot: cfg.MQTT.TopicRoot,
		Cooldown:  time.Duration(cfg.MQTT.RepublishCooldown) * time.Second,
	}
}
