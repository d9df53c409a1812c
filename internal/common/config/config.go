// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Database    DatabaseConfig          `mapstructure:"database"`
	SMS         SMSConfig               `mapstructure:"sms"`
	Email       EmailConfig             `mapstructure:"email"`
	MQTT        MQTTConfig              `mapstructure:"mqtt"`
	Billing     BillingConfig           `mapstructure:"billing"`
	Maintenance MaintenanceConfig       `mapstructure:"maintenance"`
	Onboarding  OnboardingConfig        `mapstructure:"onboarding"`
	Dev         DevConfig               `mapstructure:"dev"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	Metrics     MetricsConfig           `mapstructure:"metrics"`
	Logging     LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	URI            string `mapstructure:"uri"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string. A full URI wins over the
// individual fields.
func (p PostgresConfig) GetDSN() string {
	if p.URI != "" {
		return p.URI
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig is optional; an empty address disables every Redis-backed feature.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// SMSConfig selects and configures the SMS provider.
type SMSConfig struct {
	Provider     string `mapstructure:"provider"` // "onewaysms" or "sns"
	Endpoint     string `mapstructure:"endpoint"`
	APIUsername  string `mapstructure:"api_username"`
	APIPassword  string `mapstructure:"api_password"`
	SenderID     string `mapstructure:"sender_id"`
	LanguageType int    `mapstructure:"language_type"`
	CountryCode  string `mapstructure:"country_code"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	AWSRegion    string `mapstructure:"aws_region"`
}

type EmailConfig struct {
	AWSRegion  string `mapstructure:"aws_region"`
	FromEmail  string `mapstructure:"from_email"`
	StaffEmail string `mapstructure:"staff_email"`
	// SummaryEmail receives the per-run reminder log; defaults to StaffEmail.
	SummaryEmail string `mapstructure:"summary_email"`
}

type MQTTConfig struct {
	Broker            string `mapstructure:"broker"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	TopicRoot         string `mapstructure:"topic_root"`
	ClientID          string `mapstructure:"client_id"`
	ConnectTimeout    int    `mapstructure:"connect_timeout"`     // milliseconds
	RepublishCooldown int    `mapstructure:"republish_cooldown"` // seconds, 0 disables
}

// BillingConfig drives the payment reminder and unpaid summary jobs.
type BillingConfig struct {
	ExcludedCarparkIDs []int64 `mapstructure:"excluded_carpark_ids"`
	BaseURL            string  `mapstructure:"base_url"`
	ReminderDays       []int   `mapstructure:"reminder_days"`
	SummaryDays        []int   `mapstructure:"summary_days"`
}

type MaintenanceConfig struct {
	TokenGraceDays    int `mapstructure:"token_grace_days"`
	UserRetentionDays int `mapstructure:"user_retention_days"`
}

type OnboardingConfig struct {
	CarparkID int64 `mapstructure:"carpark_id"`
}

// DevConfig replaces real recipients with test ones outside production.
type DevConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TestMobile string `mapstructure:"test_mobile"`
}

type CamundaConfig struct {
	BrokerAddress string `mapstructure:"broker_address"`
}

// WorkerConfig holds the settings applicable to every job in worker mode.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	ListenAddr     string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
