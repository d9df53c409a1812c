// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills blanks from the environment variable names the
// cron deployment has always used.
func overrideEmptyConfig(cfg *Config) {
	setString := func(dst *string, key string) {
		if *dst == "" {
			if val := os.Getenv(key); val != "" {
				*dst = val
			}
		}
	}
	setInt := func(dst *int, key string) {
		if *dst == 0 {
			if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
				*dst = n
			}
		}
	}

	setString(&cfg.Database.Postgres.URI, "DB_URI")
	setString(&cfg.Database.Postgres.User, "DB_USER")
	setString(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	setString(&cfg.SMS.APIUsername, "ONE_WAY_SMS_API_USERNAME")
	setString(&cfg.SMS.APIPassword, "ONE_WAY_SMS_API_PASSWORD")

	setString(&cfg.MQTT.Broker, "MQTT_BROKER")
	setInt(&cfg.MQTT.Port, "MQTT_PORT")
	setString(&cfg.MQTT.Username, "MQTT_USERNAME")
	setString(&cfg.MQTT.Password, "MQTT_PASSWORD")
	setString(&cfg.MQTT.TopicRoot, "MQTT_TOPIC_ROOT")

	setString(&cfg.Billing.BaseURL, "BASE_URL")
	if len(cfg.Billing.ExcludedCarparkIDs) == 0 {
		if ids, err := ParseIDList(os.Getenv("EXCLUDED_CARPARK_IDS")); err == nil {
			cfg.Billing.ExcludedCarparkIDs = ids
		}
	}

	setString(&cfg.Email.StaffEmail, "STAFF_EMAIL")
	setString(&cfg.Dev.TestMobile, "TEST_MOBILE_NO")
	if !cfg.Dev.Enabled {
		if dev, err := strconv.ParseBool(os.Getenv("DEV")); err == nil {
			cfg.Dev.Enabled = dev
		}
	}

	if cfg.Onboarding.CarparkID == 0 {
		if id, err := strconv.ParseInt(os.Getenv("CARPARK_ID"), 10, 64); err == nil {
			cfg.Onboarding.CarparkID = id
		}
	}
}

// ParseIDList parses a comma separated list of integer ids. Blank entries are ignored.
func ParseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "parking-jobs"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Asia/Hong_Kong"
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// SMS defaults
	if cfg.SMS.Provider == "" {
		cfg.SMS.Provider = "onewaysms"
	}
	if cfg.SMS.Endpoint == "" {
		cfg.SMS.Endpoint = "https://sgateway.onewaysms.com/apichinese20.aspx"
	}
	if cfg.SMS.SenderID == "" {
		cfg.SMS.SenderID = "Uvision"
	}
	if cfg.SMS.LanguageType == 0 {
		cfg.SMS.LanguageType = 2
	}
	if cfg.SMS.CountryCode == "" {
		cfg.SMS.CountryCode = "852"
	}
	if cfg.SMS.Timeout == 0 {
		cfg.SMS.Timeout = 30000
	}

	if cfg.Email.AWSRegion == "" {
		cfg.Email.AWSRegion = "ap-southeast-1"
	}
	if cfg.SMS.AWSRegion == "" {
		cfg.SMS.AWSRegion = cfg.Email.AWSRegion
	}
	if cfg.Email.SummaryEmail == "" {
		cfg.Email.SummaryEmail = cfg.Email.StaffEmail
	}

	// MQTT defaults
	if cfg.MQTT.Port == 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "parking-jobs"
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = 10000
	}

	// Billing defaults
	if len(cfg.Billing.ReminderDays) == 0 {
		cfg.Billing.ReminderDays = []int{5, 7}
	}
	if len(cfg.Billing.SummaryDays) == 0 {
		cfg.Billing.SummaryDays = []int{4}
	}

	if cfg.Maintenance.TokenGraceDays == 0 {
		cfg.Maintenance.TokenGraceDays = 7
	}
	if cfg.Maintenance.UserRetentionDays == 0 {
		cfg.Maintenance.UserRetentionDays = 14
	}

	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":8080"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 1
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	pg := cfg.Database.Postgres
	if pg.URI == "" {
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.uri or database.postgres.host is required")
		}
		if pg.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	switch cfg.SMS.Provider {
	case "onewaysms", "sns":
	default:
		return fmt.Errorf("sms.provider must be onewaysms or sns, got %q", cfg.SMS.Provider)
	}

	if cfg.Dev.Enabled && cfg.Dev.TestMobile == "" {
		return fmt.Errorf("dev.test_mobile is required when dev mode is enabled")
	}

	for _, d := range cfg.Billing.ReminderDays {
		if d < 0 || d > 30 {
			return fmt.Errorf("billing.reminder_days contains out of range value %d", d)
		}
	}

	return nil
}

// GetWorkerConfig returns the worker-mode settings for a task type.
func GetWorkerConfig(cfg *Config, taskType string) WorkerConfig {
	if worker, exists := cfg.Workers[taskType]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       300000,
	}
}

func IsWorkerEnabled(cfg *Config, taskType string) bool {
	if worker, exists := cfg.Workers[taskType]; exists {
		return worker.Enabled
	}
	return true
}
