// cmd/parking-jobs/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/database"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/observability"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/jobs"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// app holds what every subcommand shares after bootstrap.
type app struct {
	cfg      *config.Config
	zapLog   *zap.Logger
	log      logger.Logger
	pg       *database.PostgresClient
	rdb      *redis.Client
	obs      *observability.Observability
	registry *jobs.Registry
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	a.obs.Shutdown()
	_ = a.zapLog.Sync()
}

func main() {
	root := &cobra.Command{
		Use:           "parking-jobs",
		Short:         "Scheduled batch jobs for the parking platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default: configs/config.yaml)")

	root.AddCommand(newJobCommands()...)
	root.AddCommand(newWorkerCommand(), newListCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// bootstrap connects the stores and builds the job registry. connectAttempts
// bounds the PostgreSQL retry loop.
func bootstrap(ctx context.Context, connectAttempts int) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	outputs := []string{}
	if cfg.Logging.Output != "" {
		outputs = append(outputs, cfg.Logging.Output)
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, outputs...)
	log := logger.NewZapAdapter(zapLog)

	if err := timeutil.SetLocation(cfg.App.Timezone); err != nil {
		log.Warn("unknown timezone, keeping Asia/Hong_Kong", map[string]interface{}{
			"timezone": cfg.App.Timezone,
			"error":    err,
		})
	}

	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    log,
		obs:    observability.New(cfg.App.Name),
	}

	err = retryWithBackoff(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		a.pg = pg
		return nil
	}, connectAttempts, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		a.Close()
		return nil, err
	}

	a.rdb = database.NewRedis(cfg.Database.Redis)
	if err := database.PingRedis(ctx, a.rdb); err != nil {
		zapLog.Warn("redis unavailable, send claims and cooldowns disabled", zap.Error(err))
		_ = a.rdb.Close()
		a.rdb = nil
	}

	sender, err := jobs.NewSender(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	mailer, err := jobs.NewMailer(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = jobs.NewRegistry(jobs.Deps{
		Config:  cfg,
		DB:      a.pg.GetDB(),
		Redis:   a.rdb,
		Sender:  sender,
		Mailer:  mailer,
		Connect: jobs.NewConnector(cfg.MQTT),
		Logger:  log,
	})

	zapLog.Info("bootstrap complete",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("dev", cfg.Dev.Enabled),
		zap.String("smsProvider", cfg.SMS.Provider),
		zap.Bool("redis", a.rdb != nil),
	)
	return a, nil
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
