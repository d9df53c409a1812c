package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-jobs/internal/common/camunda"
	"parking-jobs/internal/common/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func errUnknownJob(taskType string) error {
	return fmt.Errorf("unknown job %q", taskType)
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available jobs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, j := range jobNames {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", j.name, j.short)
			}
		},
	}
}

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve every enabled job as a Zeebe job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveWorkers()
		},
	}
}

func serveWorkers() error {
	ctx := context.Background()

	a, err := bootstrap(ctx, 15)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Camunda.BrokerAddress == "" {
		return errors.New("camunda.broker_address is required in worker mode")
	}

	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(ctx, a.cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, a.zapLog, "Zeebe client initialization")
	if err != nil {
		return err
	}
	defer zeebe.Close()
	a.zapLog.Info("Zeebe client connected successfully")

	var workers []*camunda.CamundaWorker
	for _, job := range a.registry.All() {
		if !config.IsWorkerEnabled(a.cfg, job.TaskType) {
			a.zapLog.Info("worker disabled", zap.String("taskType", job.TaskType))
			continue
		}
		wcfg := config.GetWorkerConfig(a.cfg, job.TaskType)
		w := camunda.NewWorker(
			zeebe.GetClient(),
			job.TaskType,
			wcfg.MaxJobsActive,
			config.GetDuration(wcfg.Timeout),
			job.Handle,
			a.log,
		)
		w.Start()
		workers = append(workers, w)
	}
	a.zapLog.Info("workers registered", zap.Int("count", len(workers)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := a.pg.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "broker unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: a.cfg.Metrics.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.zapLog.Error("Health/Metrics server shutdown", zap.Error(err))
	}

	a.zapLog.Info("Worker stopped gracefully")
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
