package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/jobs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// jobNames lists the subcommands. The registry needs a database, so --help
// cannot read descriptions from it.
var jobNames = []struct {
	name  string
	short string
	dated bool
	gated bool
}{
	{"payment-reminder", "Send SMS payment reminders for next month's rent", true, true},
	{"unpaid-summary", "E-mail staff the customers who have not paid this month", true, true},
	{"account-cleanup", "Purge expired tokens and accounts flagged for deletion", false, false},
	{"ev-transaction-closer", "Stop overdue EV charging sessions over MQTT", false, false},
	{"incomplete-profile", "Remind new customers to complete their profile", true, false},
}

func newJobCommands() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(jobNames))
	for _, j := range jobNames {
		j := j
		var opts jobs.Options
		cmd := &cobra.Command{
			Use:   j.name,
			Short: j.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), j.name, opts)
			},
		}
		if j.dated {
			cmd.Flags().StringVar(&opts.ReferenceDate, "date", "", "run as if today were this date (YYYY-MM-DD, Hong Kong time)")
		}
		if j.gated {
			cmd.Flags().BoolVar(&opts.Force, "force", false, "run even when today is not a scheduled day")
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func runOnce(parent context.Context, taskType string, opts jobs.Options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, 3)
	if err != nil {
		return err
	}
	defer a.Close()

	job, ok := a.registry.Get(taskType)
	if !ok {
		return errUnknownJob(taskType)
	}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, runErr := job.Run(ctx, opts)
	elapsed := time.Since(start)

	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	a.obs.RecordRun(ctx, taskType, status, elapsed)

	if err := metrics.Push(a.cfg.Metrics.PushgatewayURL, a.cfg.App.Name); err != nil {
		a.zapLog.Warn("metrics push failed", zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("taskType", taskType),
		zap.String("status", status),
		zap.Duration("elapsed", elapsed),
		zap.Any("output", out),
	}
	if runErr != nil {
		a.zapLog.Error("job failed", append(fields, zap.Error(runErr))...)
		return runErr
	}
	a.zapLog.Info("job finished", fields...)
	return nil
}
