// Package jobs wires every batch job to its dependencies and exposes them to
// the command line and to the Zeebe worker.
package jobs

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"parking-jobs/internal/common/camunda"
	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/sms"
	paymentreminder "parking-jobs/internal/workers/billing/payment-reminder"
	unpaidsummary "parking-jobs/internal/workers/billing/unpaid-summary"
	transactioncloser "parking-jobs/internal/workers/charging/transaction-closer"
	accountcleanup "parking-jobs/internal/workers/maintenance/account-cleanup"
	incompleteprofile "parking-jobs/internal/workers/onboarding/incomplete-profile"

	"github.com/redis/go-redis/v9"
)

// Options are the per-run overrides accepted by every job. Jobs without a
// schedule gate ignore Force.
type Options struct {
	ReferenceDate string
	Force         bool
}

// RunFunc executes one run and returns the job's output for reporting.
type RunFunc func(ctx context.Context, opts Options) (interface{}, error)

type Job struct {
	TaskType    string
	Description string
	Timeout     time.Duration
	Run         RunFunc
	Handle      camunda.HandlerFunc
}

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Deps struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client
	Sender  sms.Sender
	Mailer  Mailer
	Connect transactioncloser.Connector
	Logger  logger.Logger
}

type Registry struct {
	jobs map[string]Job
}

// NewRegistry builds every job from deps.
func NewRegistry(d Deps) *Registry {
	r := &Registry{jobs: make(map[string]Job)}

	prCfg := paymentreminder.LoadConfig(d.Config)
	pr := paymentreminder.NewHandler(prCfg, d.DB, d.Redis, d.Sender, d.Mailer, d.Logger)
	r.add(Job{
		TaskType:    paymentreminder.TaskType,
		Description: "Send SMS payment reminders to monthly customers who have not paid next month",
		Timeout:     prCfg.Timeout,
		Handle:      pr.Handle,
		Run: func(ctx context.Context, opts Options) (interface{}, error) {
			return pr.Execute(ctx, &paymentreminder.Input{ReferenceDate: opts.ReferenceDate, Force: opts.Force})
		},
	})

	usCfg := unpaidsummary.LoadConfig(d.Config)
	us := unpaidsummary.NewHandler(usCfg, d.DB, d.Mailer, d.Logger)
	r.add(Job{
		TaskType:    unpaidsummary.TaskType,
		Description: "E-mail staff the monthly customers who have not paid this month",
		Timeout:     usCfg.Timeout,
		Handle:      us.Handle,
		Run: func(ctx context.Context, opts Options) (interface{}, error) {
			return us.Execute(ctx, &unpaidsummary.Input{ReferenceDate: opts.ReferenceDate, Force: opts.Force})
		},
	})

	acCfg := accountcleanup.LoadConfig(d.Config)
	ac := accountcleanup.NewHandler(acCfg, d.DB, d.Logger)
	r.add(Job{
		TaskType:    accountcleanup.TaskType,
		Description: "Purge expired login tokens and accounts flagged for deletion",
		Timeout:     acCfg.Timeout,
		Handle:      ac.Handle,
		Run: func(ctx context.Context, _ Options) (interface{}, error) {
			return ac.Execute(ctx, &accountcleanup.Input{})
		},
	})

	tcCfg := transactioncloser.LoadConfig(d.Config)
	tc := transactioncloser.NewHandler(tcCfg, d.DB, d.Redis, d.Connect, d.Logger)
	r.add(Job{
		TaskType:    transactioncloser.TaskType,
		Description: "Send remote stop commands for overdue EV charging sessions",
		Timeout:     tcCfg.Timeout,
		Handle:      tc.Handle,
		Run: func(ctx context.Context, _ Options) (interface{}, error) {
			return tc.Execute(ctx, &transactioncloser.Input{})
		},
	})

	ipCfg := incompleteprofile.LoadConfig(d.Config)
	ip := incompleteprofile.NewHandler(ipCfg, d.DB, d.Sender, d.Logger)
	r.add(Job{
		TaskType:    incompleteprofile.TaskType,
		Description: "Remind new monthly customers to register a vehicle or Octopus card",
		Timeout:     ipCfg.Timeout,
		Handle:      ip.Handle,
		Run: func(ctx context.Context, opts Options) (interface{}, error) {
			return ip.Execute(ctx, &incompleteprofile.Input{ReferenceDate: opts.ReferenceDate})
		},
	})

	return r
}

func (r *Registry) add(j Job) {
	r.jobs[j.TaskType] = j
}

func (r *Registry) Get(taskType string) (Job, bool) {
	j, ok := r.jobs[taskType]
	return j, ok
}

// All returns the jobs sorted by task type.
func (r *Registry) All() []Job {
	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].TaskType < out[k].TaskType })
	return out
}
