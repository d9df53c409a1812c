// internal/workers/billing/unpaid-summary/handler.go
package unpaidsummary

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"parking-jobs/internal/common/camunda"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"
	"parking-jobs/internal/workers/billing/eligibility"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "unpaid-summary"
)

const contactQuery = `
	SELECT m.number, c.name, u.name, u.email, v.license, pm.name_cn,
		cvt.monthly_rent_rate, uc.special_rate
	FROM mobile m
	INNER JOIN "user" u ON u.id = m.user_id AND u.date_deleted IS NULL
	INNER JOIN carpark c ON c.id = $2
	INNER JOIN user_carpark uc ON uc.user_id = u.id AND uc.carpark_id = c.id
	LEFT JOIN payment_method pm ON pm.id = u.preferred_payment_method
	INNER JOIN vehicle v ON v.user_id = u.id AND v.carpark_id = c.id AND v.is_default = TRUE
	INNER JOIN carpark_vehicle_type cvt ON cvt.vehicle_type_id = v.vehicle_type_id AND cvt.carpark_id = c.id
	WHERE m.is_verified = TRUE AND m.is_default = TRUE AND m.date_deleted IS NULL
		AND u.id = $1
	LIMIT 1`

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Handler struct {
	config       *Config
	db           *sql.DB
	resolver     *eligibility.Resolver
	mailer       Mailer
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, mailer Mailer, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		resolver:     eligibility.NewResolver(db, config.ExcludedCarparkIDs, scoped),
		mailer:       mailer,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
		now:          timeutil.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
			return
		}
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	done := metrics.ObserveRun(TaskType)
	out, err := h.execute(ctx, input)
	done(err)
	return out, err
}

// execute lists customers who paid last month but not the current one.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	runID := uuid.New().String()
	log := logger.ForRun(h.logger, TaskType, runID)

	today, err := timeutil.Reference(input.ReferenceDate, h.now)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("referenceDate: %v", err))
	}

	current := timeutil.FirstOfMonth(today)
	reference := timeutil.AddMonths(current, -1)

	out := &Output{
		RunID: runID,
		Date:  today.Format(timeutil.DateLayout),
		Month: current.Format("2006-01"),
		Due:   h.config.Due(today),
	}

	if !out.Due && !input.Force {
		log.Info("not a summary day", map[string]interface{}{"date": out.Date})
		return out, nil
	}

	unpaid, err := h.resolver.Resolve(ctx, reference)
	if err != nil {
		return out, err
	}
	out.Unpaid = len(unpaid)

	contacts := make([]models.SummaryContact, 0, len(unpaid))
	for _, u := range unpaid {
		c, err := h.contact(ctx, u)
		if err != nil {
			out.Missing++
			metrics.Item(TaskType, metrics.ResultSkipped)
			log.Warn("no contact for unpaid customer", map[string]interface{}{
				"userId":    u.UserID,
				"carparkId": u.CarparkID,
				"error":     err,
			})
			continue
		}
		contacts = append(contacts, *c)
		metrics.Item(TaskType, metrics.ResultSent)
	}
	out.Listed = len(contacts)

	if len(contacts) == 0 {
		log.Info("no unpaid customers to report", map[string]interface{}{"month": out.Month})
		return out, nil
	}

	body, err := renderReport(contacts, current)
	if err != nil {
		return out, err
	}
	out.Carparks = len(group(contacts))

	if err := h.mailer.Send(ctx, h.config.StaffEmail, subject(current), body); err != nil {
		return out, apperrors.NewNotificationSendFailedError("email", err)
	}
	out.EmailSent = true

	log.Info("unpaid summary sent", map[string]interface{}{
		"month":    out.Month,
		"listed":   out.Listed,
		"missing":  out.Missing,
		"carparks": out.Carparks,
	})
	return out, nil
}

func (h *Handler) contact(ctx context.Context, u models.UnpaidRental) (*models.SummaryContact, error) {
	c := models.SummaryContact{UserID: u.UserID, RentalID: u.RentalID}
	err := h.db.QueryRowContext(ctx, contactQuery, u.UserID, u.CarparkID).Scan(
		&c.Mobile,
		&c.CarparkName,
		&c.Name,
		&c.Email,
		&c.License,
		&c.PaymentMethodName,
		&c.MonthlyRentRate,
		&c.SpecialRate,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewContactNotFoundError(u.UserID, u.CarparkID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("summary_contact", err)
	}
	return &c, nil
}
