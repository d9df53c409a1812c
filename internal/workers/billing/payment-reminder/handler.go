// internal/workers/billing/payment-reminder/handler.go
package paymentreminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parking-jobs/internal/common/camunda"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/common/sms"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/common/validation"
	"parking-jobs/internal/models"
	"parking-jobs/internal/workers/billing/eligibility"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "payment-reminder"
)

var (
	// ErrClaimed means an overlapping run already holds the send claim.
	ErrClaimed = errors.New("REMINDER_CLAIMED")
)

const contactQuery = `
	SELECT m.number, c.name, c.id, u.name, u.email, u.preferred_payment_method,
		cvt.monthly_rent_rate, cc.accept_online_payment, cc.accept_octopus_payment, uc.special_rate
	FROM mobile m
	INNER JOIN "user" u ON u.id = m.user_id AND u.date_deleted IS NULL
	INNER JOIN carpark c ON c.id = $2
	INNER JOIN user_carpark uc ON uc.user_id = u.id AND uc.carpark_id = c.id
	INNER JOIN carpark_config cc ON cc.carpark_id = c.id AND cc.enable_monthly_rental = TRUE
	INNER JOIN vehicle v ON v.user_id = u.id AND v.carpark_id = c.id AND v.is_default = TRUE
	INNER JOIN carpark_vehicle_type cvt ON cvt.vehicle_type_id = v.vehicle_type_id AND cvt.carpark_id = c.id
	WHERE m.is_verified = TRUE AND m.is_default = TRUE AND m.date_deleted IS NULL
		AND u.id = $1
	LIMIT 1`

type Handler struct {
	config       *Config
	db           *sql.DB
	resolver     *eligibility.Resolver
	gate         *gate
	renderer     *renderer
	mailer       Mailer
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

// NewHandler wires the reminder job. rdb may be nil, which disables the
// cross-run send claim.
func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, sender sms.Sender, mailer Mailer, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		resolver:     eligibility.NewResolver(db, config.ExcludedCarparkIDs, scoped),
		gate:         &gate{db: db, redis: rdb, sender: sender, claimTTL: config.ClaimTTL},
		renderer:     &renderer{db: db, baseURL: config.BaseURL, newToken: NewToken},
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

// Execute runs one reminder pass. The output is returned even on error so
// callers can report partial progress.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	done := metrics.ObserveRun(TaskType)
	out, err := h.execute(ctx, input)
	done(err)
	return out, err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	runID := uuid.New().String()
	log := logger.ForRun(h.logger, TaskType, runID)

	today, err := timeutil.Reference(input.ReferenceDate, h.now)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("referenceDate: %v", err))
	}

	out := &Output{
		RunID:         runID,
		Date:          today.Format(timeutil.DateLayout),
		RemainingDays: timeutil.RemainingDays(today),
		Due:           h.config.Due(today),
	}

	if !out.Due && !input.Force {
		log.Info("not a reminder day", map[string]interface{}{
			"date":          out.Date,
			"remainingDays": out.RemainingDays,
			"reminderDays":  h.config.ReminderDays,
		})
		return out, nil
	}

	templates, err := loadTemplates(ctx, h.db)
	if err != nil {
		return out, err
	}

	unpaid, err := h.resolver.Resolve(ctx, today)
	if err != nil {
		return out, err
	}
	out.Eligible = len(unpaid)
	if len(unpaid) == 0 {
		log.Info("no unpaid customers", map[string]interface{}{"date": out.Date})
		return out, nil
	}

	alreadySent, err := h.gate.AlreadySent(ctx, userIDs(unpaid), today)
	if err != nil {
		return out, err
	}

	var (
		sent     []SentReminder
		fatal    error
		notified = make(map[int64]bool, len(unpaid))
	)

	for _, u := range unpaid {
		if alreadySent[u.UserID] || notified[u.UserID] {
			out.Skipped++
			metrics.Item(TaskType, metrics.ResultSkipped)
			log.Info("reminder already sent today", map[string]interface{}{"userId": u.UserID})
			continue
		}

		entry, err := h.remind(ctx, log, templates, u, today)
		if err == nil {
			notified[u.UserID] = true
			sent = append(sent, *entry)
			out.Sent++
			metrics.Item(TaskType, metrics.ResultSent)
			continue
		}

		if apperrors.HasCode(err, apperrors.ErrCodeSMSGatewayFatal) {
			fatal = err
			out.Aborted = true
			out.AbortReason = apperrors.Normalize(err).Details
			log.Error("sms gateway unusable, aborting batch", map[string]interface{}{
				"userId": u.UserID,
				"error":  err,
			})
			break
		}

		if skippable(err) {
			out.Skipped++
			metrics.Item(TaskType, metrics.ResultSkipped)
			log.Warn("reminder skipped", map[string]interface{}{
				"userId":    u.UserID,
				"carparkId": u.CarparkID,
				"error":     err,
			})
			continue
		}

		out.Failed++
		metrics.Item(TaskType, metrics.ResultFailed)
		log.Error("reminder failed", map[string]interface{}{
			"userId":    u.UserID,
			"carparkId": u.CarparkID,
			"error":     err,
		})
	}

	summarySent, err := h.sendSummary(ctx, sent, today)
	if err != nil {
		log.Error("summary email failed", map[string]interface{}{"error": err, "sent": len(sent)})
	}
	out.SummarySent = summarySent

	log.Info("payment reminders finished", map[string]interface{}{
		"eligible": out.Eligible,
		"sent":     out.Sent,
		"skipped":  out.Skipped,
		"failed":   out.Failed,
		"aborted":  out.Aborted,
	})
	return out, fatal
}

// remind handles one unpaid rental end to end. The returned entry is non-nil
// whenever the SMS went out, even if logging it afterwards failed.
func (h *Handler) remind(ctx context.Context, log logger.Logger, templates *Templates, u models.UnpaidRental, today time.Time) (*SentReminder, error) {
	contact, err := h.contact(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateMobile(contact.Mobile); err != nil {
		return nil, apperrors.NewInvalidContactError(fmt.Sprintf("user %d: %v", u.UserID, err))
	}

	sel, err := templates.Select(*contact)
	if err != nil {
		return nil, err
	}

	claimed, err := h.gate.Claim(ctx, today, u.UserID)
	if err != nil {
		log.Warn("send claim unavailable, continuing without it", map[string]interface{}{
			"userId": u.UserID,
			"error":  err,
		})
		claimed = true
	}
	if !claimed {
		return nil, ErrClaimed
	}

	content, err := h.renderer.Render(ctx, *contact, sel.Content, today)
	if err != nil {
		h.gate.Release(ctx, today, u.UserID)
		return nil, err
	}

	res, err := h.gate.Send(ctx, contact.Mobile, content)
	if err != nil {
		h.gate.Release(ctx, today, u.UserID)
		return nil, err
	}

	log.Info("reminder sent", map[string]interface{}{
		"userId":    u.UserID,
		"carparkId": contact.CarparkID,
		"messageId": sel.MessageID,
		"fallback":  sel.Fallback,
		"mobile":    res.Mobile,
		"gateway":   res.Raw,
	})

	logID, err := h.gate.Log(ctx, u.UserID, sel.MessageID, content)
	switch {
	case errors.Is(err, ErrAlreadyLogged):
		log.Warn("reminder logged concurrently by another run", map[string]interface{}{"userId": u.UserID})
	case err != nil:
		log.Error("reminder sent but not logged", map[string]interface{}{"userId": u.UserID, "error": err})
	}

	return &SentReminder{
		UserID:      u.UserID,
		CarparkID:   contact.CarparkID,
		CarparkName: contact.CarparkName,
		LogID:       logID,
		Content:     content,
	}, nil
}

func (h *Handler) contact(ctx context.Context, u models.UnpaidRental) (*models.ReminderContact, error) {
	c := models.ReminderContact{UserID: u.UserID}
	err := h.db.QueryRowContext(ctx, contactQuery, u.UserID, u.CarparkID).Scan(
		&c.Mobile,
		&c.CarparkName,
		&c.CarparkID,
		&c.Name,
		&c.Email,
		&c.PreferredPaymentMethod,
		&c.MonthlyRentRate,
		&c.AcceptOnlinePayment,
		&c.AcceptOctopusPayment,
		&c.SpecialRate,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewContactNotFoundError(u.UserID, u.CarparkID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("reminder_contact", err)
	}
	return &c, nil
}

func skippable(err error) bool {
	if errors.Is(err, ErrClaimed) {
		return true
	}
	return apperrors.HasCode(err, apperrors.ErrCodeContactNotFound) ||
		apperrors.HasCode(err, apperrors.ErrCodeNoPaymentMethod) ||
		apperrors.HasCode(err, apperrors.ErrCodeInvalidContact)
}

func userIDs(rentals []models.UnpaidRental) []int64 {
	ids := make([]int64, 0, len(rentals))
	seen := make(map[int64]bool, len(rentals))
	for _, r := range rentals {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	return ids
}
