// internal/workers/onboarding/incomplete-profile/handler.go
package incompleteprofile

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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "incomplete-profile"
)

var (
	ErrNoCarpark = errors.New("ONBOARDING_CARPARK_NOT_SET")
)

const (
	messageQuery = `SELECT content FROM message WHERE id = $1`

	incompleteProfilesQuery = `
		SELECT DISTINCT m.user_id, m.number
		FROM mobile m
		INNER JOIN "user" u ON u.id = m.user_id AND u.date_created <= $1 AND u.date_deleted IS NULL
		LEFT JOIN user_message_log l ON l.user_id = u.id AND l.message_id = $2
		LEFT JOIN octopus o ON o.user_id = u.id
		LEFT JOIN vehicle v ON v.user_id = u.id
		INNER JOIN user_carpark_rental r ON r.user_id = u.id AND r.carpark_id = $3
		WHERE o.id IS NULL AND v.id IS NULL AND l.id IS NULL
			AND m.is_verified = TRUE AND m.date_deleted IS NULL
		ORDER BY m.user_id`

	insertMessageLogQuery = `INSERT INTO user_message_log (user_id, message_id, content) VALUES ($1, $2, $3)`
)

type Handler struct {
	config       *Config
	db           *sql.DB
	sender       sms.Sender
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, sender sms.Sender, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		sender:       sender,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	runID := uuid.New().String()
	log := logger.ForRun(h.logger, TaskType, runID)
	out := &Output{RunID: runID}

	if h.config.CarparkID == 0 {
		return out, apperrors.NewInvalidInputError(ErrNoCarpark.Error())
	}

	today, err := timeutil.Reference(input.ReferenceDate, h.now)
	if err != nil {
		return out, apperrors.NewInvalidInputError(fmt.Sprintf("referenceDate: %v", err))
	}

	var content string
	err = h.db.QueryRowContext(ctx, messageQuery, models.MessageIncompleteProfile).Scan(&content)
	if err == sql.ErrNoRows {
		return out, apperrors.NewTemplateNotFoundError(models.MessageIncompleteProfile)
	}
	if err != nil {
		return out, apperrors.NewQueryExecutionFailedError("message_template", err)
	}

	cutoff := timeutil.At(today, h.config.CutoffHour, 0)
	profiles, err := h.incomplete(ctx, cutoff)
	if err != nil {
		return out, err
	}
	out.Found = len(profiles)

	if len(profiles) == 0 {
		log.Info("no new users found", map[string]interface{}{"carparkId": h.config.CarparkID})
		return out, nil
	}

	for _, p := range profiles {
		err := h.notify(ctx, log, p, content)
		if err == nil {
			out.Sent++
			metrics.Item(TaskType, metrics.ResultSent)
			continue
		}

		if apperrors.HasCode(err, apperrors.ErrCodeSMSGatewayFatal) {
			out.Aborted = true
			out.AbortReason = apperrors.Normalize(err).Details
			log.Error("sms gateway unusable, aborting batch", map[string]interface{}{"userId": p.UserID, "error": err})
			return out, err
		}

		out.Failed++
		metrics.Item(TaskType, metrics.ResultFailed)
		log.Warn("incomplete profile reminder not sent", map[string]interface{}{"userId": p.UserID, "error": err})
	}

	log.Info("incomplete profile reminders finished", map[string]interface{}{
		"found":  out.Found,
		"sent":   out.Sent,
		"failed": out.Failed,
	})
	return out, nil
}

func (h *Handler) incomplete(ctx context.Context, cutoff time.Time) ([]models.IncompleteProfile, error) {
	rows, err := h.db.QueryContext(ctx, incompleteProfilesQuery,
		cutoff.Format(timeutil.DateTimeLayout),
		models.MessageIncompleteProfile,
		h.config.CarparkID,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("incomplete_profiles", err)
	}
	defer rows.Close()

	var out []models.IncompleteProfile
	for rows.Next() {
		var p models.IncompleteProfile
		if err := rows.Scan(&p.UserID, &p.Mobile); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("incomplete_profiles", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("incomplete_profiles", err)
	}
	return out, nil
}

// notify sends the reminder and logs it. A send that succeeds but cannot be
// logged still counts as sent.
func (h *Handler) notify(ctx context.Context, log logger.Logger, p models.IncompleteProfile, content string) error {
	if err := validation.ValidateMobile(p.Mobile); err != nil {
		return apperrors.NewInvalidContactError(fmt.Sprintf("user %d: %v", p.UserID, err))
	}

	res, err := h.sender.Send(ctx, p.Mobile, content)
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sms", err)
	}
	if err := res.Err(); err != nil {
		return err
	}

	if _, err := h.db.ExecContext(ctx, insertMessageLogQuery, p.UserID, models.MessageIncompleteProfile, content); err != nil {
		log.Error("reminder sent but not logged", map[string]interface{}{"userId": p.UserID, "error": err})
	}
	return nil
}
