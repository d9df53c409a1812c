// internal/workers/maintenance/account-cleanup/handler.go
package accountcleanup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parking-jobs/internal/common/camunda"
	"parking-jobs/internal/common/database"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/common/timeutil"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "account-cleanup"
)

const (
	deleteExpiredTokensQuery = `DELETE FROM user_login_token WHERE expires < $1`
	flaggedUsersQuery        = `SELECT id FROM "user" WHERE date_deleted < $1 ORDER BY id`
)

// purgeSteps run in order inside one transaction per user. Message logs are
// kept for auditing with the user reference cleared.
var purgeSteps = []struct {
	table string
	query string
}{
	{"octopus", `DELETE FROM octopus WHERE user_id = $1`},
	{"user_carpark", `DELETE FROM user_carpark WHERE user_id = $1`},
	{"user_carpark_rental", `DELETE FROM user_carpark_rental WHERE user_id = $1`},
	{"user_message_log", `UPDATE user_message_log SET user_id = NULL WHERE user_id = $1`},
	{"vehicle", `DELETE FROM vehicle WHERE user_id = $1`},
	{"mobile", `DELETE FROM mobile WHERE user_id = $1`},
	{"user_login_token", `DELETE FROM user_login_token WHERE user_id = $1`},
	{"user", `DELETE FROM "user" WHERE id = $1`},
}

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
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

	output, err := h.Execute(ctx, &Input{})
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

func (h *Handler) execute(ctx context.Context, _ *Input) (*Output, error) {
	runID := uuid.New().String()
	log := logger.ForRun(h.logger, TaskType, runID)
	now := h.now()
	out := &Output{RunID: runID}

	tokenCutoff := now.Add(-h.config.TokenGrace).Format(timeutil.DateTimeLayout)
	res, err := h.db.ExecContext(ctx, deleteExpiredTokensQuery, tokenCutoff)
	if err != nil {
		log.Error("expired token purge failed", map[string]interface{}{"error": err, "cutoff": tokenCutoff})
	} else {
		out.TokensDeleted, _ = res.RowsAffected()
		log.Info("expired login tokens deleted", map[string]interface{}{"count": out.TokensDeleted})
	}

	userCutoff := now.Add(-h.config.UserRetention).Format(timeutil.DateTimeLayout)
	userIDs, err := h.flaggedUsers(ctx, userCutoff)
	if err != nil {
		return out, err
	}
	out.UsersFound = len(userIDs)

	if len(userIDs) == 0 {
		log.Info("no users flagged for deletion", map[string]interface{}{"cutoff": userCutoff})
		return out, nil
	}

	log.Info("users flagged for deletion", map[string]interface{}{"count": len(userIDs)})

	for _, id := range userIDs {
		if err := h.purgeUser(ctx, id); err != nil {
			out.UsersFailed++
			out.FailedUserIDs = append(out.FailedUserIDs, id)
			metrics.Item(TaskType, metrics.ResultFailed)
			log.Error("user purge rolled back", map[string]interface{}{"userId": id, "error": err})
			continue
		}
		out.UsersDeleted++
		metrics.Item(TaskType, metrics.ResultDeleted)
		log.Info("user deleted", map[string]interface{}{"userId": id})
	}

	return out, nil
}

func (h *Handler) flaggedUsers(ctx context.Context, cutoff string) ([]int64, error) {
	rows, err := h.db.QueryContext(ctx, flaggedUsersQuery, cutoff)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("flagged_users", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("flagged_users", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("flagged_users", err)
	}
	return ids, nil
}

func (h *Handler) purgeUser(ctx context.Context, userID int64) error {
	return database.WithTx(ctx, h.db, func(tx *sql.Tx) error {
		for _, step := range purgeSteps {
			if _, err := tx.ExecContext(ctx, step.query, userID); err != nil {
				return fmt.Errorf("purge %s: %w", step.table, err)
			}
		}
		return nil
	})
}
