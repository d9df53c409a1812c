// internal/workers/charging/transaction-closer/handler.go
package transactioncloser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parking-jobs/internal/common/camunda"
	"parking-jobs/internal/common/database"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/metrics"
	"parking-jobs/internal/common/mqtt"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "ev-transaction-closer"
)

var (
	ErrChargerNotFound = errors.New("CHARGER_NOT_FOUND")
)

const (
	overdueTransactionsQuery = `
		SELECT id, charger_id, status, end_time, target_end_time, actual_end_time
		FROM ev_transaction
		WHERE status <> $1 AND status <> $2
			AND (target_end_time <= $3 OR (end_time <= $3 AND target_end_time IS NULL))
		ORDER BY id`

	chargerQuery = `
		SELECT ch.id, ch.name
		FROM ev_charger ch
		INNER JOIN ev_location l ON l.id = ch.location_id
		WHERE ch.id = $1`
)

// Connector opens a broker session. It is only called when there is work.
type Connector func(ctx context.Context) (mqtt.Publisher, error)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	connect      Connector
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, connect Connector, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        rdb,
		connect:      connect,
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
	out := &Output{RunID: runID}

	txs, err := h.overdue(ctx, h.now())
	if err != nil {
		return out, err
	}
	out.Found = len(txs)

	if len(txs) == 0 {
		log.Info("no charging sessions to close", nil)
		return out, nil
	}

	publisher, err := h.connect(ctx)
	if err != nil {
		return out, apperrors.NewBrokerPublishFailedError(h.config.TopicRoot, err)
	}
	defer publisher.Close()

	for _, tx := range txs {
		if !tx.InProgress() {
			continue
		}
		out.Open++

		if !h.claim(ctx, log, tx.ID) {
			out.Skipped++
			metrics.Item(TaskType, metrics.ResultSkipped)
			log.Info("stop already sent recently", map[string]interface{}{"transactionId": tx.ID})
			continue
		}

		topic, err := h.stop(ctx, publisher, tx)
		if err != nil {
			out.Failed++
			metrics.Item(TaskType, metrics.ResultFailed)
			log.Error("remote stop failed", map[string]interface{}{
				"transactionId": tx.ID,
				"chargerId":     tx.ChargerID,
				"error":         err,
			})
			continue
		}

		out.Published++
		metrics.Item(TaskType, metrics.ResultSent)
		log.Debug("remote stop published", map[string]interface{}{
			"transactionId": tx.ID,
			"topic":         topic,
		})
	}

	log.Info("charging sessions closed", map[string]interface{}{
		"found":     out.Found,
		"open":      out.Open,
		"published": out.Published,
		"skipped":   out.Skipped,
		"failed":    out.Failed,
	})
	return out, nil
}

func (h *Handler) overdue(ctx context.Context, now time.Time) ([]models.EVTransaction, error) {
	rows, err := h.db.QueryContext(ctx, overdueTransactionsQuery,
		models.EVStatusRemoteStop,
		models.EVStatusFinished,
		now.Format(timeutil.DateTimeLayout),
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("overdue_ev_transactions", err)
	}
	defer rows.Close()

	var txs []models.EVTransaction
	for rows.Next() {
		var t models.EVTransaction
		if err := rows.Scan(&t.ID, &t.ChargerID, &t.Status, &t.EndTime, &t.TargetEndTime, &t.ActualEndTime); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("overdue_ev_transactions", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("overdue_ev_transactions", err)
	}
	return txs, nil
}

// claim applies the republish cooldown. Redis errors let the command through.
func (h *Handler) claim(ctx context.Context, log logger.Logger, txID int64) bool {
	if h.config.Cooldown <= 0 {
		return true
	}
	ok, err := database.Claim(ctx, h.redis, "ev:stop:"+strconv.FormatInt(txID, 10), h.config.Cooldown)
	if err != nil {
		log.Warn("cooldown check failed", map[string]interface{}{"transactionId": txID, "error": err})
		return true
	}
	return ok
}

func (h *Handler) stop(ctx context.Context, publisher mqtt.Publisher, tx models.EVTransaction) (string, error) {
	var charger models.EVCharger
	err := h.db.QueryRowContext(ctx, chargerQuery, tx.ChargerID).Scan(&charger.ID, &charger.Name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %d", ErrChargerNotFound, tx.ChargerID)
	}
	if err != nil {
		return "", apperrors.NewQueryExecutionFailedError("ev_charger", err)
	}

	payload, err := mqtt.RemoteStop(tx.ID).Encode()
	if err != nil {
		return "", err
	}

	topic := mqtt.Topic(h.config.TopicRoot, charger.Name)
	if err := publisher.Publish(ctx, topic, payload); err != nil {
		return topic, apperrors.NewBrokerPublishFailedError(topic, err)
	}
	return topic, nil
}
