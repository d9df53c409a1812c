package paymentreminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parking-jobs/internal/common/database"
	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/sms"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrAlreadyLogged means another run logged a reminder for the same user and
// day between our pre-check and our insert.
var ErrAlreadyLogged = errors.New("ALREADY_LOGGED")

const (
	alreadySentQuery = `
		SELECT DISTINCT user_id FROM user_message_log
		WHERE user_id = ANY($1) AND message_id = ANY($2)
			AND date_created BETWEEN $3 AND $4`

	insertMessageLogQuery = `
		INSERT INTO user_message_log (user_id, message_id, content)
		VALUES ($1, $2, $3)
		RETURNING id`
)

// gate enforces at most one reminder per user per day and performs the send.
type gate struct {
	db       *sql.DB
	redis    *redis.Client
	sender   sms.Sender
	claimTTL time.Duration
}

// AlreadySent returns the users among userIDs that already have a reminder
// (message 5 or 6) logged on day. One query for the whole batch.
func (g *gate) AlreadySent(ctx context.Context, userIDs []int64, day time.Time) (map[int64]bool, error) {
	sent := make(map[int64]bool)
	if len(userIDs) == 0 {
		return sent, nil
	}

	rows, err := g.db.QueryContext(ctx, alreadySentQuery,
		database.Int64Array(userIDs),
		database.Int64Array(models.ReminderMessageIDs),
		timeutil.StartOfDay(day).Format(timeutil.DateTimeLayout),
		timeutil.EndOfDay(day).Format(timeutil.DateTimeLayout),
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("reminders_sent_today", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("reminders_sent_today", err)
		}
		sent[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("reminders_sent_today", err)
	}
	return sent, nil
}

func claimKey(day time.Time, userID int64) string {
	return "reminder:sent:" + day.Format(timeutil.DateLayout) + ":" + strconv.FormatInt(userID, 10)
}

// Claim narrows the window in which two overlapping runs could both send to
// the same user. Without Redis every claim succeeds.
func (g *gate) Claim(ctx context.Context, day time.Time, userID int64) (bool, error) {
	return database.Claim(ctx, g.redis, claimKey(day, userID), g.claimTTL)
}

func (g *gate) Release(ctx context.Context, day time.Time, userID int64) {
	_ = database.Release(ctx, g.redis, claimKey(day, userID))
}

// Send delivers one message. The error is nil only on Success; fatal gateway
// outcomes come back as ErrCodeSMSGatewayFatal.
func (g *gate) Send(ctx context.Context, mobile, content string) (sms.Result, error) {
	res, err := g.sender.Send(ctx, mobile, content)
	if err != nil {
		return res, apperrors.NewNotificationSendFailedError("sms", err)
	}
	return res, res.Err()
}

// Log appends the reminder to user_message_log and returns its id.
func (g *gate) Log(ctx context.Context, userID, messageID int64, content string) (int64, error) {
	var id int64
	err := g.db.QueryRowContext(ctx, insertMessageLogQuery, userID, messageID, content).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: user %d message %d", ErrAlreadyLogged, userID, messageID)
		}
		return 0, apperrors.NewDatabaseInsertFailedError("user_message_log", err)
	}
	return id, nil
}
