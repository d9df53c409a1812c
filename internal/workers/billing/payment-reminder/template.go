package paymentreminder

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"
)

// octopusOnlyContent replaces template 5 for carparks that take Octopus but
// not online payment; those customers have no payment link to follow.
const octopusOnlyContent = "「{carpark_name}」你的月租車位{days}會過期了。請盡快去停車場用已登記八達通卡繳付下個月{amount}的租金。多謝支持。"

const (
	carparkSuffix   = "車場"
	daysTomorrow    = "聽日"
	daysSoon        = "就快"
	paymentLinkPath = "/portal/payment/?tk="

	tokenLength   = 8
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

const (
	templateQuery    = `SELECT content FROM message WHERE id = $1`
	insertTokenQuery = `INSERT INTO user_login_token (user_id, token, expires) VALUES ($1, $2, $3)`
)

// Selection is the outcome of the decision table for one contact.
type Selection struct {
	MessageID int64
	Content   string
	Fallback  bool
}

// Templates holds the two stored reminder templates for a run.
type Templates struct {
	Octopus string
	Card    string
}

func loadTemplates(ctx context.Context, db *sql.DB) (*Templates, error) {
	load := func(id int64) (string, error) {
		var content string
		err := db.QueryRowContext(ctx, templateQuery, id).Scan(&content)
		if err == sql.ErrNoRows {
			return "", apperrors.NewTemplateNotFoundError(id)
		}
		if err != nil {
			return "", apperrors.NewQueryExecutionFailedError("message_template", err)
		}
		return content, nil
	}

	octopus, err := load(models.MessageOctopusReminder)
	if err != nil {
		return nil, err
	}
	card, err := load(models.MessageCardReminder)
	if err != nil {
		return nil, err
	}
	return &Templates{Octopus: octopus, Card: card}, nil
}

// Select applies the payment method decision table. First match wins:
//
//	online and Octopus, prefers Octopus -> 5
//	online and Octopus, otherwise       -> 6
//	online only                         -> 6
//	Octopus only                        -> 5, fixed wording
//	neither                             -> ErrCodeNoPaymentMethod
func (t *Templates) Select(c models.ReminderContact) (Selection, error) {
	switch {
	case c.AcceptOnlinePayment && c.AcceptOctopusPayment:
		if c.PrefersOctopus() {
			return Selection{MessageID: models.MessageOctopusReminder, Content: t.Octopus}, nil
		}
		return Selection{MessageID: models.MessageCardReminder, Content: t.Card}, nil
	case c.AcceptOnlinePayment:
		return Selection{MessageID: models.MessageCardReminder, Content: t.Card}, nil
	case c.AcceptOctopusPayment:
		return Selection{MessageID: models.MessageOctopusReminder, Content: octopusOnlyContent, Fallback: true}, nil
	default:
		return Selection{}, apperrors.NewNoPaymentMethodError(c.CarparkID)
	}
}

// renderer fills placeholders. Rendering mints and stores a login token for
// the payment link, so it is not side effect free.
type renderer struct {
	db       *sql.DB
	baseURL  string
	newToken func() (string, error)
}

func (r *renderer) Render(ctx context.Context, c models.ReminderContact, content string, today time.Time) (string, error) {
	remaining := timeutil.RemainingDays(today)

	content = strings.ReplaceAll(content, "{carpark_name}", c.CarparkName+carparkSuffix)

	days := daysSoon
	if remaining == 0 {
		days = daysTomorrow
	}
	content = strings.ReplaceAll(content, "{days}", days)

	content = strings.ReplaceAll(content, "{amount}", FormatAmount(c))

	token, err := r.newToken()
	if err != nil {
		return "", fmt.Errorf("generate login token: %w", err)
	}
	expires := timeutil.StartOfDay(today).AddDate(0, 0, remaining+1)
	if _, err := r.db.ExecContext(ctx, insertTokenQuery, c.UserID, token, expires.Format(timeutil.DateLayout)); err != nil {
		return "", apperrors.NewDatabaseInsertFailedError("user_login_token", err)
	}

	content = strings.ReplaceAll(content, "{payment_link}", r.baseURL+paymentLinkPath+token)
	return content, nil
}

// FormatAmount renders the applicable monthly rate as whole dollars.
func FormatAmount(c models.ReminderContact) string {
	return "$" + c.Rate().StringFixed(0)
}

// NewToken returns tokenLength characters drawn from tokenAlphabet with
// crypto/rand.
func NewToken() (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, tokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
