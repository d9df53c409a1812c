package jobs

import (
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/timeutil"
	paymentreminder "parking-jobs/internal/workers/billing/payment-reminder"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type arrayArg string

func (a arrayArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s == string(a)
}

type recordingMailer struct {
	subjects []string
}

func (m *recordingMailer) Send(_ context.Context, _, subject, _ string) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

// TestPaymentReminderThroughGateway drives a reminder run through the
// registry against a stub OneWaySMS endpoint.
func TestPaymentReminderThroughGateway(t *testing.T) {
	var (
		mu       sync.Mutex
		mobiles  []string
		messages []string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		mobiles = append(mobiles, r.URL.Query().Get("mobileno"))
		messages = append(messages, r.URL.Query().Get("message"))
		mu.Unlock()
		_, _ = w.Write([]byte("20240126001"))
	}))
	defer gateway.Close()

	cfg := testConfig()
	cfg.Dev.Enabled = false
	cfg.SMS.Provider = "onewaysms"
	cfg.SMS.Endpoint = gateway.URL
	cfg.SMS.SenderID = "Uvision"
	cfg.SMS.LanguageType = 2
	cfg.SMS.Timeout = 5000
	cfg.Billing.BaseURL = "https://upark.example"
	cfg.Email.SummaryEmail = "staff@example.com"

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT content FROM message`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("{carpark_name}{days}{amount} {payment_link}"))
	mock.ExpectQuery(`SELECT content FROM message`).WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow("{carpark_name}{days}{amount} {payment_link}"))
	mock.ExpectQuery(`SELECT carpark_id FROM carpark_config`).
		WithArgs(arrayArg("{}")).
		WillReturnRows(sqlmock.NewRows([]string{"carpark_id"}).AddRow(3))
	mock.ExpectQuery(`SELECT DISTINCT r.user_id, r.id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "id", "carpark_id", "name", "start_date"}).
			AddRow(21, 210, 3, "Tai Po", time.Date(2024, 1, 1, 0, 0, 0, 0, timeutil.HKT)))
	mock.ExpectQuery(`SELECT DISTINCT r.user_id\s+FROM user_carpark_rental`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`SELECT DISTINCT user_id FROM user_message_log`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`FROM mobile m`).WithArgs(int64(21), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"number", "name", "id", "name", "email", "preferred_payment_method",
			"monthly_rent_rate", "accept_online_payment", "accept_octopus_payment", "special_rate",
		}).AddRow("61234567", "Tai Po", 3, "Wong", nil, nil, "2800", true, false, nil))
	mock.ExpectExec(`INSERT INTO user_login_token`).
		WithArgs(int64(21), sqlmock.AnyArg(), "2024-02-01").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`INSERT INTO user_message_log`).
		WithArgs(int64(21), int64(6), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(501))

	log := logger.NewTestLogger(t)
	sender, err := NewSender(context.Background(), cfg, log)
	require.NoError(t, err)
	mailer := &recordingMailer{}

	r := NewRegistry(Deps{Config: cfg, DB: db, Sender: sender, Mailer: mailer, Logger: log})
	job, ok := r.Get(paymentreminder.TaskType)
	require.True(t, ok)

	out, err := job.Run(context.Background(), Options{ReferenceDate: "2024-01-26"})
	require.NoError(t, err)

	result := out.(*paymentreminder.Output)
	assert.Equal(t, 1, result.Sent)
	assert.True(t, result.SummarySent)

	require.Len(t, mobiles, 1)
	assert.Equal(t, "85261234567", mobiles[0])
	assert.Contains(t, messages[0], "Tai Po車場就快$2800 https://upark.example/portal/payment/?tk=")
	assert.Equal(t, []string{"1 SMS payment reminders sent on 2024-01-26"}, mailer.subjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}
