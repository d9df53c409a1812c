package unpaidsummary

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type arrayArg string

func (a arrayArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s == string(a)
}

var contactCols = []string{"number", "name", "name", "email", "license", "name_cn", "monthly_rent_rate", "special_rate"}

type fakeMailer struct {
	to, subject, body string
	calls             int
	err               error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func newTestHandler(t *testing.T, db *sql.DB, mailer Mailer, today string) *Handler {
	t.Helper()
	day, err := timeutil.ParseDate(today)
	require.NoError(t, err)

	h := NewHandler(&Config{Timeout: time.Minute, SummaryDays: []int{4}, StaffEmail: "staff@example.com"}, db, mailer, logger.NewTestLogger(t))
	h.now = func() time.Time { return day.Add(8 * time.Hour) }
	return h
}

func TestExecute_GroupsByCarpark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT carpark_id FROM carpark_config`).
		WillReturnRows(sqlmock.NewRows([]string{"carpark_id"}).AddRow(1).AddRow(2))
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, timeutil.HKT)
	mock.ExpectQuery(`SELECT DISTINCT r.user_id, r.id`).
		WithArgs(models.PaymentStatusPaid, arrayArg("{1,2}"), "2024-02-01", "2024-02-29").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "id", "carpark_id", "name", "start_date"}).
			AddRow(10, 100, 1, "Alpha", start).
			AddRow(11, 101, 1, "Alpha", start).
			AddRow(12, 102, 2, "Beta", start).
			AddRow(13, 103, 2, "Beta", start))
	mock.ExpectQuery(`SELECT DISTINCT r.user_id\s+FROM user_carpark_rental`).
		WithArgs(models.PaymentStatusPaid, arrayArg("{10,11,12,13}"), "2024-03-01", "2024-03-31").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	mock.ExpectQuery(`FROM mobile m`).WithArgs(int64(10), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactCols).AddRow("91111111", "Alpha", "Chan", nil, "AB123", "八達通", "2500", nil))
	mock.ExpectQuery(`FROM mobile m`).WithArgs(int64(11), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactCols).AddRow("92222222", "Alpha", nil, "w@example.com", nil, nil, "2500", "1800"))
	mock.ExpectQuery(`FROM mobile m`).WithArgs(int64(12), int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM mobile m`).WithArgs(int64(13), int64(2)).
		WillReturnRows(sqlmock.NewRows(contactCols).AddRow("93333333", "Beta", "Lee", nil, "CD9", nil, "3000", nil))

	mailer := &fakeMailer{}
	h := newTestHandler(t, db, mailer, "2024-03-01")

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Unpaid)
	assert.Equal(t, 3, out.Listed)
	assert.Equal(t, 1, out.Missing)
	assert.Equal(t, 2, out.Carparks)
	assert.True(t, out.EmailSent)

	assert.Equal(t, "staff@example.com", mailer.to)
	assert.Equal(t, "沒有支付2024年03月租金的月租客", mailer.subject)
	assert.Contains(t, mailer.body, "現在有3個月租客還沒付3月的租金")
	assert.Contains(t, mailer.body, "<h3>Alpha車場沒付款的客：</h3>")
	assert.Contains(t, mailer.body, "<h3>Beta車場沒付款的客：</h3>")
	assert.Contains(t, mailer.body, "$1800.00")
	assert.Contains(t, mailer.body, "$2500.00")
	assert.Contains(t, mailer.body, "八達通")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_NothingToReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT carpark_id FROM carpark_config`).
		WillReturnRows(sqlmock.NewRows([]string{"carpark_id"}))

	mailer := &fakeMailer{}
	h := newTestHandler(t, db, mailer, "2024-03-01")

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.EmailSent)
	assert.Equal(t, 0, mailer.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_MailFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, timeutil.HKT)
	mock.ExpectQuery(`SELECT carpark_id FROM carpark_config`).
		WillReturnRows(sqlmock.NewRows([]string{"carpark_id"}).AddRow(1))
	mock.ExpectQuery(`SELECT DISTINCT r.user_id, r.id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "id", "carpark_id", "name", "start_date"}).AddRow(10, 100, 1, "Alpha", start))
	mock.ExpectQuery(`SELECT DISTINCT r.user_id\s+FROM user_carpark_rental`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`FROM mobile m`).
		WillReturnRows(sqlmock.NewRows(contactCols).AddRow("91111111", "Alpha", "Chan", nil, nil, nil, "2500", nil))

	h := newTestHandler(t, db, &fakeMailer{err: errors.New("ses down")}, "2024-03-27")

	out, err := h.Execute(context.Background(), &Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
	assert.False(t, out.EmailSent)
}

func TestConfig_Due(t *testing.T) {
	cfg := &Config{SummaryDays: []int{4}}
	tests := []struct {
		date string
		want bool
	}{
		{"2024-03-01", true},
		{"2024-03-27", true},
		{"2024-02-25", true},
		{"2024-03-15", false},
		{"2024-03-31", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := timeutil.ParseDate(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Due(d))
		})
	}
}

func TestExecute_NotDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := newTestHandler(t, db, &fakeMailer{}, "2024-03-15")
	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.Due)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenderReport_EscapesAndDashes(t *testing.T) {
	body, err := renderReport([]models.SummaryContact{{
		UserID:          1,
		RentalID:        2,
		CarparkName:     "<Alpha>",
		Mobile:          "91234567",
		MonthlyRentRate: decimal.NewFromInt(900),
	}}, time.Date(2024, 5, 1, 0, 0, 0, 0, timeutil.HKT))
	require.NoError(t, err)

	assert.Contains(t, body, "&lt;Alpha&gt;車場")
	assert.Contains(t, body, "$900.00")
	assert.Contains(t, body, `<td style="border: 1px solid;">--</td>`)
	assert.Contains(t, body, "還沒付5月的租金")
}
