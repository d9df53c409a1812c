package incompleteprofile

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "parking-jobs/internal/common/errors"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/sms"
	"parking-jobs/internal/common/timeutil"
	"parking-jobs/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, mobile, message string) (sms.Result, error) {
	args := m.Called(ctx, mobile, message)
	return args.Get(0).(sms.Result), args.Error(1)
}

const welcome = "請登記車牌"

func newTestHandler(t *testing.T, sender sms.Sender) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(&Config{Timeout: time.Minute, CarparkID: 42, CutoffHour: 5}, db, sender, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, timeutil.HKT) }
	return h, dbMock
}

func expectMessage(dbMock sqlmock.Sqlmock) {
	dbMock.ExpectQuery(`SELECT content FROM message`).
		WithArgs(models.MessageIncompleteProfile).
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow(welcome))
}

func TestExecute_SendsAndLogs(t *testing.T) {
	sender := new(MockSender)
	h, dbMock := newTestHandler(t, sender)

	expectMessage(dbMock)
	dbMock.ExpectQuery(`SELECT DISTINCT m.user_id, m.number`).
		WithArgs("2024-06-03 05:00:00", models.MessageIncompleteProfile, int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "number"}).AddRow(1, "91111111").AddRow(2, "92222222"))
	dbMock.ExpectExec(`INSERT INTO user_message_log`).
		WithArgs(int64(1), models.MessageIncompleteProfile, welcome).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectExec(`INSERT INTO user_message_log`).
		WithArgs(int64(2), models.MessageIncompleteProfile, welcome).
		WillReturnResult(sqlmock.NewResult(2, 1))

	sender.On("Send", mock.Anything, "91111111", welcome).Return(sms.Result{Outcome: sms.Success, Raw: "10"}, nil)
	sender.On("Send", mock.Anything, "92222222", welcome).Return(sms.Result{Outcome: sms.Success, Raw: "11"}, nil)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Found)
	assert.Equal(t, 2, out.Sent)
	sender.AssertExpectations(t)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestExecute_InvalidRecipientIsNotLogged(t *testing.T) {
	sender := new(MockSender)
	h, dbMock := newTestHandler(t, sender)

	expectMessage(dbMock)
	dbMock.ExpectQuery(`SELECT DISTINCT m.user_id, m.number`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "number"}).AddRow(1, "91111111"))

	sender.On("Send", mock.Anything, "91111111", welcome).Return(sms.Result{Outcome: sms.InvalidRecipient, Raw: "-300"}, nil)

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Sent)
	assert.Equal(t, 1, out.Failed)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestExecute_FatalOutcomeAborts(t *testing.T) {
	sender := new(MockSender)
	h, dbMock := newTestHandler(t, sender)

	expectMessage(dbMock)
	dbMock.ExpectQuery(`SELECT DISTINCT m.user_id, m.number`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "number"}).AddRow(1, "91111111").AddRow(2, "92222222"))

	sender.On("Send", mock.Anything, "91111111", welcome).Return(sms.Result{Outcome: sms.AuthFailure, Raw: "-100"}, nil)

	out, err := h.Execute(context.Background(), &Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSMSGatewayFatal))
	assert.True(t, out.Aborted)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestExecute_TransportErrorContinues(t *testing.T) {
	sender := new(MockSender)
	h, dbMock := newTestHandler(t, sender)

	expectMessage(dbMock)
	dbMock.ExpectQuery(`SELECT DISTINCT m.user_id, m.number`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "number"}).AddRow(1, "91111111").AddRow(2, "bad"))

	sender.On("Send", mock.Anything, "91111111", welcome).Return(sms.Result{}, errors.New("dial tcp: timeout")).Once()

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Failed)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestExecute_NoUsers(t *testing.T) {
	sender := new(MockSender)
	h, dbMock := newTestHandler(t, sender)

	expectMessage(dbMock)
	dbMock.ExpectQuery(`SELECT DISTINCT m.user_id, m.number`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "number"}))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Found)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_MissingTemplate(t *testing.T) {
	h, dbMock := newTestHandler(t, new(MockSender))
	dbMock.ExpectQuery(`SELECT content FROM message`).WillReturnError(sql.ErrNoRows)

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTemplateNotFound))
}

func TestExecute_CarparkRequired(t *testing.T) {
	h, _ := newTestHandler(t, new(MockSender))
	h.config.CarparkID = 0

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
