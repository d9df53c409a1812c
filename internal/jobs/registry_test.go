package jobs

import (
	"context"
	"testing"

	"parking-jobs/internal/common/config"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/sms"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Billing.ReminderDays = []int{5, 7}
	cfg.Billing.SummaryDays = []int{4}
	cfg.Maintenance.TokenGraceDays = 7
	cfg.Maintenance.UserRetentionDays = 14
	cfg.SMS.CountryCode = "852"
	cfg.Dev.Enabled = true
	cfg.Dev.TestMobile = "91234567"
	return cfg
}

func TestNewRegistry_RegistersEveryJob(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := logger.NewTestLogger(t)
	sender, err := NewSender(context.Background(), testConfig(), log)
	require.NoError(t, err)

	r := NewRegistry(Deps{
		Config:  testConfig(),
		DB:      db,
		Sender:  sender,
		Mailer:  nopMailer{},
		Connect: NewConnector(config.MQTTConfig{}),
		Logger:  log,
	})

	var names []string
	for _, j := range r.All() {
		names = append(names, j.TaskType)
		assert.NotNil(t, j.Run, j.TaskType)
		assert.NotNil(t, j.Handle, j.TaskType)
		assert.NotEmpty(t, j.Description, j.TaskType)
	}
	assert.Equal(t, []string{
		"account-cleanup",
		"ev-transaction-closer",
		"incomplete-profile",
		"payment-reminder",
		"unpaid-summary",
	}, names)

	_, ok := r.Get("payment-reminder")
	assert.True(t, ok)
	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestNewSender_DevModeUsesMock(t *testing.T) {
	sender, err := NewSender(context.Background(), testConfig(), logger.NewTestLogger(t))
	require.NoError(t, err)

	_, ok := sender.(*sms.MockSender)
	assert.True(t, ok)

	res, err := sender.Send(context.Background(), "98765432", "hello")
	require.NoError(t, err)
	assert.Equal(t, "85291234567", res.Mobile)
}

func TestNewSender_OneWay(t *testing.T) {
	cfg := testConfig()
	cfg.Dev.Enabled = false
	cfg.SMS.Provider = "onewaysms"

	sender, err := NewSender(context.Background(), cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	_, ok := sender.(*sms.OneWayGateway)
	assert.True(t, ok)
}

func TestNewSender_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Dev.Enabled = false
	cfg.SMS.Provider = "fax"

	_, err := NewSender(context.Background(), cfg, logger.NewNoOpLogger())
	assert.Error(t, err)
}
