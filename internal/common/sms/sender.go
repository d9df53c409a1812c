package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"parking-jobs/internal/common/config"
	httpclient "parking-jobs/internal/common/http"
	"parking-jobs/internal/common/logger"
	"parking-jobs/internal/common/metrics"
)

// Sender delivers one text message to a local mobile number. The returned
// error is reserved for transport failures; gateway rejections come back as
// a Result with a non-success Outcome.
type Sender interface {
	Send(ctx context.Context, mobile, message string) (Result, error)
}

// OneWayGateway talks to the OneWaySMS HTTP API.
type OneWayGateway struct {
	cfg    config.SMSConfig
	client *httpclient.Client
}

func NewOneWayGateway(cfg config.SMSConfig, client *httpclient.Client) *OneWayGateway {
	return &OneWayGateway{cfg: cfg, client: client}
}

func (g *OneWayGateway) Send(ctx context.Context, mobile, message string) (Result, error) {
	full := g.cfg.CountryCode + mobile

	params := url.Values{}
	params.Set("apiusername", g.cfg.APIUsername)
	params.Set("apipassword", g.cfg.APIPassword)
	params.Set("senderid", g.cfg.SenderID)
	params.Set("languagetype", strconv.Itoa(g.cfg.LanguageType))
	params.Set("mobileno", full)
	params.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build sms request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read sms gateway response: %w", err)
	}

	raw := strings.TrimSpace(string(body))
	result := Result{Outcome: ParseOutcome(raw), Raw: raw, Mobile: full}
	metrics.SMSOutcomes.WithLabelValues(result.Outcome.String()).Inc()
	return result, nil
}

// MockSender logs instead of sending. Used in dev mode, where every message
// is addressed to the configured test number.
type MockSender struct {
	logger      logger.Logger
	countryCode string
	testMobile  string
}

func NewMockSender(log logger.Logger, countryCode, testMobile string) *MockSender {
	return &MockSender{logger: log, countryCode: countryCode, testMobile: testMobile}
}

func (m *MockSender) Send(_ context.Context, mobile, message string) (Result, error) {
	to := m.countryCode + m.testMobile
	m.logger.Info("mock sms sent", map[string]interface{}{
		"mobile":         to,
		"originalMobile": mobile,
		"message":        message,
	})
	return Result{Outcome: Success, Raw: "0", Mobile: to}, nil
}
