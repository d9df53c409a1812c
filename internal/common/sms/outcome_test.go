package sms

import (
	"testing"

	apperrors "parking-jobs/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		body  string
		want  Outcome
		fatal bool
	}{
		{"0", Success, false},
		{"4123987", Success, false},
		{" 12\r\n", Success, false},
		{"-100", AuthFailure, true},
		{"-300", InvalidRecipient, false},
		{"-400", ServerError, true},
		{"-500", ServerError, true},
		{"-600", BalanceDepleted, true},
		{"-700", UnknownNegative, false},
		{"Service Unavailable", UnknownNegative, false},
		{"", UnknownNegative, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got := ParseOutcome(tt.body)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fatal, got.Fatal())
		})
	}
}

func TestResult_Err(t *testing.T) {
	assert.NoError(t, Result{Outcome: Success}.Err())

	err := Result{Outcome: InvalidRecipient, Raw: "-300", Mobile: "852123"}.Err()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSMSInvalidRecipient))
	assert.True(t, apperrors.IsPerItem(err))

	err = Result{Outcome: BalanceDepleted, Raw: "-600"}.Err()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSMSGatewayFatal))
	assert.False(t, apperrors.IsPerItem(err))

	err = Result{Outcome: UnknownNegative, Raw: "-42"}.Err()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSMSGatewayRejected))
	assert.True(t, apperrors.IsPerItem(err))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "balance_depleted", BalanceDepleted.String())
	assert.Equal(t, "unknown_negative", Outcome(99).String())
}
