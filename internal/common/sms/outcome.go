package sms

import (
	"strconv"
	"strings"

	apperrors "parking-jobs/internal/common/errors"
)

// Outcome is the closed set of results a gateway response can map to.
type Outcome int

const (
	Success Outcome = iota
	InvalidRecipient
	AuthFailure
	ServerError
	BalanceDepleted
	UnknownNegative
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case InvalidRecipient:
		return "invalid_recipient"
	case AuthFailure:
		return "auth_failure"
	case ServerError:
		return "server_error"
	case BalanceDepleted:
		return "balance_depleted"
	default:
		return "unknown_negative"
	}
}

// Fatal outcomes stop the remaining batch.
func (o Outcome) Fatal() bool {
	return o == AuthFailure || o == ServerError || o == BalanceDepleted
}

// ParseOutcome maps the gateway's plain text body to an Outcome. Anything that
// is not an integer is treated as an unknown rejection.
func ParseOutcome(body string) Outcome {
	code, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil {
		return UnknownNegative
	}
	switch {
	case code >= 0:
		return Success
	case code == -100:
		return AuthFailure
	case code == -300:
		return InvalidRecipient
	case code == -400 || code == -500:
		return ServerError
	case code == -600:
		return BalanceDepleted
	default:
		return UnknownNegative
	}
}

// Result is what a Sender reports for one message.
type Result struct {
	Outcome Outcome
	Raw     string
	Mobile  string
}

// Err converts a non-success result to the matching StandardError.
func (r Result) Err() error {
	switch {
	case r.Outcome == Success:
		return nil
	case r.Outcome == InvalidRecipient:
		return apperrors.NewSMSInvalidRecipientError(r.Mobile)
	case r.Outcome.Fatal():
		return apperrors.NewSMSGatewayFatalError(r.Outcome.String(), r.Raw)
	default:
		return apperrors.NewSMSGatewayRejectedError(r.Raw)
	}
}
