package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateMessageLog      ErrorCode = "DUPLICATE_MESSAGE_LOG"

	ErrCodeContactNotFound  ErrorCode = "CONTACT_NOT_FOUND"
	ErrCodeNoPaymentMethod  ErrorCode = "NO_PAYMENT_METHOD"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidContact   ErrorCode = "INVALID_CONTACT"

	ErrCodeSMSInvalidRecipient ErrorCode = "SMS_INVALID_RECIPIENT"
	ErrCodeSMSGatewayFatal     ErrorCode = "SMS_GATEWAY_FATAL"
	ErrCodeSMSGatewayRejected  ErrorCode = "SMS_GATEWAY_REJECTED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeBrokerPublishFailed    ErrorCode = "BROKER_PUBLISH_FAILED"
	ErrCodeInvalidInput           ErrorCode = "INVALID_INPUT"
)

// StandardError is the error shape shared by every job. Per-item codes are
// logged and skipped, the rest end the run.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true, err)
}

func NewDatabaseInsertFailedError(table string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed",
		fmt.Sprintf("table: %s, error: %s", table, err.Error()), true, err)
}

func NewDuplicateMessageLogError(userID, messageID int64) *StandardError {
	return newError(ErrCodeDuplicateMessageLog, "Message already logged today",
		fmt.Sprintf("userId: %d, messageId: %d", userID, messageID), false, nil)
}

func NewContactNotFoundError(userID, carparkID int64) *StandardError {
	return newError(ErrCodeContactNotFound, "No verified contact found",
		fmt.Sprintf("userId: %d, carparkId: %d", userID, carparkID), false, nil)
}

func NewNoPaymentMethodError(carparkID int64) *StandardError {
	return newError(ErrCodeNoPaymentMethod, "Carpark accepts neither Octopus nor online payment",
		fmt.Sprintf("carparkId: %d", carparkID), false, nil)
}

func NewTemplateNotFoundError(messageID int64) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Message template not found",
		fmt.Sprintf("messageId: %d", messageID), false, nil)
}

func NewInvalidContactError(details string) *StandardError {
	return newError(ErrCodeInvalidContact, "Contact data failed validation", details, false, nil)
}

func NewSMSInvalidRecipientError(mobile string) *StandardError {
	return newError(ErrCodeSMSInvalidRecipient, "SMS gateway rejected the mobile number",
		fmt.Sprintf("mobile: %s", mobile), false, nil)
}

func NewSMSGatewayFatalError(outcome, raw string) *StandardError {
	return newError(ErrCodeSMSGatewayFatal, "SMS gateway returned a fatal status",
		fmt.Sprintf("outcome: %s, response: %s", outcome, raw), false, nil)
}

func NewSMSGatewayRejectedError(raw string) *StandardError {
	return newError(ErrCodeSMSGatewayRejected, "SMS gateway returned an unknown negative status",
		fmt.Sprintf("response: %s", raw), false, nil)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true, err)
}

func NewBrokerPublishFailedError(topic string, err error) *StandardError {
	return newError(ErrCodeBrokerPublishFailed, "Broker publish failed",
		fmt.Sprintf("topic: %s, error: %s", topic, err.Error()), true, err)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseInsertFailed:     "DATABASE_INSERT_FAILED",
	ErrCodeDuplicateMessageLog:      "DUPLICATE_MESSAGE_LOG",
	ErrCodeContactNotFound:          "CONTACT_NOT_FOUND",
	ErrCodeNoPaymentMethod:          "NO_PAYMENT_METHOD",
	ErrCodeTemplateNotFound:         "TEMPLATE_NOT_FOUND",
	ErrCodeInvalidContact:           "INVALID_CONTACT",
	ErrCodeSMSInvalidRecipient:      "SMS_INVALID_RECIPIENT",
	ErrCodeSMSGatewayFatal:          "SMS_GATEWAY_FATAL",
	ErrCodeSMSGatewayRejected:       "SMS_GATEWAY_REJECTED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeBrokerPublishFailed:      "BROKER_PUBLISH_FAILED",
	ErrCodeInvalidInput:             "INVALID_INPUT",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed:
		return 3

	case ErrCodeNotificationSendFailed,
		ErrCodeBrokerPublishFailed:
		return 2

	default:
		return 0 // business errors and fatal gateway states: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsPerItem reports whether an error only concerns a single user or row, so
// the batch can carry on with the next one.
func IsPerItem(err error) bool {
	var stdErr *StandardError
	if !stderrors.As(err, &stdErr) {
		return false
	}
	switch stdErr.Code {
	case ErrCodeContactNotFound,
		ErrCodeNoPaymentMethod,
		ErrCodeInvalidContact,
		ErrCodeSMSInvalidRecipient,
		ErrCodeSMSGatewayRejected,
		ErrCodeDuplicateMessageLog:
		return true
	}
	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "SMS"):
		return "SMS"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "LOG"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "BROKER"):
		return "BROKER"
	case strings.Contains(codeStr, "CONTACT") || strings.Contains(codeStr, "PAYMENT") || strings.Contains(codeStr, "TEMPLATE"):
		return "DATA"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
