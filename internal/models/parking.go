// internal/models/parking.go
package models

// PaymentMethod mirrors the payment_method table ids.
type PaymentMethod int

const (
	PaymentMethodOnline  PaymentMethod = 1
	PaymentMethodOctopus PaymentMethod = 2
)

// PaymentStatusPaid is the only payment status the billing jobs look at.
const PaymentStatusPaid = 2

// Well-known rows of the message table.
const (
	MessageIncompleteProfile int64 = 1
	MessageOctopusReminder   int64 = 5
	MessageCardReminder      int64 = 6
)

// ReminderMessageIDs are the templates that count towards the daily reminder limit.
var ReminderMessageIDs = []int64{MessageOctopusReminder, MessageCardReminder}
