// internal/models/contact.go
package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// UnpaidRental is one row of the eligibility result: a rental paid for the
// reference month whose user has not paid the following month.
type UnpaidRental struct {
	UserID      int64     `json:"userId"`
	RentalID    int64     `json:"rentalId"`
	CarparkID   int64     `json:"carparkId"`
	CarparkName string    `json:"carparkName"`
	StartDate   time.Time `json:"startDate"`
}

// ReminderContact is what the reminder job needs to pick and fill a template.
type ReminderContact struct {
	UserID                 int64
	Mobile                 string
	Name                   sql.NullString
	Email                  sql.NullString
	CarparkID              int64
	CarparkName            string
	PreferredPaymentMethod sql.NullInt64
	AcceptOnlinePayment    bool
	AcceptOctopusPayment   bool
	MonthlyRentRate        decimal.Decimal
	SpecialRate            decimal.NullDecimal
}

// Rate is the special rate when one is set, otherwise the vehicle type's
// monthly rate.
func (c ReminderContact) Rate() decimal.Decimal {
	return EffectiveRate(c.SpecialRate, c.MonthlyRentRate)
}

func (c ReminderContact) PrefersOctopus() bool {
	return c.PreferredPaymentMethod.Valid && PaymentMethod(c.PreferredPaymentMethod.Int64) == PaymentMethodOctopus
}

// SummaryContact is one line of the unpaid customer summary.
type SummaryContact struct {
	UserID            int64
	RentalID          int64
	CarparkName       string
	Mobile            string
	Name              sql.NullString
	Email             sql.NullString
	License           sql.NullString
	PaymentMethodName sql.NullString
	MonthlyRentRate   decimal.Decimal
	SpecialRate       decimal.NullDecimal
}

func (c SummaryContact) Rate() decimal.Decimal {
	return EffectiveRate(c.SpecialRate, c.MonthlyRentRate)
}

func EffectiveRate(special decimal.NullDecimal, standard decimal.Decimal) decimal.Decimal {
	if special.Valid {
		return special.Decimal
	}
	return standard
}

// IncompleteProfile is a user who registered for monthly parking but has
// neither a vehicle nor an Octopus card on file.
type IncompleteProfile struct {
	UserID int64
	Mobile string
}
