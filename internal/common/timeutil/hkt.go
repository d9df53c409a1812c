package timeutil

import (
	"time"
)

// HKT is the Hong Kong Time location (UTC+8). Every job reasons about
// calendar days in this zone.
var HKT *time.Location

func init() {
	var err error
	HKT, err = time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		HKT = time.FixedZone("HKT", 8*60*60)
	}
}

// SetLocation replaces HKT with the named zone. Called once at startup,
// before any job runs.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	HKT = loc
	return nil
}

// Now returns the current time in HKT
func Now() time.Time {
	return time.Now().In(HKT)
}

// ToHKT converts any time to HKT
func ToHKT(t time.Time) time.Time {
	return t.In(HKT)
}

// ParseDate parses a YYYY-MM-DD date as midnight HKT.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, HKT)
}

// StartOfDay returns the start of day (00:00:00) in HKT for the given time
func StartOfDay(t time.Time) time.Time {
	h := t.In(HKT)
	return time.Date(h.Year(), h.Month(), h.Day(), 0, 0, 0, 0, HKT)
}

// EndOfDay returns the last second of the day (23:59:59) in HKT. The message
// log window is closed on both ends, so sub-second precision is dropped.
func EndOfDay(t time.Time) time.Time {
	h := t.In(HKT)
	return time.Date(h.Year(), h.Month(), h.Day(), 23, 59, 59, 0, HKT)
}

// At returns the given wall clock time on t's HKT day.
func At(t time.Time, hour, min int) time.Time {
	h := t.In(HKT)
	return time.Date(h.Year(), h.Month(), h.Day(), hour, min, 0, 0, HKT)
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	h := t.In(HKT)
	return time.Date(h.Year(), h.Month(), 1, 0, 0, 0, 0, HKT)
}

// LastOfMonth returns midnight on the last calendar day of t's month.
func LastOfMonth(t time.Time) time.Time {
	return FirstOfMonth(t).AddDate(0, 1, -1)
}

// AddMonths shifts the first of t's month by n months. It never overflows into
// the following month the way AddDate does on the 31st.
func AddMonths(t time.Time, n int) time.Time {
	return FirstOfMonth(t).AddDate(0, n, 0)
}

// RemainingDays is the number of whole days left in t's month after t's day.
// It is 0 on the last day of the month.
func RemainingDays(t time.Time) int {
	return LastOfMonth(t).Day() - t.In(HKT).Day()
}

// Period is a closed range of calendar days.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the billing period of t's month.
func MonthPeriod(t time.Time) Period {
	return Period{Start: FirstOfMonth(t), End: LastOfMonth(t)}
}

// Next returns the billing period one calendar month later.
func (p Period) Next() Period {
	return MonthPeriod(AddMonths(p.Start, 1))
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Reference returns the parsed date when value is set, otherwise now in HKT.
func Reference(value string, now func() time.Time) (time.Time, error) {
	if value == "" {
		return now().In(HKT), nil
	}
	return ParseDate(value)
}
