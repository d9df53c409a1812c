package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, HKT)
}

func TestRemainingDays(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{"last day of month", date(2024, time.January, 31), 0},
		{"leap february", date(2024, time.February, 24), 5},
		{"common february", date(2023, time.February, 21), 7},
		{"thirty day month", date(2024, time.April, 26), 4},
		{"first of month", date(2024, time.March, 1), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingDays(tt.in))
		})
	}
}

func TestMonthPeriod_NextUsesCalendarLength(t *testing.T) {
	p := MonthPeriod(date(2024, time.January, 31))
	assert.Equal(t, "2024-01-01", p.Start.Format(DateLayout))
	assert.Equal(t, "2024-01-31", p.End.Format(DateLayout))

	next := p.Next()
	assert.Equal(t, "2024-02-01", next.Start.Format(DateLayout))
	assert.Equal(t, "2024-02-29", next.End.Format(DateLayout))

	dec := MonthPeriod(date(2023, time.December, 15)).Next()
	assert.Equal(t, "2024-01-01", dec.Start.Format(DateLayout))
	assert.Equal(t, "2024-01-31", dec.End.Format(DateLayout))
}

func TestAddMonths_DoesNotOverflow(t *testing.T) {
	got := AddMonths(date(2024, time.March, 31), -1)
	assert.Equal(t, "2024-02-01", got.Format(DateLayout))
}

func TestDayWindow(t *testing.T) {
	ref := time.Date(2024, time.May, 10, 1, 0, 0, 0, time.UTC) // 09:00 HKT
	assert.Equal(t, "2024-05-10 00:00:00", StartOfDay(ref).Format(DateTimeLayout))
	assert.Equal(t, "2024-05-10 23:59:59", EndOfDay(ref).Format(DateTimeLayout))
	assert.Equal(t, "2024-05-10 05:00:00", At(ref, 5, 0).Format(DateTimeLayout))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-06-25")
	require.NoError(t, err)
	assert.Equal(t, HKT, got.Location())
	assert.Equal(t, 5, RemainingDays(got))

	_, err = ParseDate("25/06/2024")
	assert.Error(t, err)
}

func TestReference(t *testing.T) {
	fixed := time.Date(2024, time.July, 1, 2, 0, 0, 0, time.UTC)
	got, err := Reference("", func() time.Time { return fixed })
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01 10:00:00", got.Format(DateTimeLayout))

	got, err = Reference("2024-02-29", func() time.Time { return fixed })
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.Format(DateLayout))

	_, err = Reference("2024-02-30", time.Now)
	assert.Error(t, err)
}

func TestSetLocation_RejectsUnknownZone(t *testing.T) {
	before := HKT
	err := SetLocation("Nowhere/Special")
	assert.Error(t, err)
	assert.Same(t, before, HKT)
}
