package paymentreminder

type Input struct {
	// ReferenceDate overrides today, YYYY-MM-DD in Hong Kong time.
	ReferenceDate string `json:"referenceDate,omitempty"`
	// Force runs the job even when today is not a reminder day.
	Force bool `json:"force,omitempty"`
}

type Output struct {
	RunID         string `json:"runId"`
	Date          string `json:"date"`
	RemainingDays int    `json:"remainingDays"`
	Due           bool   `json:"due"`
	Eligible      int    `json:"eligible"`
	Sent          int    `json:"sent"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Aborted       bool   `json:"aborted"`
	AbortReason   string `json:"abortReason,omitempty"`
	SummarySent   bool   `json:"summarySent"`
}

// SentReminder is one entry of the staff summary.
type SentReminder struct {
	UserID      int64
	CarparkID   int64
	CarparkName string
	LogID       int64
	Content     string
}
