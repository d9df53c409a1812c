package paymentreminder

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"parking-jobs/internal/common/timeutil"
)

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

func summarySubject(count int, day time.Time) string {
	return fmt.Sprintf("%d SMS payment reminders sent on %s", count, day.Format(timeutil.DateLayout))
}

func summaryBody(sent []SentReminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d SMS payment reminders sent to the following users:<br/><br/>", len(sent))
	for _, s := range sent {
		fmt.Fprintf(&b, "User ID: %d for %s - carpark_id: %d - user_msg_log_id - %d<br/>Message: %s<br/><br/><hr/><br/>",
			s.UserID,
			html.EscapeString(s.CarparkName+carparkSuffix),
			s.CarparkID,
			s.LogID,
			html.EscapeString(s.Content),
		)
	}
	return b.String()
}

// sendSummary mails the run log to staff. Nothing is sent for an empty run.
func (h *Handler) sendSummary(ctx context.Context, sent []SentReminder, day time.Time) (bool, error) {
	if len(sent) == 0 {
		return false, nil
	}
	if err := h.mailer.Send(ctx, h.config.SummaryEmail, summarySubject(len(sent), day), summaryBody(sent)); err != nil {
		return false, err
	}
	return true, nil
}
