package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// BookingNotifier emails booking confirmations to attendees.
type BookingNotifier struct {
	email  EmailSender
	logger *logging.Logger
	now    func() time.Time
}

func NewBookingNotifier(email EmailSender, logger *logging.Logger) *BookingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, logger: logger, now: time.Now}
}

// NotifyBooked sends one confirmation per attendee with the .ics invite
// attached. Failures are logged and never returned.
func (n *BookingNotifier) NotifyBooked(ctx context.Context, details *calendar.BookingDetails, description string, attendees []string) {
	if n == nil || n.email == nil || details == nil || len(attendees) == 0 {
		return
	}

	var attachments []Attachment
	invite, err := calendar.EncodeICS(details, description, n.now())
	if err != nil {
		n.logger.Warn("failed to build calendar invite", "error", err.Error(), "booking_id", details.BookingID)
	} else {
		attachments = append(attachments, Attachment{
			Filename:    "invite.ics",
			ContentType: "text/calendar",
			Content:     invite,
		})
	}

	subject := fmt.Sprintf("Confirmed: %s", details.Title)
	body := bookingBody(details)
	for _, to := range attendees {
		to = strings.TrimSpace(to)
		if to == "" {
			continue
		}
		if err := n.email.Send(ctx, EmailMessage{
			To:          to,
			Subject:     subject,
			Body:        body,
			Attachments: attachments,
			Tags: map[string]string{
				"kind":       "booking_confirmation",
				"booking_id": details.BookingID,
			},
		}); err != nil {
			n.logger.Error("failed to send booking confirmation", "error", err.Error(), "to", to, "booking_id", details.BookingID)
		}
	}
}

func bookingBody(details *calendar.BookingDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s is booked.\n\n", details.Title)
	fmt.Fprintf(&b, "When: %s to %s\n", details.StartTime.Format("Monday, January 2, 2006 at 03:04 PM MST"), details.EndTime.Format(calendar.DisplayLayout))
	if details.EventLink != "" {
		fmt.Fprintf(&b, "Calendar: %s\n", details.EventLink)
	}
	return b.String()
}
