// Package calendar lists open slots and books events against a calendar backend.
package calendar

import (
	"context"
	"errors"
	"time"
)

// DisplayLayout is how slot and booking times are rendered to users.
const DisplayLayout = "03:04 PM"

// ErrPastStart is returned when a booking starts at or before the current time.
var ErrPastStart = errors.New("calendar: start time is in the past")

// Event is a calendar entry as seen by the providers.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	HTMLLink    string
}

// Provider is the outbound calendar backend.
type Provider interface {
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, event Event) (Event, error)
}

// Slot is a candidate open interval offered to the user.
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Display   string    `json:"display"`
	Available bool      `json:"available"`
}

// NewSlot builds an available slot with its display string.
func NewSlot(start, end time.Time) Slot {
	return Slot{
		StartTime: start,
		EndTime:   end,
		Display:   start.Format(DisplayLayout),
		Available: true,
	}
}

// Overlaps reports whether [start, end) intersects the event.
func (e Event) Overlaps(start, end time.Time) bool {
	return start.Before(e.End) && end.After(e.Start)
}

type BookingDetails struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Title     string    `json:"title"`
	BookingID string    `json:"booking_id"`
	EventLink string    `json:"event_link"`
	Attendees []string  `json:"attendees,omitempty"`
	Simulated bool      `json:"simulated"`
}

// BookingResult is the outcome of a booking attempt. Failures carry a
// user-facing message rather than an error.
type BookingResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Details *BookingDetails `json:"booking_details,omitempty"`
}
