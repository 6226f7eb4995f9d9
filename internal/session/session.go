// Package session keeps per-conversation dialogue state.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
)

// DefaultID is used when a client does not send a session id.
const DefaultID = "default"

// ErrNotFound is returned by Load for unknown session ids.
var ErrNotFound = errors.New("session: not found")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExtractedInfo is the scheduling detail pulled from a user message.
type ExtractedInfo struct {
	HasTimeInfo bool   `json:"has_time_info"`
	Day         string `json:"day,omitempty"`
	Time        string `json:"time,omitempty"`
	Type        string `json:"type,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// Session is the conversation state for one id. Offered slot indices are only
// meaningful within the session that produced them.
type Session struct {
	ID               string                   `json:"id"`
	Messages         []Message                `json:"messages"`
	LastIntent       string                   `json:"last_intent,omitempty"`
	LastExtracted    *ExtractedInfo           `json:"last_extracted,omitempty"`
	OfferedSlots     []calendar.Slot          `json:"offered_slots,omitempty"`
	BookingConfirmed bool                     `json:"booking_confirmed"`
	LastBooking      *calendar.BookingDetails `json:"last_booking,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// New returns an empty session for id.
func New(id string, now time.Time) *Session {
	return &Session{ID: NormalizeID(id), CreatedAt: now, UpdatedAt: now}
}

// NormalizeID trims id and substitutes DefaultID for blanks.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultID
	}
	return id
}

// Append adds a message to the history.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.OfferedSlots = append([]calendar.Slot(nil), s.OfferedSlots...)
	if s.LastExtracted != nil {
		info := *s.LastExtracted
		out.LastExtracted = &info
	}
	if s.LastBooking != nil {
		booking := *s.LastBooking
		booking.Attendees = append([]string(nil), s.LastBooking.Attendees...)
		out.LastBooking = &booking
	}
	return &out
}

// Store persists sessions.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
