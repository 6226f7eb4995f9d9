// Package audit keeps an append-only trail of booking decisions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names an audit record kind.
type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingRejected  EventType = "booking.rejected"
	EventNLUFallback      EventType = "nlu.fallback"
)

// Event is an immutable audit record.
type Event struct {
	ID        string         `json:"id"`
	EventType EventType      `json:"event_type"`
	SessionID string         `json:"session_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Service writes audit events to audit_events. A nil Service or a Service
// without a database is a no-op.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	details := []byte("{}")
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("audit: failed to encode details: %w", err)
		}
		details = raw
	}

	query := `
		INSERT INTO audit_events (id, event_type, session_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.EventType),
		nullString(event.SessionID),
		details,
		event.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// Filter narrows QueryEvents.
type Filter struct {
	SessionID string
	EventType EventType
	Since     time.Time
	Limit     int
}

// QueryEvents returns matching events, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `
		SELECT id, event_type, session_id, details, created_at
		FROM audit_events
		WHERE 1=1
	`
	var args []any
	argIdx := 1
	if filter.SessionID != "" {
		query += fmt.Sprintf(" AND session_id = $%d", argIdx)
		args = append(args, filter.SessionID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, string(filter.EventType))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e         Event
			eventType string
			sessionID sql.NullString
			details   []byte
		)
		if err := rows.Scan(&e.ID, &eventType, &sessionID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.EventType = EventType(eventType)
		e.SessionID = sessionID.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("audit: failed to decode details: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
