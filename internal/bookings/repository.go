// Package bookings keeps a ledger of confirmed calendar bookings.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 50

// Record is one confirmed booking.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EventLink string    `json:"event_link,omitempty"`
	Attendees []string  `json:"attendees"`
	Simulated bool      `json:"simulated"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores booking records.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository writes to the bookings table.
type PostgresRepository struct {
	db  db
	now func() time.Time
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool, now: time.Now}
}

func newPostgresRepositoryWithDB(conn db) *PostgresRepository {
	if conn == nil {
		panic("bookings: db required")
	}
	return &PostgresRepository{db: conn, now: time.Now}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec, r.now)
	query := `
		INSERT INTO bookings (
			id, session_id, event_id, title, start_time, end_time,
			event_link, attendees, simulated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.Exec(ctx, query,
		rec.ID, rec.SessionID, rec.EventID, rec.Title, rec.StartTime, rec.EndTime,
		rec.EventLink, rec.Attendees, rec.Simulated, rec.CreatedAt,
	); err != nil {
		return Record{}, fmt.Errorf("bookings: insert: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, session_id, event_id, title, start_time, end_time,
			event_link, attendees, simulated, created_at
		FROM bookings
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.EventID, &rec.Title, &rec.StartTime, &rec.EndTime,
			&rec.EventLink, &rec.Attendees, &rec.Simulated, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list recent: %w", err)
	}
	return out, nil
}

// MemoryRepository is used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.StartTime.IsZero() {
		return Record{}, errors.New("bookings: start time required")
	}
	rec = prepare(rec, r.now)
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return rec, nil
}

func (r *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	r.mu.RLock()
	out := append([]Record(nil), r.records...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func prepare(rec Record, now func() time.Time) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now().UTC()
	}
	if rec.Attendees == nil {
		rec.Attendees = []string{}
	}
	return rec
}
