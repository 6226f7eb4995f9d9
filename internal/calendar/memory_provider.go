package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const simulatedLinkPrefix = "https://calendar.google.com/calendar/event?eid="

// MemoryProvider simulates a calendar in process memory. It backs the
// service when no real calendar is configured or the real one fails.
type MemoryProvider struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryProvider(seed ...Event) *MemoryProvider {
	p := &MemoryProvider{}
	p.events = append(p.events, seed...)
	return p
}

func (p *MemoryProvider) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Event
	for _, ev := range p.events {
		if ev.Overlaps(timeMin, timeMax) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (p *MemoryProvider) InsertEvent(ctx context.Context, event Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if event.ID == "" {
		event.ID = "sim-" + uuid.NewString()
	}
	if event.HTMLLink == "" {
		event.HTMLLink = simulatedLinkPrefix + event.ID
	}
	event.Attendees = append([]string(nil), event.Attendees...)

	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return event, nil
}

// Len returns the number of stored events.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.events)
}
