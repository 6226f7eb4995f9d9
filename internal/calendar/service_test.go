package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

type failingProvider struct {
	listCalls   int
	insertCalls int
}

func (f *failingProvider) ListEvents(context.Context, time.Time, time.Time) ([]Event, error) {
	f.listCalls++
	return nil, errors.New("backend unavailable")
}

func (f *failingProvider) InsertEvent(context.Context, Event) (Event, error) {
	f.insertCalls++
	return Event{}, errors.New("backend unavailable")
}

type recordingProvider struct {
	events   []Event
	inserted []Event
}

func (r *recordingProvider) ListEvents(_ context.Context, min, max time.Time) ([]Event, error) {
	var out []Event
	for _, ev := range r.events {
		if ev.Overlaps(min, max) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *recordingProvider) InsertEvent(_ context.Context, ev Event) (Event, error) {
	ev.ID = "evt-1"
	ev.HTMLLink = "https://calendar.example/evt-1"
	r.inserted = append(r.inserted, ev)
	return ev, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func newTestService(primary Provider, sim *MemoryProvider, now time.Time) *Service {
	return NewService(primary, sim, Options{
		WorkingHoursStart: 9,
		WorkingHoursEnd:   17,
		StepMinutes:       30,
		MaxSlots:          5,
		Location:          time.UTC,
		Now:               fixedClock(now),
		Logger:            logging.Discard(),
	})
}

func TestListAvailableSlots_FreeDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(nil, nil, now)

	slots := svc.ListAvailableSlots(context.Background(), now.AddDate(0, 0, 1), 60)
	require.Len(t, slots, 5)
	assert.Equal(t, at(now.AddDate(0, 0, 1), 9, 0), slots[0].StartTime)
	assert.Equal(t, at(now.AddDate(0, 0, 1), 10, 0), slots[0].EndTime)
	assert.Equal(t, "09:00 AM", slots[0].Display)
	assert.True(t, slots[0].Available)
	assert.Equal(t, at(now.AddDate(0, 0, 1), 9, 30), slots[1].StartTime)
}

func TestListAvailableSlots_NeverInThePast(t *testing.T) {
	now := time.Date(2026, 3, 2, 13, 10, 0, 0, time.UTC)
	svc := newTestService(nil, nil, now)

	slots := svc.ListAvailableSlots(context.Background(), now, 30)
	require.NotEmpty(t, slots)
	for _, slot := range slots {
		assert.True(t, slot.StartTime.After(now), "slot %s starts before now", slot.Display)
	}
	assert.Equal(t, at(now, 13, 30), slots[0].StartTime)
}

func TestListAvailableSlots_SkipsConflicts(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	day := now.AddDate(0, 0, 1)
	primary := &recordingProvider{events: []Event{
		{ID: "busy", Start: at(day, 9, 0), End: at(day, 11, 0)},
	}}
	svc := newTestService(primary, nil, now)

	slots := svc.ListAvailableSlots(context.Background(), day, 60)
	require.NotEmpty(t, slots)
	assert.Equal(t, at(day, 11, 0), slots[0].StartTime)
	for _, slot := range slots {
		assert.False(t, slot.StartTime.Before(at(day, 11, 0)) && slot.EndTime.After(at(day, 9, 0)))
	}
}

func TestListAvailableSlots_EndOfDayBoundary(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 45, 0, 0, time.UTC)
	svc := newTestService(nil, nil, now)

	slots := svc.ListAvailableSlots(context.Background(), now, 60)
	require.Len(t, slots, 1)
	assert.Equal(t, at(now, 16, 0), slots[0].StartTime)
	assert.Equal(t, at(now, 17, 0), slots[0].EndTime)

	assert.Empty(t, svc.ListAvailableSlots(context.Background(), now, 120))
}

func TestListAvailableSlots_FallsBackToSimulation(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	day := now.AddDate(0, 0, 1)
	sim := NewMemoryProvider(Event{ID: "sim-busy", Start: at(day, 9, 0), End: at(day, 10, 0)})
	primary := &failingProvider{}
	reg := prometheus.NewRegistry()
	svc := NewService(primary, sim, Options{
		Now:     fixedClock(now),
		Logger:  logging.Discard(),
		Metrics: metrics.NewAgentMetrics(reg),
	})

	slots := svc.ListAvailableSlots(context.Background(), day, 60)
	require.NotEmpty(t, slots)
	assert.Equal(t, 1, primary.listCalls)
	assert.Equal(t, at(day, 10, 0), slots[0].StartTime)
}

func TestCreateEvent_RejectsPastStart(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	primary := &recordingProvider{}
	svc := newTestService(primary, nil, now)

	for _, start := range []time.Time{now, now.Add(-time.Hour)} {
		res := svc.CreateEvent(context.Background(), "Call", start, start.Add(time.Hour), "", nil)
		assert.False(t, res.Success)
		assert.Nil(t, res.Details)
		assert.Contains(t, res.Message, "is in the past. Please choose a future time.")
	}
	assert.Empty(t, primary.inserted)
	assert.Equal(t, "Sorry, 02:00 PM is in the past. Please choose a future time.", PastTimeMessage(now))
}

func TestCreateEvent_Success(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	primary := &recordingProvider{}
	svc := newTestService(primary, nil, now)
	start := at(now, 14, 0)

	res := svc.CreateEvent(context.Background(), "Call - 02:00 PM", start, start.Add(time.Hour), "Booked via Calendar Agent - call", []string{"a@example.com"})
	require.True(t, res.Success)
	assert.Equal(t, "Event 'Call - 02:00 PM' created for March 02, 2026 at 02:00 PM", res.Message)
	require.NotNil(t, res.Details)
	assert.Equal(t, "evt-1", res.Details.BookingID)
	assert.Equal(t, "https://calendar.example/evt-1", res.Details.EventLink)
	assert.False(t, res.Details.Simulated)
	require.Len(t, primary.inserted, 1)
	assert.Equal(t, []string{"a@example.com"}, primary.inserted[0].Attendees)
}

func TestCreateEvent_FallsBackToSimulation(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	sim := NewMemoryProvider()
	svc := newTestService(&failingProvider{}, sim, now)
	start := at(now, 11, 0)

	res := svc.CreateEvent(context.Background(), "Meeting - 11:00 AM", start, start.Add(time.Hour), "", nil)
	require.True(t, res.Success)
	require.NotNil(t, res.Details)
	assert.True(t, res.Details.Simulated)
	assert.True(t, strings.HasPrefix(res.Details.BookingID, "sim-"))
	assert.Equal(t, simulatedLinkPrefix+res.Details.BookingID, res.Details.EventLink)
	assert.Equal(t, 1, sim.Len())

	// the simulated booking now blocks that slot
	assert.True(t, svc.HasConflict(context.Background(), start.Add(30*time.Minute), start.Add(90*time.Minute)))
}

func TestHasConflict(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	primary := &recordingProvider{events: []Event{{Start: at(now, 10, 0), End: at(now, 11, 0)}}}
	svc := newTestService(primary, nil, now)
	ctx := context.Background()

	assert.True(t, svc.HasConflict(ctx, at(now, 10, 30), at(now, 11, 30)))
	assert.False(t, svc.HasConflict(ctx, at(now, 11, 0), at(now, 12, 0)))
	assert.False(t, svc.HasConflict(ctx, at(now, 9, 0), at(now, 10, 0)))
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, Options{WorkingHoursStart: 10, WorkingHoursEnd: 8})
	assert.Equal(t, 17, svc.opts.WorkingHoursEnd)
	assert.Equal(t, 30, svc.opts.StepMinutes)
	assert.Equal(t, 5, svc.opts.MaxSlots)
	assert.Equal(t, time.UTC, svc.Location())
}
