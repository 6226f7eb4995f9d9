package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// Options configures the availability and booking engines.
type Options struct {
	WorkingHoursStart int
	WorkingHoursEnd   int
	StepMinutes       int
	MaxSlots          int
	Location          *time.Location
	Now               func() time.Time
	Logger            *logging.Logger
	Metrics           *metrics.AgentMetrics
}

// Service answers availability questions and books events. A failing primary
// provider degrades to the in-memory simulation.
type Service struct {
	primary   Provider
	simulated *MemoryProvider
	opts      Options
	logger    *logging.Logger
}

// NewService wires the engines. A nil primary means simulation only; a nil
// simulated provider gets a fresh empty one.
func NewService(primary Provider, simulated *MemoryProvider, opts Options) *Service {
	if simulated == nil {
		simulated = NewMemoryProvider()
	}
	if primary == nil {
		primary = simulated
	}
	if opts.WorkingHoursStart <= 0 {
		opts.WorkingHoursStart = 9
	}
	if opts.WorkingHoursEnd <= opts.WorkingHoursStart || opts.WorkingHoursEnd > 24 {
		opts.WorkingHoursEnd = 17
	}
	if opts.StepMinutes <= 0 {
		opts.StepMinutes = 30
	}
	if opts.MaxSlots <= 0 {
		opts.MaxSlots = 5
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{primary: primary, simulated: simulated, opts: opts, logger: logger}
}

// Location is the timezone slots are generated in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Now returns the service clock in the calendar timezone.
func (s *Service) Now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// ListAvailableSlots returns at most MaxSlots open, future slots of the given
// length on date's calendar day, inside working hours.
func (s *Service) ListAvailableSlots(ctx context.Context, date time.Time, durationMinutes int) []Slot {
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	duration := time.Duration(durationMinutes) * time.Minute
	loc := s.opts.Location
	date = date.In(loc)
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), s.opts.WorkingHoursStart, 0, 0, 0, loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), s.opts.WorkingHoursEnd, 0, 0, 0, loc)

	events, _ := s.listEvents(ctx, dayStart, dayEnd)
	now := s.Now()
	step := time.Duration(s.opts.StepMinutes) * time.Minute

	slots := make([]Slot, 0, s.opts.MaxSlots)
	for start := dayStart; !start.Add(duration).After(dayEnd); start = start.Add(step) {
		end := start.Add(duration)
		if !start.After(now) {
			continue
		}
		if overlapsAny(events, start, end) {
			continue
		}
		slots = append(slots, NewSlot(start, end))
		if len(slots) >= s.opts.MaxSlots {
			break
		}
	}
	return slots
}

// HasConflict reports whether any existing event overlaps [start, end).
func (s *Service) HasConflict(ctx context.Context, start, end time.Time) bool {
	events, _ := s.listEvents(ctx, start, end)
	return overlapsAny(events, start, end)
}

// CreateEvent books [start, end). Past starts are rejected without touching
// any provider.
func (s *Service) CreateEvent(ctx context.Context, title string, start, end time.Time, description string, attendees []string) BookingResult {
	start = start.In(s.opts.Location)
	end = end.In(s.opts.Location)
	if !start.After(s.Now()) {
		return BookingResult{Success: false, Message: PastTimeMessage(start)}
	}

	event := Event{
		Title:       title,
		Description: description,
		Start:       start,
		End:         end,
		Attendees:   attendees,
	}
	created, simulated, err := s.insertEvent(ctx, event)
	if err != nil {
		s.logger.Error("failed to create calendar event", "error", err.Error(), "start", start.Format(time.RFC3339))
		return BookingResult{Success: false, Message: "Sorry, I couldn't create the event. Please try again."}
	}

	return BookingResult{
		Success: true,
		Message: fmt.Sprintf("Event '%s' created for %s at %s", title, start.Format("January 02, 2006"), start.Format(DisplayLayout)),
		Details: &BookingDetails{
			StartTime: start,
			EndTime:   end,
			Title:     title,
			BookingID: created.ID,
			EventLink: created.HTMLLink,
			Attendees: created.Attendees,
			Simulated: simulated,
		},
	}
}

// PastTimeMessage is the rejection shown for a start at or before now.
func PastTimeMessage(start time.Time) string {
	return fmt.Sprintf("Sorry, %s is in the past. Please choose a future time.", start.Format(DisplayLayout))
}

func (s *Service) listEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	events, err := s.primary.ListEvents(ctx, timeMin, timeMax)
	if err == nil || s.primary == Provider(s.simulated) {
		return events, err
	}
	s.logger.Warn("calendar provider list failed, using simulation", "error", err.Error())
	s.opts.Metrics.ObserveCalendarFallback("list_events")
	return s.simulated.ListEvents(ctx, timeMin, timeMax)
}

func (s *Service) insertEvent(ctx context.Context, event Event) (Event, bool, error) {
	if s.primary == Provider(s.simulated) {
		created, err := s.simulated.InsertEvent(ctx, event)
		return created, true, err
	}
	created, err := s.primary.InsertEvent(ctx, event)
	if err == nil {
		return created, false, nil
	}
	s.logger.Warn("calendar provider insert failed, using simulation", "error", err.Error())
	s.opts.Metrics.ObserveCalendarFallback("insert_event")
	created, err = s.simulated.InsertEvent(ctx, event)
	return created, true, err
}

func overlapsAny(events []Event, start, end time.Time) bool {
	for _, ev := range events {
		if ev.Overlaps(start, end) {
			return true
		}
	}
	return false
}
