// Package agent turns chat messages into calendar bookings.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/calendar-booking-agent/internal/audit"
	"github.com/wolfman30/calendar-booking-agent/internal/bookings"
	"github.com/wolfman30/calendar-booking-agent/internal/calendar"
	"github.com/wolfman30/calendar-booking-agent/internal/nlu"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/internal/session"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

const (
	sessionNotFoundMessage = "Session not found"
	invalidSlotMessage     = "Invalid slot selection"
)

var (
	standaloneNumber = regexp.MustCompile(`(?:^|[^\w:])(\d{1,2})(?:$|[^\w:])`)
	clockSuffix      = regexp.MustCompile(`(?i)^\s*(?:[ap]\.?m\b|o'?clock\b)`)
)

// BookingLedger records confirmed bookings.
type BookingLedger interface {
	Insert(ctx context.Context, rec bookings.Record) (bookings.Record, error)
}

// Notifier tells attendees about a confirmed booking.
type Notifier interface {
	NotifyBooked(ctx context.Context, details *calendar.BookingDetails, description string, attendees []string)
}

// Config wires an Orchestrator. Interpreter, Calendar and Sessions are
// required; the rest may be nil.
type Config struct {
	Interpreter            *Interpreter
	Calendar               *calendar.Service
	Sessions               session.Store
	Ledger                 BookingLedger
	Audit                  AuditLogger
	Notifier               Notifier
	Metrics                *metrics.AgentMetrics
	Logger                 *logging.Logger
	Tracer                 trace.Tracer
	MaxOfferedSlots        int
	DefaultDurationMinutes int
}

// Orchestrator runs one dialogue turn per message.
type Orchestrator struct {
	interpreter     *Interpreter
	calendar        *calendar.Service
	sessions        session.Store
	ledger          BookingLedger
	audit           AuditLogger
	notifier        Notifier
	metrics         *metrics.AgentMetrics
	logger          *logging.Logger
	tracer          trace.Tracer
	maxOffered      int
	defaultDuration int
	locks           *keyedMutex
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Calendar == nil {
		panic("agent: calendar service required")
	}
	if cfg.Sessions == nil {
		panic("agent: session store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Interpreter == nil {
		cfg.Interpreter = NewInterpreter(nlu.DisabledClient{}, cfg.Logger, cfg.Metrics, cfg.Audit)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("calendar-agent.internal.agent")
	}
	if cfg.MaxOfferedSlots <= 0 {
		cfg.MaxOfferedSlots = 3
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = 60
	}
	return &Orchestrator{
		interpreter:     cfg.Interpreter,
		calendar:        cfg.Calendar,
		sessions:        cfg.Sessions,
		ledger:          cfg.Ledger,
		audit:           cfg.Audit,
		notifier:        cfg.Notifier,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		tracer:          cfg.Tracer,
		maxOffered:      cfg.MaxOfferedSlots,
		defaultDuration: cfg.DefaultDurationMinutes,
		locks:           newKeyedMutex(),
	}
}

// ProcessMessage runs one turn: classify, act, reply, persist.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	sessionID = session.NormalizeID(sessionID)
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	ctx, span := o.tracer.Start(ctx, "agent.process_message", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	sess, err := o.loadOrCreate(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sess.Append(nlu.RoleUser, message)

	intent, source := o.interpreter.ClassifyIntent(ctx, message)
	span.SetAttributes(attribute.String("agent.intent", string(intent)), attribute.String("agent.intent_source", string(source)))

	var reply string
	switch intent {
	case IntentBook:
		reply = o.handleBook(ctx, sess, message)
	case IntentCheck:
		reply = o.handleCheck(ctx, sess, message)
	default:
		reply = o.handleConversation(ctx, sess, message)
	}

	sess.LastIntent = string(intent)
	sess.Append(nlu.RoleAssistant, reply)
	sess.UpdatedAt = o.calendar.Now()
	if err := o.sessions.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("agent: save session: %w", err)
	}

	resp := &ChatResponse{
		Response:       reply,
		AvailableSlots: append([]calendar.Slot{}, sess.OfferedSlots...),
		SessionID:      sessionID,
		Intent:         intent,
	}
	if sess.LastExtracted != nil {
		resp.ExtractedInfo = *sess.LastExtracted
	}
	return resp, nil
}

// ConfirmBooking books the offered slot at slotIndex (zero-based). Unknown
// sessions and out-of-range indices fail without side effects.
func (o *Orchestrator) ConfirmBooking(ctx context.Context, sessionID string, slotIndex int, attendees []string) (calendar.BookingResult, error) {
	sessionID = session.NormalizeID(sessionID)
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	ctx, span := o.tracer.Start(ctx, "agent.confirm_booking", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("agent.slot_index", slotIndex),
	))
	defer span.End()

	sess, err := o.sessions.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return calendar.BookingResult{Success: false, Message: sessionNotFoundMessage}, nil
	}
	if err != nil {
		span.RecordError(err)
		return calendar.BookingResult{}, fmt.Errorf("agent: load session: %w", err)
	}
	if slotIndex < 0 || slotIndex >= len(sess.OfferedSlots) {
		o.metrics.ObserveBooking("invalid_slot")
		return calendar.BookingResult{Success: false, Message: invalidSlotMessage}, nil
	}

	result := o.bookSlot(ctx, sess, slotIndex, attendees)
	if !result.Success {
		return result, nil
	}
	sess.UpdatedAt = o.calendar.Now()
	if err := o.sessions.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return calendar.BookingResult{}, fmt.Errorf("agent: save session: %w", err)
	}
	return result, nil
}

// Session returns a copy of the stored session for inspection.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.sessions.Load(ctx, session.NormalizeID(sessionID))
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, id string) (*session.Session, error) {
	sess, err := o.sessions.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(id, o.calendar.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: load session: %w", err)
	}
	return sess, nil
}

func (o *Orchestrator) handleBook(ctx context.Context, sess *session.Session, message string) string {
	info := o.interpreter.ExtractDetails(ctx, message)
	sess.LastExtracted = &info
	if !info.HasTimeInfo {
		return askForTimeReply
	}

	now := o.calendar.Now()
	day := ResolveDay(info.Day, now)
	hour, minute := ResolveClock(info.Time)
	duration := ResolveDuration(info.Duration, o.defaultDuration)
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	end := start.Add(duration)

	var failure string
	if start.After(now) && o.calendar.HasConflict(ctx, start, end) {
		failure = conflictReply(start)
		o.recordRejection(ctx, sess.ID, start, "conflict")
	} else {
		description := eventDescription(info.Type)
		result := o.calendar.CreateEvent(ctx, eventTitle(info.Type, start), start, end, description, nil)
		if result.Success {
			o.recordBooking(ctx, sess, result, description, nil)
			return result.Message
		}
		failure = result.Message
		outcome := "failed"
		if !start.After(now) {
			outcome = "rejected_past"
		}
		o.recordRejection(ctx, sess.ID, start, outcome)
	}

	sess.OfferedSlots = o.offerSlots(ctx, day, duration)
	return failure + "\n\n" + suggestSlotsReply(sess.OfferedSlots, info.Type)
}

func (o *Orchestrator) handleCheck(ctx context.Context, sess *session.Session, message string) string {
	info := o.interpreter.ExtractDetails(ctx, message)
	sess.LastExtracted = &info
	if !info.HasTimeInfo {
		return askForDayReply
	}

	day := ResolveDay(info.Day, o.calendar.Now())
	sess.OfferedSlots = o.offerSlots(ctx, day, ResolveDuration(info.Duration, o.defaultDuration))
	return availabilityReply(info.Day, sess.OfferedSlots)
}

func (o *Orchestrator) handleConversation(ctx context.Context, sess *session.Session, message string) string {
	if n := len(sess.OfferedSlots); n > 0 {
		if choice, ok := slotChoice(message); ok {
			if choice < 1 || choice > n {
				return selectionRangeReply(n)
			}
			slot := sess.OfferedSlots[choice-1]
			result := o.bookSlot(ctx, sess, choice-1, nil)
			if !result.Success {
				return result.Message
			}
			return selectedSlotReply(slot, result)
		}
	}

	reply, err := o.interpreter.Converse(ctx, message)
	if err != nil || len(reply) < minConversationalReply {
		return cannedReply(message)
	}
	return reply
}

func (o *Orchestrator) offerSlots(ctx context.Context, day time.Time, duration time.Duration) []calendar.Slot {
	slots := o.calendar.ListAvailableSlots(ctx, day, int(duration/time.Minute))
	if len(slots) > o.maxOffered {
		slots = slots[:o.maxOffered]
	}
	o.metrics.ObserveSlotsOffered(len(slots))
	return slots
}

// bookSlot creates the event for an offered slot and records the outcome.
func (o *Orchestrator) bookSlot(ctx context.Context, sess *session.Session, index int, attendees []string) calendar.BookingResult {
	slot := sess.OfferedSlots[index]
	meetingType := ""
	if sess.LastExtracted != nil {
		meetingType = sess.LastExtracted.Type
	}
	description := eventDescription(meetingType)
	result := o.calendar.CreateEvent(ctx, eventTitle(meetingType, slot.StartTime), slot.StartTime, slot.EndTime, description, attendees)
	if !result.Success {
		outcome := "failed"
		if !slot.StartTime.After(o.calendar.Now()) {
			outcome = "rejected_past"
		}
		o.recordRejection(ctx, sess.ID, slot.StartTime, outcome)
		return result
	}
	o.recordBooking(ctx, sess, result, description, attendees)
	return result
}

func (o *Orchestrator) recordBooking(ctx context.Context, sess *session.Session, result calendar.BookingResult, description string, attendees []string) {
	details := result.Details
	sess.BookingConfirmed = true
	sess.LastBooking = details
	sess.OfferedSlots = nil

	o.metrics.ObserveBooking("confirmed")
	if details == nil {
		return
	}
	o.logger.Info("booking confirmed",
		"session_id", sess.ID,
		"booking_id", details.BookingID,
		"start", details.StartTime.Format(time.RFC3339),
		"simulated", details.Simulated,
		"outcome", "confirmed",
	)

	if o.ledger != nil {
		if _, err := o.ledger.Insert(ctx, bookings.Record{
			SessionID: sess.ID,
			EventID:   details.BookingID,
			Title:     details.Title,
			StartTime: details.StartTime,
			EndTime:   details.EndTime,
			EventLink: details.EventLink,
			Attendees: attendees,
			Simulated: details.Simulated,
		}); err != nil {
			o.logger.Error("failed to record booking", "error", err.Error(), "session_id", sess.ID)
		}
	}
	o.logAudit(ctx, audit.Event{
		EventType: audit.EventBookingConfirmed,
		SessionID: sess.ID,
		Details: map[string]any{
			"booking_id": details.BookingID,
			"start":      details.StartTime.Format(time.RFC3339),
			"simulated":  details.Simulated,
		},
	})
	if o.notifier != nil && len(attendees) > 0 {
		o.notifier.NotifyBooked(ctx, details, description, attendees)
	}
}

func (o *Orchestrator) recordRejection(ctx context.Context, sessionID string, start time.Time, outcome string) {
	o.metrics.ObserveBooking(outcome)
	o.logger.Info("booking rejected", "session_id", sessionID, "start", start.Format(time.RFC3339), "outcome", outcome)
	o.logAudit(ctx, audit.Event{
		EventType: audit.EventBookingRejected,
		SessionID: sessionID,
		Details:   map[string]any{"start": start.Format(time.RFC3339), "reason": outcome},
	})
}

func (o *Orchestrator) logAudit(ctx context.Context, event audit.Event) {
	if o.audit == nil {
		return
	}
	if err := o.audit.LogEvent(ctx, event); err != nil {
		o.logger.Error("failed to write audit event", "error", err.Error(), "event_type", string(event.EventType))
	}
}

// slotChoice finds a standalone number such as "2" or "option 2", ignoring
// clock times like "2pm", "3 pm", "4 o'clock" or "10:30".
func slotChoice(message string) (int, bool) {
	for _, m := range standaloneNumber.FindAllStringSubmatchIndex(message, -1) {
		if clockSuffix.MatchString(message[m[3]:]) {
			continue
		}
		n, err := strconv.Atoi(message[m[2]:m[3]])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
