package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/calendar-booking-agent/internal/audit"
	"github.com/wolfman30/calendar-booking-agent/internal/nlu"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// Intent is the coarse category of what the user wants.
type Intent string

const (
	IntentBook    Intent = "book_appointment"
	IntentCheck   Intent = "check_availability"
	IntentGeneral Intent = "general_conversation"
)

// Source says which path produced a classification.
type Source string

const (
	SourceNLU     Source = "nlu"
	SourceKeyword Source = "keyword"
)

var (
	bookingKeywords      = []string{"schedule", "book", "meeting", "call", "appointment"}
	availabilityKeywords = []string{"free", "available", "availability", "time"}
)

// AuditLogger records notable agent events.
type AuditLogger interface {
	LogEvent(ctx context.Context, event audit.Event) error
}

// Interpreter turns free text into intents and scheduling details. Every NLU
// failure degrades to keyword and regex handling.
type Interpreter struct {
	client  nlu.Client
	logger  *logging.Logger
	metrics *metrics.AgentMetrics
	audit   AuditLogger
}

func NewInterpreter(client nlu.Client, logger *logging.Logger, m *metrics.AgentMetrics, auditLogger AuditLogger) *Interpreter {
	if client == nil {
		client = nlu.DisabledClient{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Interpreter{client: client, logger: logger, metrics: m, audit: auditLogger}
}

// ClassifyIntent asks the NLU for an intent and falls back to keywords when the
// reply is missing or does not name a known intent.
func (p *Interpreter) ClassifyIntent(ctx context.Context, message string) (Intent, Source) {
	reply, err := p.prompt(ctx, "intent", intentPrompt(message))
	if err == nil {
		if intent, ok := parseIntent(reply); ok {
			p.metrics.ObserveIntent(string(intent), string(SourceNLU))
			return intent, SourceNLU
		}
		p.fallback(ctx, "intent", fmt.Errorf("unrecognised intent reply %q", truncate(reply, 40)))
	} else {
		p.fallback(ctx, "intent", err)
	}

	intent := KeywordIntent(message)
	p.metrics.ObserveIntent(string(intent), string(SourceKeyword))
	return intent, SourceKeyword
}

// KeywordIntent classifies by substring. Scheduling words win over
// availability words.
func KeywordIntent(message string) Intent {
	lower := strings.ToLower(message)
	if containsAny(lower, bookingKeywords) {
		return IntentBook
	}
	if containsAny(lower, availabilityKeywords) {
		return IntentCheck
	}
	return IntentGeneral
}

// Converse asks the NLU for a short conversational reply.
func (p *Interpreter) Converse(ctx context.Context, message string) (string, error) {
	reply, err := p.prompt(ctx, "conversation", conversationPrompt(message))
	if err != nil {
		p.fallback(ctx, "conversation", err)
		return "", err
	}
	return reply, nil
}

func (p *Interpreter) prompt(ctx context.Context, stage, prompt string) (string, error) {
	started := time.Now()
	reply, err := nlu.Prompt(ctx, p.client, prompt)
	if !errors.Is(err, nlu.ErrDisabled) {
		p.metrics.ObserveNLULatency(stage, err, time.Since(started))
	}
	return reply, err
}

func (p *Interpreter) fallback(ctx context.Context, stage string, err error) {
	p.metrics.ObserveNLUFallback(stage)
	if errors.Is(err, nlu.ErrDisabled) {
		return
	}
	p.logger.Warn("nlu fallback", "stage", stage, "error", err.Error())
	if p.audit == nil {
		return
	}
	if auditErr := p.audit.LogEvent(ctx, audit.Event{
		EventType: audit.EventNLUFallback,
		Details:   map[string]any{"stage": stage, "error": err.Error()},
	}); auditErr != nil {
		p.logger.Error("failed to audit nlu fallback", "error", auditErr.Error())
	}
}

func parseIntent(reply string) (Intent, bool) {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(reply), "`'\".:;!, \n"))
	switch Intent(normalized) {
	case IntentBook, IntentCheck, IntentGeneral:
		return Intent(normalized), true
	}
	return "", false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func intentPrompt(message string) string {
	return fmt.Sprintf(`Classify the scheduling intent of the user message below.

Message: %q

Answer with exactly one label:
book_appointment - wants to schedule or book a call, meeting, appointment or event
check_availability - asks about free time or availability
general_conversation - greetings, questions, anything else

Reply with the label only.`, message)
}

func conversationPrompt(message string) string {
	return fmt.Sprintf(`You are a friendly assistant that books calendar appointments. The user wrote: %q

Reply in one or two short sentences and steer them toward telling you a day and time to book.`, message)
}
