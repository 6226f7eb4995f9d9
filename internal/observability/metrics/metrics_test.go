package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestAgentMetricsObserve(t *testing.T) {
	m := NewAgentMetrics(prometheus.NewRegistry())
	m.ObserveIntent("book_appointment", "keyword")
	m.ObserveNLUFallback("intent")
	m.ObserveNLULatency("extract", errors.New("boom"), 20*time.Millisecond)
	m.ObserveBooking("confirmed")
	m.ObserveSlotsOffered(3)
	m.ObserveCalendarFallback("list_events")
}

func TestAgentMetricsNilSafe(t *testing.T) {
	var m *AgentMetrics
	m.ObserveIntent("general_conversation", "nlu")
	m.ObserveNLUFallback("extract")
	m.ObserveNLULatency("intent", nil, time.Millisecond)
	m.ObserveBooking("rejected_past")
	m.ObserveSlotsOffered(0)
	m.ObserveCalendarFallback("insert_event")
}

func TestTakeSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg)
	m.ObserveBooking("confirmed")
	m.ObserveBooking("confirmed")
	m.ObserveBooking("invalid_slot")
	m.ObserveIntent("book_appointment", "nlu")
	m.ObserveIntent("book_appointment", "keyword")
	m.ObserveNLUFallback("extract")

	snap := TakeSnapshot(reg)
	if snap.Bookings["confirmed"] != 2 {
		t.Fatalf("expected 2 confirmed bookings, got %d", snap.Bookings["confirmed"])
	}
	if snap.Bookings["invalid_slot"] != 1 {
		t.Fatalf("expected 1 invalid slot, got %d", snap.Bookings["invalid_slot"])
	}
	if snap.Intents["book_appointment"] != 2 {
		t.Fatalf("expected intents summed across sources, got %d", snap.Intents["book_appointment"])
	}
	if snap.NLUFallbacks["extract"] != 1 {
		t.Fatalf("expected 1 extract fallback, got %d", snap.NLUFallbacks["extract"])
	}
}

func TestWebchatConnectionsInSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	open := 2
	RegisterWebchatConnections(reg, func() int { return open })

	if got := TakeSnapshot(reg).WebchatConnections; got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}
	open = 0
	if got := TakeSnapshot(reg).WebchatConnections; got != 0 {
		t.Fatalf("expected gauge to follow the count, got %d", got)
	}

	RegisterWebchatConnections(nil, func() int { return 1 })
	RegisterWebchatConnections(reg, nil)
}
