package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace = "calendar_agent"

	bookingsMetricName = namespace + "_booking_bookings_total"
	intentsMetricName  = namespace + "_dialogue_intents_total"
	nluFallbackName    = namespace + "_nlu_fallbacks_total"
	webchatConnsName   = namespace + "_webchat_connections"
)

// AgentMetrics exposes counters/histograms for the dialogue and booking flows.
type AgentMetrics struct {
	intentsTotal      *prometheus.CounterVec
	nluFallbacks      *prometheus.CounterVec
	nluLatency        *prometheus.HistogramVec
	bookingsTotal     *prometheus.CounterVec
	slotsOffered      prometheus.Histogram
	calendarFallbacks *prometheus.CounterVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "intents_total",
			Help:      "Classified intents by source (nlu or keyword)",
		}, []string{"intent", "source"}),
		nluFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nlu",
			Name:      "fallbacks_total",
			Help:      "NLU calls that degraded to keyword/regex handling",
		}, []string{"stage"}),
		nluLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "nlu",
			Name:      "latency_seconds",
			Help:      "Latency of text-completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		slotsOffered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "slots_offered",
			Help:      "Number of slots offered per availability lookup",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		calendarFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calendar",
			Name:      "fallbacks_total",
			Help:      "Calendar provider calls served by the in-memory simulation after a failure",
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.intentsTotal, m.nluFallbacks, m.nluLatency, m.bookingsTotal, m.slotsOffered, m.calendarFallbacks)
	return m
}

func (m *AgentMetrics) ObserveIntent(intent, source string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intent, source).Inc()
}

func (m *AgentMetrics) ObserveNLUFallback(stage string) {
	if m == nil {
		return
	}
	m.nluFallbacks.WithLabelValues(stage).Inc()
}

func (m *AgentMetrics) ObserveNLULatency(stage string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.nluLatency.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}

func (m *AgentMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AgentMetrics) ObserveSlotsOffered(n int) {
	if m == nil {
		return
	}
	m.slotsOffered.Observe(float64(n))
}

func (m *AgentMetrics) ObserveCalendarFallback(operation string) {
	if m == nil {
		return
	}
	m.calendarFallbacks.WithLabelValues(operation).Inc()
}

// Snapshot is a point-in-time read of the counters shown on the admin stats endpoint.
type Snapshot struct {
	Bookings           map[string]int64 `json:"bookings"`
	Intents            map[string]int64 `json:"intents"`
	NLUFallbacks       map[string]int64 `json:"nlu_fallbacks"`
	WebchatConnections int64            `json:"webchat_connections"`
}

// RegisterWebchatConnections exports the open websocket count, read from
// count on every scrape.
func RegisterWebchatConnections(reg prometheus.Registerer, count func() int) {
	if reg == nil || count == nil {
		return
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "webchat",
		Name:      "connections",
		Help:      "Open webchat websocket connections.",
	}, func() float64 { return float64(count()) }))
}

// TakeSnapshot reads the agent counters back out of gatherer.
func TakeSnapshot(gatherer prometheus.Gatherer) Snapshot {
	snap := Snapshot{
		Bookings:     map[string]int64{},
		Intents:      map[string]int64{},
		NLUFallbacks: map[string]int64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case bookingsMetricName:
			sumCounterBy(mf, "outcome", snap.Bookings)
		case intentsMetricName:
			sumCounterBy(mf, "intent", snap.Intents)
		case nluFallbackName:
			sumCounterBy(mf, "stage", snap.NLUFallbacks)
		case webchatConnsName:
			for _, metric := range mf.Metric {
				if metric != nil && metric.GetGauge() != nil {
					snap.WebchatConnections += int64(metric.GetGauge().GetValue())
				}
			}
		}
	}
	return snap
}

func sumCounterBy(mf *dto.MetricFamily, label string, into map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		into[labelValue(metric, label)] += int64(metric.GetCounter().GetValue())
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
