package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the chat turn pipeline.
type ConversationMetrics struct {
	turnsTotal      *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	overridesTotal  prometheus.Counter
	llmFailureTotal *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatdesk",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total handled chat turns",
		}, []string{"mode", "source"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatdesk",
			Subsystem: "conversation",
			Name:      "response_cache_total",
			Help:      "Response cache lookups",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatdesk",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking state machine outcomes",
		}, []string{"state"}),
		overridesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatdesk",
			Subsystem: "conversation",
			Name:      "booking_overrides_total",
			Help:      "Classifier verdicts overridden by the booking pre-pass",
		}),
		llmFailureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatdesk",
			Subsystem: "conversation",
			Name:      "llm_failures_total",
			Help:      "LLM call failures by stage",
		}, []string{"stage"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatdesk",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.cacheTotal, m.bookingsTotal, m.overridesTotal, m.llmFailureTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveTurn(mode, source string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(mode, source).Inc()
	m.turnLatency.WithLabelValues(mode).Observe(seconds)
}

func (m *ConversationMetrics) ObserveCache(outcome string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveBooking(state string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(state).Inc()
}

func (m *ConversationMetrics) ObserveOverride() {
	if m == nil {
		return
	}
	m.overridesTotal.Inc()
}

func (m *ConversationMetrics) ObserveLLMFailure(stage string) {
	if m == nil {
		return
	}
	m.llmFailureTotal.WithLabelValues(stage).Inc()
}
