package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveTurn("faq", "llm", 0.42)
	m.ObserveTurn("faq", "llm", 0.13)
	m.ObserveCache("hit")
	m.ObserveBooking("confirmed")
	m.ObserveOverride()
	m.ObserveLLMFailure("classifier")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	turns, ok := byName["chatdesk_conversation_turns_total"]
	if !ok {
		t.Fatalf("turns_total not registered")
	}
	if got := turns.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	labels := map[string]string{}
	for _, lp := range turns.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["mode"] != "faq" || labels["source"] != "llm" {
		t.Fatalf("unexpected labels %v", labels)
	}

	if _, ok := byName["chatdesk_booking_transitions_total"]; !ok {
		t.Fatalf("booking transitions not registered")
	}
	latency, ok := byName["chatdesk_conversation_turn_latency_seconds"]
	if !ok {
		t.Fatalf("turn latency not registered")
	}
	if got := latency.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("expected 2 latency samples, got %d", got)
	}
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("faq", "cache", 0.1)
	m.ObserveCache("miss")
	m.ObserveBooking("awaiting_email")
	m.ObserveOverride()
	m.ObserveLLMFailure("generation")
}
