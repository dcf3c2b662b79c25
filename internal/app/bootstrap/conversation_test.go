package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/mpeters88/chatdesk/internal/calendar"
	appconfig "github.com/mpeters88/chatdesk/internal/config"
	"github.com/mpeters88/chatdesk/internal/conversation"
)

func TestBuildLLMClientRequiresConfig(t *testing.T) {
	if _, _, err := BuildLLMClient(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildLLMClientNoModelReturnsStub(t *testing.T) {
	llm, cleanup, err := BuildLLMClient(context.Background(), &appconfig.Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := llm.(conversation.StubLLMClient); !ok {
		t.Fatalf("expected StubLLMClient, got %T", llm)
	}
}

func TestBuildCalendarProvider(t *testing.T) {
	provider := BuildCalendarProvider(&appconfig.Config{PublicBaseURL: "https://acme.example.com/"}, nil)
	mock, ok := provider.(*calendar.MockProvider)
	if !ok {
		t.Fatalf("expected MockProvider without calendly credentials, got %T", provider)
	}
	if mock.SchedulingURL != "https://acme.example.com/book" {
		t.Fatalf("unexpected scheduling url %q", mock.SchedulingURL)
	}

	provider = BuildCalendarProvider(&appconfig.Config{
		CalendlyToken:        "tok",
		CalendlyEventTypeURI: "https://api.calendly.com/event_types/abc",
	}, nil)
	if _, ok := provider.(*calendar.CalendlyProvider); !ok {
		t.Fatalf("expected CalendlyProvider, got %T", provider)
	}
}

func TestBuildOrchestratorDegradesWithoutInfrastructure(t *testing.T) {
	orch, cleanup, err := BuildOrchestrator(context.Background(), &appconfig.Config{}, ConversationDeps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if orch == nil {
		t.Fatalf("expected orchestrator")
	}
}

func TestBuildRedisClient(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, false); client != nil {
		t.Fatalf("expected nil client when addr is empty")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, true)
	if client == nil {
		t.Fatalf("expected verified client")
	}

	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "127.0.0.1:1"}, nil, true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestParseAPIKeys(t *testing.T) {
	keys := ParseAPIKeys(" key-1:org-1, key-2 : org-2 ,broken,:org-3,key-4: ")
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
	if keys["key-1"] != "org-1" || keys["key-2"] != "org-2" {
		t.Fatalf("unexpected key table %v", keys)
	}
}
