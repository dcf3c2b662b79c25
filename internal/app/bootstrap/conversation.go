package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mpeters88/chatdesk/internal/availability"
	"github.com/mpeters88/chatdesk/internal/booking"
	"github.com/mpeters88/chatdesk/internal/cache"
	"github.com/mpeters88/chatdesk/internal/calendar"
	appconfig "github.com/mpeters88/chatdesk/internal/config"
	"github.com/mpeters88/chatdesk/internal/conversation"
	"github.com/mpeters88/chatdesk/internal/knowledge"
	"github.com/mpeters88/chatdesk/internal/notify"
	"github.com/mpeters88/chatdesk/internal/observability/metrics"
	"github.com/mpeters88/chatdesk/internal/visitors"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// BuildLLMClient wires the model chain from config: Bedrock as primary,
// Gemini as fallback, a canned stub when neither is configured. The returned
// cleanup releases the Gemini transport when one was created.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cleanup := func() {}

	var primary conversation.LLMClient
	if strings.TrimSpace(cfg.BedrockModelID) != "" {
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		bedrockClient := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		primary = conversation.NewBedrockLLMClient(bedrockClient)
		logger.Info("bedrock llm configured", "model", cfg.BedrockModelID)
	}

	var fallback conversation.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			fallback = gemini
			cleanup = func() { gemini.Close() }
			logger.Info("gemini llm configured", "model", cfg.GeminiModelID)
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return conversation.NewFallbackLLMClient(primary, fallback, logger), cleanup, nil
	case primary != nil:
		return primary, cleanup, nil
	case fallback != nil:
		return fallback, cleanup, nil
	default:
		logger.Warn("no llm configured; using stub client")
		return conversation.StubLLMClient{}, cleanup, nil
	}
}

// BuildCalendarProvider returns the availability feed: Calendly when
// connected, otherwise synthetic slots from the org's business windows.
func BuildCalendarProvider(cfg *appconfig.Config, windows calendar.WindowSource) calendar.Provider {
	if cfg != nil && strings.TrimSpace(cfg.CalendlyToken) != "" && strings.TrimSpace(cfg.CalendlyEventTypeURI) != "" {
		return calendar.NewCalendlyProvider(calendar.StaticCalendlyCredentials{
			Token:        cfg.CalendlyToken,
			EventTypeURI: cfg.CalendlyEventTypeURI,
		}, nil)
	}
	schedulingURL := ""
	if cfg != nil && cfg.PublicBaseURL != "" {
		schedulingURL = strings.TrimRight(cfg.PublicBaseURL, "/") + "/book"
	}
	provider := calendar.NewMockProvider(schedulingURL, nil)
	provider.Source = windows
	return provider
}

// BuildBookingNotifier wires confirmation email over SES when enabled.
func BuildBookingNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *notify.BookingNotifier {
	if cfg == nil || !cfg.BookingEmailEnabled {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("booking email disabled: aws config", "error", err)
		return nil
	}
	sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	sender := notify.NewSESSender(sesClient, notify.SESConfig{FromEmail: cfg.BookingFromEmail}, logger)
	return notify.NewBookingNotifier(sender, logger)
}

// ConversationDeps carries the infrastructure handles BuildOrchestrator
// assembles the turn pipeline from. Any of them may be nil; the pipeline
// degrades to in-memory or pass-through equivalents.
type ConversationDeps struct {
	Redis     *redis.Client
	DB        *sql.DB
	Pool      *pgxpool.Pool
	Agents    conversation.AgentGate
	AgentEcho conversation.AgentEcho
	Metrics   *metrics.ConversationMetrics
	Logger    *logging.Logger
}

// BuildOrchestrator wires the whole conversation pipeline from config.
func BuildOrchestrator(ctx context.Context, cfg *appconfig.Config, deps ConversationDeps) (*conversation.Orchestrator, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	llm, cleanup, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var profiles visitors.Repository
	if deps.DB != nil {
		profiles = visitors.NewPostgresRepository(deps.DB)
	} else {
		logger.Warn("no database configured; visitor profiles are in-memory")
		profiles = visitors.NewInMemoryRepository()
	}

	var messageLog conversation.MessageLog
	if deps.DB != nil {
		messageLog = conversation.NewMessageStore(deps.DB)
	} else {
		messageLog = conversation.NewMemoryLog()
	}

	var cacheSvc *cache.Service
	var knowledgeSource knowledge.Source
	var faqs knowledge.FAQStore
	if deps.Redis != nil {
		cacheSvc = cache.New(deps.Redis, logger)
		repo := knowledge.NewRedisRepository(deps.Redis)
		knowledgeSource = knowledge.NewKeywordSource(repo)
		faqs = knowledge.NewRedisFAQStore(deps.Redis)
	} else {
		logger.Warn("no redis configured; cache and knowledge retrieval disabled")
		knowledgeSource = knowledge.NullSource{}
	}

	var windows calendar.WindowSource
	if deps.Pool != nil {
		windows = availability.NewStore(deps.Pool, logger)
	}
	provider := BuildCalendarProvider(cfg, windows)
	machine := booking.NewMachine(provider, profiles, logger, cfg.CalendarDaysAhead)
	if cacheSvc != nil {
		machine.UseSlotCache(cacheSvc)
	}

	orch := conversation.NewOrchestrator(conversation.OrchestratorOptions{
		Classifier: conversation.NewClassifier(llm, logger),
		Policy:     conversation.NewContactPolicy(cfg.ContactMinTurns, cfg.ContactMaxTurns, cfg.ContactEngagementWordMin),
		Machine:    machine,
		Profiles:   profiles,
		Messages:   messageLog,
		Cache:      cacheSvc,
		Knowledge:  knowledgeSource,
		FAQs:       faqs,
		FAQMatcher: knowledge.FAQMatcher{Threshold: cfg.FAQMatchThreshold},
		LLM:        llm,
		LLMModelID: cfg.BedrockModelID,
		Agents:     deps.Agents,
		AgentEcho:  deps.AgentEcho,
		Notifier:   BuildBookingNotifier(ctx, cfg, logger),
		Settings: conversation.StaticSettings{Default: conversation.OrgSettings{
			Name:               cfg.OrgDisplayName,
			PersonaPrompt:      cfg.PersonaPrompt,
			LeadCaptureEnabled: cfg.LeadCaptureEnabled,
		}},
		Metrics:       deps.Metrics,
		Logger:        logger,
		ContextWindow: cfg.ContextWindowSize,
		KnowledgeTopK: cfg.KnowledgeTopK,
	})
	return orch, cleanup, nil
}
