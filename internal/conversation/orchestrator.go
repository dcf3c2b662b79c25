package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mpeters88/chatdesk/internal/booking"
	"github.com/mpeters88/chatdesk/internal/cache"
	"github.com/mpeters88/chatdesk/internal/knowledge"
	"github.com/mpeters88/chatdesk/internal/notify"
	"github.com/mpeters88/chatdesk/internal/observability/metrics"
	"github.com/mpeters88/chatdesk/internal/visitors"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// AgentGate reports whether a human agent has taken over a session.
type AgentGate interface {
	Active(ctx context.Context, orgID, sessionID string) bool
}

// AgentEcho mirrors visitor messages to connected agent consoles.
type AgentEcho interface {
	NotifyVisitorMessage(orgID, sessionID, text string)
}

// OrgSettings is the per-tenant behavior configuration.
type OrgSettings struct {
	Name               string
	PersonaPrompt      string
	LeadCaptureEnabled bool
}

// SettingsSource resolves tenant settings for a turn.
type SettingsSource interface {
	Settings(ctx context.Context, orgID string) (OrgSettings, error)
}

// StaticSettings serves fixed per-org settings with a shared default.
type StaticSettings struct {
	Default OrgSettings
	Orgs    map[string]OrgSettings
}

func (s StaticSettings) Settings(ctx context.Context, orgID string) (OrgSettings, error) {
	if cfg, ok := s.Orgs[orgID]; ok {
		return cfg, nil
	}
	return s.Default, nil
}

// TurnRequest is one inbound visitor message.
type TurnRequest struct {
	OrgID     string
	SessionID string
	Message   string
}

// TurnResponse is the orchestrator's answer for the turn.
type TurnResponse struct {
	Reply           string `json:"reply"`
	Mode            string `json:"mode"`
	Source          string `json:"source"`
	Confirmed       bool   `json:"booking_confirmed,omitempty"`
	SchedulingURL   string `json:"scheduling_url,omitempty"`
	AgentControlled bool   `json:"agent_controlled,omitempty"`
}

// Reply sources, for callers and metrics.
const (
	SourceAgent   = "agent"
	SourceCache   = "cache"
	SourceWelcome = "welcome"
	SourceContact = "contact"
	SourceBooking = "booking"
	SourceFAQ     = "faq"
	SourceLLM     = "llm"
)

const llmUnavailableReply = "I'm having a little trouble answering right now. Please try again in a moment, or leave your question and our team will follow up."

var greetingPattern = regexp.MustCompile(`(?i)^\s*(hi|hiya|hello|hey|howdy|good\s+(morning|afternoon|evening))[\s.!?]*$`)

// OrchestratorOptions wires the turn pipeline. Classifier, Machine, Profiles,
// and LLM are required; everything else degrades to a no-op when absent.
type OrchestratorOptions struct {
	Classifier *Classifier
	Policy     *ContactPolicy
	Machine    *booking.Machine
	Profiles   visitors.Repository
	Messages   MessageLog
	Cache      *cache.Service
	Knowledge  knowledge.Source
	FAQs       knowledge.FAQStore
	FAQMatcher knowledge.FAQMatcher
	LLM        LLMClient
	LLMModelID string
	Agents     AgentGate
	AgentEcho  AgentEcho
	Notifier   *notify.BookingNotifier
	Settings   SettingsSource
	Metrics    *metrics.ConversationMetrics
	Logger     *logging.Logger

	ContextWindow int
	KnowledgeTopK int
}

// Orchestrator runs the per-turn pipeline: takeover gate, cache, classify,
// contact policy, booking machine, knowledge retrieval, generation, persist.
// Turns for one session are serialized; sessions run in parallel.
type Orchestrator struct {
	classifier *Classifier
	policy     *ContactPolicy
	machine    *booking.Machine
	profiles   visitors.Repository
	messages   MessageLog
	cache      *cache.Service
	knowledge  knowledge.Source
	faqs       knowledge.FAQStore
	faqMatcher knowledge.FAQMatcher
	llm        LLMClient
	llmModelID string
	agents     AgentGate
	agentEcho  AgentEcho
	notifier   *notify.BookingNotifier
	settings   SettingsSource
	metrics    *metrics.ConversationMetrics
	logger     *logging.Logger

	contextWindow int
	knowledgeTopK int
	locks         sessionLocks
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Classifier == nil {
		panic("conversation: classifier cannot be nil")
	}
	if opts.Machine == nil {
		panic("conversation: booking machine cannot be nil")
	}
	if opts.Profiles == nil {
		panic("conversation: profile repository cannot be nil")
	}
	if opts.LLM == nil {
		panic("conversation: llm client cannot be nil")
	}
	if opts.Policy == nil {
		opts.Policy = NewContactPolicy(0, 0, 0)
	}
	if opts.Knowledge == nil {
		opts.Knowledge = knowledge.NullSource{}
	}
	if opts.Settings == nil {
		opts.Settings = StaticSettings{Default: OrgSettings{LeadCaptureEnabled: true}}
	}
	if opts.Messages == nil {
		opts.Messages = NewMemoryLog()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 10
	}
	if opts.KnowledgeTopK <= 0 {
		opts.KnowledgeTopK = 3
	}
	return &Orchestrator{
		classifier:    opts.Classifier,
		policy:        opts.Policy,
		machine:       opts.Machine,
		profiles:      opts.Profiles,
		messages:      opts.Messages,
		cache:         opts.Cache,
		knowledge:     opts.Knowledge,
		faqs:          opts.FAQs,
		faqMatcher:    opts.FAQMatcher,
		llm:           opts.LLM,
		llmModelID:    opts.LLMModelID,
		agents:        opts.Agents,
		agentEcho:     opts.AgentEcho,
		notifier:      opts.Notifier,
		settings:      opts.Settings,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		contextWindow: opts.ContextWindow,
		knowledgeTopK: opts.KnowledgeTopK,
	}
}

// HandleTurn processes one visitor message end to end. It never returns an
// upstream error to the caller; every failure path degrades to a
// natural-language reply. Errors are reserved for persistence problems that
// make the turn unsafe to answer.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	if req.OrgID == "" || req.SessionID == "" {
		return TurnResponse{}, fmt.Errorf("conversation: org and session ids are required")
	}
	unlock := o.locks.lock(req.OrgID, req.SessionID)
	defer unlock()

	start := time.Now()
	resp, err := o.handleTurnLocked(ctx, req)
	if err == nil {
		o.metrics.ObserveTurn(resp.Mode, resp.Source, time.Since(start).Seconds())
	}
	return resp, err
}

func (o *Orchestrator) handleTurnLocked(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	settings, err := o.settings.Settings(ctx, req.OrgID)
	if err != nil {
		o.logger.Warn("settings lookup failed", "org_id", req.OrgID, "error", err)
		settings = OrgSettings{LeadCaptureEnabled: true}
	}

	profile, err := o.loadProfile(ctx, req.OrgID, req.SessionID)
	if err != nil {
		return TurnResponse{}, err
	}

	history, err := o.messages.Recent(ctx, req.OrgID, req.SessionID, o.contextWindow)
	if err != nil {
		o.logger.Warn("history load failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
		history = nil
	}

	// The inbound message is recorded before anything can fail, so a turn
	// that times out mid-pipeline is still recoverable from storage.
	if err := o.messages.Append(ctx, req.OrgID, req.SessionID, ChatRoleUser, req.Message, profile.Mode); err != nil {
		return TurnResponse{}, err
	}

	// Human takeover bypasses the whole pipeline.
	if o.agents != nil && o.agents.Active(ctx, req.OrgID, req.SessionID) {
		if o.agentEcho != nil {
			o.agentEcho.NotifyVisitorMessage(req.OrgID, req.SessionID, req.Message)
		}
		return TurnResponse{Mode: profile.Mode, Source: SourceAgent, AgentControlled: true}, nil
	}

	cacheKey := cache.ResponseKey(req.OrgID, profile.Mode, profile.Complete(), req.Message)
	if cached, ok := o.cache.Get(ctx, cacheKey); ok {
		o.metrics.ObserveCache("hit")
		return o.finishTurn(ctx, req, profile, TurnResponse{
			Reply:  cached,
			Mode:   profile.Mode,
			Source: SourceCache,
		})
	}
	o.metrics.ObserveCache("miss")

	if len(history) == 0 && greetingPattern.MatchString(req.Message) {
		return o.finishTurn(ctx, req, profile, TurnResponse{
			Reply:  o.welcomeReply(settings),
			Mode:   profile.Mode,
			Source: SourceWelcome,
		})
	}

	cls := o.classifier.Classify(ctx, ClassifyInput{
		Message:     req.Message,
		CurrentMode: profile.Mode,
		Recent:      History(history),
	})
	if cls.Overridden {
		o.metrics.ObserveOverride()
	}
	mode := cls.Mode

	awaiting := awaitingContactField(history)
	if o.policy.ExtractContact(profile, req.Message, awaiting) {
		if err := o.profiles.Upsert(ctx, profile); err != nil {
			return TurnResponse{}, fmt.Errorf("conversation: persisting extracted contact: %w", err)
		}
	}

	if mode != ModeAppointment {
		// The turn bounds run over the whole session; the context window is
		// too short to ever cross the upper bound. The inbound message is
		// already appended, so the count includes this turn.
		turnCount, err := o.messages.CountUserMessages(ctx, req.OrgID, req.SessionID)
		if err != nil {
			o.logger.Warn("turn count failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
			turnCount = countUserTurns(history) + 1
		}
		collect := o.policy.ShouldCollectNow(CollectInput{
			Profile:            profile,
			TurnCount:          turnCount,
			RecentUserMessages: UserTexts(history),
			LeadCaptureEnabled: settings.LeadCaptureEnabled,
		})
		if collect {
			if _, prompt := o.policy.NextPrompt(profile); prompt != "" {
				return o.finishTurn(ctx, req, profile, TurnResponse{
					Reply:  prompt,
					Mode:   mode,
					Source: SourceContact,
				})
			}
		}
	}

	if mode == ModeAppointment {
		return o.bookingTurn(ctx, req, profile, settings, cls, history)
	}

	reply, source := o.answer(ctx, req, profile, settings, cls, history)
	resp, err := o.finishTurn(ctx, req, profile, TurnResponse{Reply: reply, Mode: mode, Source: source})
	if err != nil {
		return TurnResponse{}, err
	}

	if source == SourceLLM && o.cache != nil {
		if cache.ResponseCacheable(reply, mode, profile.Complete()) {
			o.cache.Set(ctx, cacheKey, reply, 0)
		}
	}
	if profile.Mode != mode {
		profile.Mode = mode
		if err := o.profiles.Upsert(ctx, profile); err != nil {
			o.logger.Warn("mode persist failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
		}
	}
	return resp, nil
}

func (o *Orchestrator) bookingTurn(ctx context.Context, req TurnRequest, profile *visitors.Profile, settings OrgSettings, cls Classification, history []StoredMessage) (TurnResponse, error) {
	out, err := o.machine.Advance(ctx, booking.AdvanceInput{
		Profile:         profile,
		Message:         req.Message,
		Action:          booking.Action(cls.AppointmentAction),
		RecentAssistant: AssistantTexts(history),
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("conversation: booking turn: %w", err)
	}
	o.metrics.ObserveBooking(out.State.String())

	// The machine only persists on transitions. An offer turn still has to
	// stick the session in appointment mode, or the classifier's sticky
	// fallback routes the follow-up selection away from the machine.
	if out.ModeAfter != "" && profile.Mode != out.ModeAfter {
		profile.Mode = out.ModeAfter
		if err := o.profiles.Upsert(ctx, profile); err != nil {
			o.logger.Warn("mode persist failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
		}
	}

	if out.Confirmed {
		o.notifier.SendConfirmation(ctx, notify.BookingConfirmation{
			To:            profile.Email,
			ToName:        profile.Name,
			OrgName:       settings.Name,
			Date:          out.ConfirmedDate,
			Time:          out.ConfirmedTime,
			SchedulingURL: out.SchedulingURL,
		})
	}

	return o.finishTurn(ctx, req, profile, TurnResponse{
		Reply:         out.Reply,
		Mode:          out.ModeAfter,
		Source:        SourceBooking,
		Confirmed:     out.Confirmed,
		SchedulingURL: out.SchedulingURL,
	})
}

// answer resolves a non-booking turn: exact-enough FAQ first, then LLM
// generation over retrieved knowledge.
func (o *Orchestrator) answer(ctx context.Context, req TurnRequest, profile *visitors.Profile, settings OrgSettings, cls Classification, history []StoredMessage) (string, string) {
	if o.faqs != nil {
		if entries, err := o.faqs.GetFAQs(ctx, req.OrgID); err == nil && len(entries) > 0 {
			if entry, _, ok := o.faqMatcher.Match(req.Message, entries); ok {
				return o.postProcess(entry.Answer, profile), SourceFAQ
			}
		}
	}

	var facts []string
	if cls.NeedsKnowledgeLookup {
		query := req.Message
		if cls.SpecialHandling == SpecialHandlingIdentity {
			// Identity documents rarely share terms with "who are you".
			query = "about " + settings.Name + " " + req.Message
		}
		docs, err := o.knowledge.SimilaritySearch(ctx, req.OrgID, query, o.knowledgeTopK)
		if err != nil {
			o.logger.Warn("knowledge lookup failed", "org_id", req.OrgID, "error", err)
		}
		facts = docs
		if err == nil && len(docs) == 0 {
			// Surfaced for admins to curate into knowledge or FAQs.
			o.logger.Info("unanswered visitor question", "org_id", req.OrgID, "query", req.Message)
		}
	}

	reply, err := o.generate(ctx, req, profile, settings, history, facts)
	if err != nil {
		o.metrics.ObserveLLMFailure("generation")
		o.logger.Error("reply generation failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
		return llmUnavailableReply, SourceLLM
	}
	return o.postProcess(reply, profile), SourceLLM
}

func (o *Orchestrator) generate(ctx context.Context, req TurnRequest, profile *visitors.Profile, settings OrgSettings, history []StoredMessage, facts []string) (string, error) {
	var system []string
	persona := settings.PersonaPrompt
	if persona == "" {
		name := settings.Name
		if name == "" {
			name = "the business"
		}
		persona = fmt.Sprintf("You are a friendly, concise assistant for %s. Answer only from the provided facts and conversation. If you don't know, say so and offer to take a message.", name)
	}
	system = append(system, persona)
	if len(facts) > 0 {
		system = append(system, "Relevant facts:\n- "+strings.Join(facts, "\n- "))
	}
	if profile.HasRealName() {
		system = append(system, "The visitor's name is "+profile.Name+". Use it naturally, not in every message.")
	}

	messages := History(history)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: req.Message})

	resp, err := o.llm.Complete(ctx, LLMRequest{
		Model:       o.llmModelID,
		System:      system,
		Messages:    messages,
		MaxTokens:   600,
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// postProcess applies tone adjustments without touching factual content: a
// contextual follow-up is appended when the reply leaves no opening.
func (o *Orchestrator) postProcess(reply string, profile *visitors.Profile) string {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return llmUnavailableReply
	}
	if !strings.Contains(trimmed, "?") {
		trimmed += " Is there anything else I can help you with?"
	}
	return trimmed
}

// AgentReply records a human agent's message as the assistant side of the
// session, satisfying the agent console's reply sink.
func (o *Orchestrator) AgentReply(ctx context.Context, orgID, sessionID, text string) error {
	unlock := o.locks.lock(orgID, sessionID)
	defer unlock()
	return o.messages.Append(ctx, orgID, sessionID, ChatRoleAssistant, text, SourceAgent)
}

// finishTurn persists the assistant side of the exchange.
func (o *Orchestrator) finishTurn(ctx context.Context, req TurnRequest, profile *visitors.Profile, resp TurnResponse) (TurnResponse, error) {
	if err := o.messages.Append(ctx, req.OrgID, req.SessionID, ChatRoleAssistant, resp.Reply, resp.Mode); err != nil {
		o.logger.Warn("assistant message persist failed", "org_id", req.OrgID, "session_id", req.SessionID, "error", err)
	}
	return resp, nil
}

func (o *Orchestrator) loadProfile(ctx context.Context, orgID, sessionID string) (*visitors.Profile, error) {
	profile, err := o.profiles.Get(ctx, orgID, sessionID)
	if err == nil {
		if profile.Mode == "" {
			profile.Mode = ModeFAQ
		}
		profile.ReturningUser = true
		return profile, nil
	}
	if err != visitors.ErrNotFound {
		return nil, fmt.Errorf("conversation: loading profile: %w", err)
	}
	profile = &visitors.Profile{
		OrganizationID: orgID,
		SessionID:      sessionID,
		Mode:           ModeFAQ,
	}
	if err := o.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("conversation: creating profile: %w", err)
	}
	return profile, nil
}

func (o *Orchestrator) welcomeReply(settings OrgSettings) string {
	if settings.Name != "" {
		return fmt.Sprintf("Hi! Welcome to %s. How can I help you today?", settings.Name)
	}
	return "Hi! How can I help you today?"
}

// awaitingContactField recovers which contact field the previous assistant
// turn asked for, based on the prompts this package emits.
func awaitingContactField(history []StoredMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != ChatRoleAssistant {
			continue
		}
		switch {
		case strings.Contains(history[i].Content, "pleasure of chatting"):
			return "name"
		case strings.Contains(history[i].Content, "best email to reach you"):
			return "email"
		}
		return ""
	}
	return ""
}

func countUserTurns(history []StoredMessage) int {
	n := 0
	for _, m := range history {
		if m.Role == ChatRoleUser {
			n++
		}
	}
	return n
}
