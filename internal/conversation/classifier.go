package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mpeters88/chatdesk/pkg/logging"
)

// Conversation modes. Mode is sticky per session until a classification or
// the booking machine moves it.
const (
	ModeFAQ         = "faq"
	ModeAppointment = "appointment"
	ModeSales       = "sales"
	ModeLeadCapture = "lead_capture"
)

// Appointment sub-actions emitted when Mode is appointment.
const (
	AppointmentActionBook       = "book"
	AppointmentActionReschedule = "reschedule"
	AppointmentActionCancel     = "cancel"
	AppointmentActionInfo       = "info"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// SpecialHandlingIdentity marks questions about who the assistant or the
// business is. These force a knowledge lookup because the usual query terms
// rarely overlap with a sparse identity document.
const SpecialHandlingIdentity = "identity"

var identityPattern = regexp.MustCompile(`(?i)\b(who are you|what are you|are you (a |an )?(bot|robot|human|real person|ai)|tell me about (yourself|your (company|business|team))|about (yourself|your (company|business|team)))\b`)

const classifierPrompt = `You are an intent classifier for a business chat widget. Classify the visitor's latest message. Respond with JSON only, no prose.

Modes:
- faq: questions about the business, services, hours, policies, pricing details
- appointment: anything about scheduling, confirming, moving, or cancelling a visit
- sales: buying interest, quotes, comparisons between paid offerings
- lead_capture: the visitor is sharing contact details or asking to be contacted

If mode is appointment, also pick an action: book, reschedule, cancel, or info.

Current mode: %s
Recent conversation:
%s
Latest message: %s

Respond with: {"mode": "...", "appointment_action": "...", "confidence": "high|medium|low", "needs_knowledge_lookup": true|false}`

// Classification is the per-turn routing verdict.
type Classification struct {
	Mode                 string `json:"mode"`
	AppointmentAction    string `json:"appointment_action,omitempty"`
	Confidence           string `json:"confidence"`
	NeedsKnowledgeLookup bool   `json:"needs_knowledge_lookup"`
	SpecialHandling      string `json:"special_handling,omitempty"`
	Overridden           bool   `json:"-"`
}

// ClassifyInput carries the context the classifier sees for one turn.
type ClassifyInput struct {
	Message     string
	CurrentMode string
	Recent      []ChatMessage
}

// Classifier routes each turn to a conversation mode. The LLM does the
// nuanced work; a deterministic pre-pass guards the booking path so that an
// explicit time selection can never be dropped, not even when the LLM call
// fails outright.
type Classifier struct {
	client LLMClient
	logger *logging.Logger
}

func NewClassifier(client LLMClient, logger *logging.Logger) *Classifier {
	if client == nil {
		panic("conversation: classifier llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{client: client, logger: logger}
}

// Classify determines the mode and appointment action for the turn.
func (c *Classifier) Classify(ctx context.Context, in ClassifyInput) Classification {
	currentMode := in.CurrentMode
	if currentMode == "" {
		currentMode = ModeFAQ
	}
	override := DetectBookingOverride(in.Message)

	result, err := c.classifyLLM(ctx, in, currentMode)
	if err != nil {
		c.logger.Warn("intent classification failed", "error", err, "current_mode", currentMode)
		// Degrade to the sticky mode rather than guessing, and let the
		// knowledge lookup compensate for the missing verdict.
		result = Classification{
			Mode:                 currentMode,
			Confidence:           ConfidenceLow,
			NeedsKnowledgeLookup: true,
		}
	}

	if override && result.Mode != ModeAppointment {
		result.Mode = ModeAppointment
		result.AppointmentAction = AppointmentActionBook
		result.Confidence = ConfidenceHigh
		result.Overridden = true
	}
	if result.Mode == ModeAppointment && result.AppointmentAction == "" {
		result.AppointmentAction = AppointmentActionBook
	}
	if result.Mode != ModeAppointment {
		result.AppointmentAction = ""
	}
	if identityPattern.MatchString(in.Message) {
		result.SpecialHandling = SpecialHandlingIdentity
		result.NeedsKnowledgeLookup = true
	}
	return result
}

func (c *Classifier) classifyLLM(ctx context.Context, in ClassifyInput, currentMode string) (Classification, error) {
	var history strings.Builder
	for _, msg := range in.Recent {
		history.WriteString(msg.Role)
		history.WriteString(": ")
		history.WriteString(msg.Content)
		history.WriteString("\n")
	}
	if history.Len() == 0 {
		history.WriteString("(none)\n")
	}

	prompt := fmt.Sprintf(classifierPrompt, currentMode, history.String(), in.Message)
	resp, err := c.client.Complete(ctx, LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   120,
		Temperature: 0,
	})
	if err != nil {
		return Classification{}, err
	}

	// The model sometimes wraps JSON in a code fence or commentary.
	content := strings.TrimSpace(resp.Text)
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		content = content[start : end+1]
	}

	var result Classification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Classification{}, fmt.Errorf("conversation: classifier response parse: %w", err)
	}

	switch result.Mode {
	case ModeFAQ, ModeAppointment, ModeSales, ModeLeadCapture:
	default:
		return Classification{}, fmt.Errorf("conversation: classifier returned unknown mode %q", result.Mode)
	}
	switch result.Confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		result.Confidence = ConfidenceLow
	}
	return result, nil
}
