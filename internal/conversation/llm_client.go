package conversation

import "context"

// Chat roles as the model providers expect them on the wire.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation, including system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest is a provider-neutral completion request. Each adapter maps the
// System entries onto whatever prompt shape its provider wants.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse is the completed text plus the provider's reporting.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// TokenUsage mirrors the provider's token accounting for cost tracking.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMClient is satisfied by the Bedrock and Gemini adapters, the failover
// chain, and the offline stub.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
