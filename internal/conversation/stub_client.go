package conversation

import "context"

// StubLLMClient returns a fixed reply for every request. It keeps the
// pipeline runnable in environments with no model configured.
type StubLLMClient struct {
	Reply string
}

func (s StubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	reply := s.Reply
	if reply == "" {
		reply = "Thanks for reaching out! A member of our team will be with you shortly."
	}
	return LLMResponse{Text: reply, StopReason: "stub"}, nil
}
