// Command llmtest exercises the configured model chain from the terminal so
// provider credentials can be verified without starting the API server.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpeters88/chatdesk/internal/app/bootstrap"
	appconfig "github.com/mpeters88/chatdesk/internal/config"
	"github.com/mpeters88/chatdesk/internal/conversation"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("info")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, cleanup, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build llm client: %v", err)
	}
	defer cleanup()

	messages := []conversation.ChatMessage{
		{Role: conversation.ChatRoleUser, Content: "Hi, do you have anything available this Saturday?"},
		{Role: conversation.ChatRoleAssistant, Content: "We do! I can check Saturday openings for you. Morning or afternoon?"},
		{Role: conversation.ChatRoleUser, Content: "Afternoon, please."},
	}

	req := conversation.LLMRequest{
		Model: cfg.BedrockModelID,
		System: []string{
			"You are a friendly receptionist for a small business. Keep responses brief and helpful.",
		},
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0.7,
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		log.Fatalf("complete: %v", err)
	}

	fmt.Println("Reply:")
	fmt.Println(resp.Text)
	fmt.Printf("\nstop_reason=%s input_tokens=%d output_tokens=%d\n",
		resp.StopReason, resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
