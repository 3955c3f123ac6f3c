// Package llm provides the text-generation clients used by the research and
// script stages. Every provider is reached through TextGenerator so stages
// never see a vendor SDK.
package llm

import (
	"context"
	"fmt"
	"os"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// Request is one prompt sent to a language model
type Request struct {
	System    string
	Prompt    string
	Model     string
	MaxTokens int
	// Schema, when set, asks providers that support it for structured JSON
	// matching the reflected schema.
	Schema     any
	SchemaName string
}

// TextGenerator turns a prompt into text
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the generator selected by cfg.LLM.Provider. Keys come from the
// environment.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}

	switch cfg.LLM.Provider {
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return NewGemini(ctx, key, cfg.LLM, policy)
	default:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			key = os.Getenv("API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY (or API_KEY) environment variable not set")
		}
		return NewOpenAI(key, cfg.LLM, policy), nil
	}
}
