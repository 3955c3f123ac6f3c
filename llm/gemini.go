package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// Gemini generates text with Google's Gemini models
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	policy    retry.Policy
}

// NewGemini opens a Gemini client. Close it when done.
func NewGemini(ctx context.Context, apiKey string, cfg config.LLMConfig, policy retry.Policy) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{
		client:    client,
		model:     cfg.GeminiModel,
		maxTokens: cfg.MaxTokens,
		policy:    policy,
	}, nil
}

// Close releases the underlying connection
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate concatenates the text parts of every candidate
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	name := g.model
	if req.Model != "" && strings.HasPrefix(req.Model, "gemini") {
		name = req.Model
	}
	model := g.client.GenerativeModel(name)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.maxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
	}

	var text string
	err := g.policy.Do(ctx, "gemini generate", func(ctx context.Context) error {
		resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
		if err != nil {
			return classifyGemini(err)
		}
		var b strings.Builder
		for _, c := range resp.Candidates {
			if c.Content == nil {
				continue
			}
			for _, part := range c.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
		if b.Len() == 0 {
			return retry.Permanent(errors.New("gemini returned no text"))
		}
		text = strings.TrimSpace(b.String())
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func classifyGemini(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &retry.StatusError{Service: "gemini", StatusCode: gerr.Code, Body: gerr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}
