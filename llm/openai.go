package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
	policy    retry.Policy
}

// NewOpenAI creates a client against cfg.BaseURL. The SDK's own retries are
// disabled; policy decides what is retried.
func NewOpenAI(apiKey string, cfg config.LLMConfig, policy retry.Policy) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		policy:    policy,
	}
}

// Generate sends one chat completion and returns the first choice's content
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.maxTokens
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "structured_response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        name,
					Description: openai.String("Structured data response"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	var content string
	err := o.policy.Do(ctx, "openai chat completion", func(ctx context.Context) error {
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return classifyOpenAI(err)
		}
		if len(resp.Choices) == 0 {
			return retry.Permanent(errors.New("no choices in response"))
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &retry.StatusError{
			Service:    "openai",
			StatusCode: apiErr.StatusCode,
			Body:       apiErr.RawJSON(),
		}
	}
	return fmt.Errorf("openai: %w", err)
}
