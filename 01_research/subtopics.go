package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/llm"
	"fandom-explainer/types"
)

const subtopicCount = 3

const subtopicPrompt = `I need you to analyze the educational concept I provide and identify exactly 3 key subtopics that are most important for understanding it. Please format your response as valid JSON with this structure:

{"subtopics": [{"title": "First subtopic title"}, {"title": "Second subtopic title"}, {"title": "Third subtopic title"}]}

No introduction or explanation needed, just return the JSON. The educational concept is: %s`

type subtopicList struct {
	Subtopics []types.Subtopic `json:"subtopics" jsonschema_description:"Exactly three subtopics, most fundamental first."`
}

var subtopicSchema = llm.GenerateSchema[subtopicList]()

// Researcher suggests subtopics for a concept before a script is planned
type Researcher struct {
	cfg *config.Config
	gen llm.TextGenerator
}

// New creates a new Researcher
func New(cfg *config.Config, gen llm.TextGenerator) *Researcher {
	return &Researcher{cfg: cfg, gen: gen}
}

// Subtopics asks the model for three subtopics. Any failure past input
// validation falls back to a fixed trio built from the concept.
func (r *Researcher) Subtopics(ctx context.Context, concept string) ([]types.Subtopic, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, fmt.Errorf("%w: concept is required", types.ErrInvalidInput)
	}
	logger := log.With().Str("stage", "research").Logger()

	content, err := r.gen.Generate(ctx, llm.Request{
		Prompt:     fmt.Sprintf(subtopicPrompt, concept),
		Model:      r.cfg.LLM.Model,
		MaxTokens:  r.cfg.LLM.MaxTokens,
		Schema:     subtopicSchema,
		SchemaName: "subtopics",
	})
	if err != nil {
		logger.Warn().Err(err).Str("concept", concept).Msg("subtopic request failed, using defaults")
		return DefaultSubtopics(concept), nil
	}

	if subs, src, ok := decodeSubtopics(content); ok {
		logger.Info().Str("concept", concept).Str("source", string(src)).Int("count", len(subs)).Msg("subtopics ready")
		return subs, nil
	}
	logger.Warn().Str("concept", concept).Str("raw", preview(content)).Msg("unparseable subtopics, using defaults")
	return DefaultSubtopics(concept), nil
}

func decodeSubtopics(content string) ([]types.Subtopic, llm.Source, bool) {
	for _, c := range llm.Candidates(content) {
		var list subtopicList
		if err := json.Unmarshal([]byte(c.Text), &list); err != nil {
			continue
		}
		var out []types.Subtopic
		for _, s := range list.Subtopics {
			if t := strings.TrimSpace(s.Title); t != "" {
				out = append(out, types.Subtopic{Title: t})
			}
		}
		if len(out) == 0 {
			continue
		}
		if len(out) > subtopicCount {
			out = out[:subtopicCount]
		}
		return out, c.Source, true
	}
	return nil, "", false
}

// DefaultSubtopics is the deterministic fallback trio
func DefaultSubtopics(concept string) []types.Subtopic {
	c := titleCase(concept)
	return []types.Subtopic{
		{Title: "Introduction to " + c},
		{Title: "Key Components of " + c},
		{Title: "Applications of " + c},
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func preview(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
