package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/llm"
	"fandom-explainer/theme"
	"fandom-explainer/types"
)

const planPrompt = `Create an educational video script that teaches "%[1]s" using characters, settings, and terminology from %[2]s.
Return your response as a valid JSON object with the following structure:
{
    "educationalConcept": "%[1]s",
    "conceptDescription": "Brief explanation of the concept in standard terms",
    "chosenFandom": "%[2]s",
    "videoTitle": "Catchy title for the video",
    "narrator": "%[3]s",
    "scenes": [
        {
            "sceneNumber": 1,
            "videoQuery": "3-5 simple, searchable keywords for finding video content for scene start",
            "imageQuery": "3-5 simple, searchable keywords for finding image content for scene end",
            "narrationScript": "Brief narration that can be spoken in 5 seconds"
        }
    ]
}

Guidelines:
narrationScript:
- Keep narrationScript short enough to be spoken within 5-8 seconds
- Focus on universally recognizable concepts from the fandom
- Ensure logical flow across scenes
- Write the storyline from the narrator's perspective, using their typical speech patterns and personality

videoQuery and imageQuery:
- Use simple, generic keywords derived from what is being narrated in narrationScript
- videoQuery should be more focused on the first part of the narrationScript
- imageQuery should be more focused on the last part of the narrationScript
- These keywords are used to search copyright-free stock libraries like Pexels
- Avoid franchise-specific names that are hard to find (e.g. use 'desert planet' instead of 'Tatooine')
- When referencing characters, use descriptive terms (e.g. 'wizard with wand' instead of 'Harry Potter')

Note: Maximum %[4]d scenes`

var planSchema = llm.GenerateSchema[types.ScriptPlan]()

// Planner turns a concept and a fandom theme into a scene-by-scene script
type Planner struct {
	cfg *config.Config
	gen llm.TextGenerator
}

// New creates a new script Planner
func New(cfg *config.Config, gen llm.TextGenerator) *Planner {
	return &Planner{cfg: cfg, gen: gen}
}

// Plan generates the script. Upstream failures surface as types.ErrUpstream;
// a reply that cannot be decoded degrades to DefaultPlan.
func (p *Planner) Plan(ctx context.Context, concept, fandom string) (*types.ScriptPlan, error) {
	concept = strings.TrimSpace(concept)
	fandom = strings.TrimSpace(fandom)
	if concept == "" {
		return nil, fmt.Errorf("%w: concept is required", types.ErrInvalidInput)
	}
	if fandom == "" {
		return nil, fmt.Errorf("%w: fandom is required", types.ErrInvalidInput)
	}

	logger := log.With().Str("stage", "script").Logger()
	narrator := theme.Narrator(fandom)
	logger.Info().Str("concept", concept).Str("fandom", fandom).Str("narrator", narrator).Msg("planning script")

	content, err := p.gen.Generate(ctx, llm.Request{
		System:     p.cfg.Script.SystemMessage,
		Prompt:     fmt.Sprintf(planPrompt, concept, fandom, narrator, p.cfg.Script.MaxScenes),
		Model:      p.cfg.LLM.Model,
		MaxTokens:  p.cfg.LLM.MaxTokens,
		Schema:     planSchema,
		SchemaName: "script_plan",
	})
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	plan, src := decodePlan(content)
	if plan == nil {
		logger.Warn().Str("raw", preview(content)).Msg("script reply unusable, falling back to default plan")
		plan = DefaultPlan(concept, fandom)
		src = sourceDefault
	}
	normalize(plan, concept, fandom, narrator, p.cfg.Script.MaxScenes)

	logger.Info().Str("source", string(src)).Int("scenes", len(plan.Scenes)).Str("title", plan.Title).Msg("script ready")
	return plan, nil
}

// DefaultPlan is the deterministic two-scene plan used when the model's
// reply cannot be decoded.
func DefaultPlan(concept, fandom string) *types.ScriptPlan {
	return &types.ScriptPlan{
		Concept:     concept,
		Description: "Understanding " + concept,
		Theme:       fandom,
		Title:       fmt.Sprintf("%s teaches %s", fandom, concept),
		Narrator:    theme.Narrator(fandom),
		Scenes: []types.Scene{
			{
				SceneNumber:     1,
				NarrationScript: fmt.Sprintf("Welcome to a lesson about %s.", concept),
				VideoQuery:      "educational video",
				ImageQuery:      "knowledge learning",
			},
			{
				SceneNumber:     2,
				NarrationScript: fmt.Sprintf("Let's explore the key concepts of %s.", concept),
				VideoQuery:      "studying learning",
				ImageQuery:      "education class",
			},
		},
	}
}

// normalize pins the request metadata onto the plan, caps the scene count
// and numbers scenes 1..n in order.
func normalize(plan *types.ScriptPlan, concept, fandom, narrator string, maxScenes int) {
	plan.Concept = concept
	plan.Theme = fandom
	plan.Narrator = narrator
	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = fmt.Sprintf("%s teaches %s", fandom, concept)
	}
	if strings.TrimSpace(plan.Description) == "" {
		plan.Description = "Understanding " + concept
	}

	if maxScenes > 0 && len(plan.Scenes) > maxScenes {
		plan.Scenes = plan.Scenes[:maxScenes]
	}
	for i := range plan.Scenes {
		s := &plan.Scenes[i]
		s.SceneNumber = i + 1
		s.NarrationScript = strings.TrimSpace(s.NarrationScript)
		s.VideoQuery = strings.TrimSpace(s.VideoQuery)
		s.ImageQuery = strings.TrimSpace(s.ImageQuery)
	}
}

func preview(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
