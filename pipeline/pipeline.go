// Package pipeline wires the stages together for one request. Each stage is
// callable on its own, mirroring the HTTP surface, and Run chains them.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	research "fandom-explainer/01_research"
	script "fandom-explainer/02_script"
	audio "fandom-explainer/03_audio"
	visuals "fandom-explainer/04_visuals"
	subtitles "fandom-explainer/05_subtitles"
	render "fandom-explainer/06_render"
	upload "fandom-explainer/07_upload"
	"fandom-explainer/config"
	"fandom-explainer/llm"
	"fandom-explainer/logging"
	"fandom-explainer/media"
	"fandom-explainer/pexels"
	"fandom-explainer/tts"
	"fandom-explainer/types"
)

// Publisher uploads a finished video
type Publisher interface {
	Run(ctx context.Context, videoFile string, meta upload.Metadata) (string, string, error)
}

// Deps are the external collaborators every stage talks through
type Deps struct {
	Gen       llm.TextGenerator
	Synth     tts.Synthesizer
	Stock     pexels.Searcher
	Tool      media.Tool
	Publisher Publisher
}

// Pipeline runs the stages for one concept and theme at a time
type Pipeline struct {
	cfg        *config.Config
	deps       Deps
	researcher *research.Researcher
	planner    *script.Planner
	builder    *audio.Builder
	resolver   *visuals.Resolver
	captions   *subtitles.Writer
	compositor *render.Compositor
	logger     zerolog.Logger
}

// New builds a Pipeline from explicit collaborators
func New(cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		researcher: research.New(cfg, deps.Gen),
		planner:    script.New(cfg, deps.Gen),
		builder:    audio.New(cfg, deps.Synth, deps.Tool),
		resolver:   visuals.New(cfg, deps.Stock, deps.Tool),
		captions:   subtitles.New(cfg, deps.Tool),
		compositor: render.New(cfg, deps.Tool),
		logger:     logging.Stage("pipeline"),
	}
}

// Open builds the real clients from cfg and the environment. The YouTube
// publisher is only created when upload.enabled is set.
func Open(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("text generator: %w", err)
	}
	synth, err := tts.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("speech synthesizer: %w", err)
	}
	stock, err := pexels.NewFromEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("stock media: %w", err)
	}
	deps := Deps{Gen: gen, Synth: synth, Stock: stock, Tool: media.New()}
	if cfg.Upload.Enabled {
		uploader, err := upload.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Publisher = uploader
	}
	return New(cfg, deps), nil
}

// Close releases clients that hold connections
func (p *Pipeline) Close() error {
	if c, ok := p.deps.Gen.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Subtopics suggests three angles on a concept
func (p *Pipeline) Subtopics(ctx context.Context, concept string) ([]types.Subtopic, error) {
	return p.researcher.Subtopics(ctx, concept)
}

// Script plans the narrated scenes for a concept in a theme
func (p *Pipeline) Script(ctx context.Context, concept, fandom string) (*types.ScriptPlan, error) {
	return p.planner.Plan(ctx, concept, fandom)
}

// Voiceover narrates a plan and lays out its timeline
func (p *Pipeline) Voiceover(ctx context.Context, plan *types.ScriptPlan, voice string) (*types.Voiceover, error) {
	return p.builder.Build(ctx, plan, voice)
}

// Video resolves media for every timed scene and renders the final file.
// Nothing partial is returned: a missing scene fails the whole video.
func (p *Pipeline) Video(ctx context.Context, vo *types.Voiceover) (*types.VideoResult, error) {
	if vo == nil || len(vo.Timestamps) == 0 {
		return nil, fmt.Errorf("%w: voiceover data with timestamps is required", types.ErrInvalidInput)
	}
	if strings.TrimSpace(vo.AudioPath) == "" {
		return nil, fmt.Errorf("%w: voiceover audio path is required", types.ErrInvalidInput)
	}
	if _, err := os.Stat(vo.AudioPath); err != nil {
		return nil, fmt.Errorf("%w: voiceover audio %s: %w", types.ErrMediaNotFound, vo.AudioPath, err)
	}

	total, err := p.deps.Tool.Probe(ctx, vo.AudioPath)
	if err != nil || total <= 0 {
		if vo.TotalDuration <= 0 {
			return nil, fmt.Errorf("%w: cannot measure narration %s: %v", types.ErrInvalidInput, vo.AudioPath, err)
		}
		p.logger.Warn().Err(err).Float64("declared", vo.TotalDuration).Msg("narration probe failed, using declared duration")
		total = vo.TotalDuration
	}

	p.logger.Info().Str("fandom", vo.Theme).Int("scenes", len(vo.Timestamps)).Float64("total_sec", total).Msg("building video")

	clips, err := p.resolver.ResolveAll(ctx, vo.Timestamps, total)
	if err != nil {
		return nil, err
	}
	file, err := p.compositor.Compose(ctx, clips, vo.AudioPath, vo.Theme, total)
	if err != nil {
		return nil, err
	}

	result := &types.VideoResult{
		VideoPath:     file.Path,
		VideoFilename: file.Filename,
		Duration:      file.Duration,
		ScenesCount:   len(vo.Timestamps),
		VideoTitle:    vo.Title,
		Fandom:        vo.Theme,
		Concept:       vo.Concept,
	}
	if p.cfg.Subtitles.Enabled {
		result.CaptionsPath = p.caption(ctx, vo.Timestamps, file)
	}
	return result, nil
}

// caption failures never fail the video
func (p *Pipeline) caption(ctx context.Context, timeline []types.TimedScene, file *types.VideoFile) string {
	name := strings.TrimSuffix(file.Filename, ".mp4")
	srt, err := p.captions.WriteSRT(timeline, p.cfg.Paths.Video, name)
	if err != nil {
		p.logger.Warn().Err(err).Msg("captions skipped")
		return ""
	}
	if p.cfg.Subtitles.BurnIntoVideo {
		if err := subtitles.ValidateSRT(srt); err != nil {
			p.logger.Warn().Err(err).Msg("captions unusable, not burning")
			return srt
		}
		if err := p.captions.Burn(ctx, file.Path, srt); err != nil {
			p.logger.Warn().Err(err).Msg("subtitle burn failed, keeping video without subtitles")
		}
	}
	return srt
}

// Run chains script, voiceover and video for one request, recording each
// stage's output on state as it completes. When a publisher is configured
// the video is uploaded last.
func (p *Pipeline) Run(ctx context.Context, concept, fandom string, state *types.PipelineState) error {
	state.Concept = concept
	state.Theme = fandom

	plan, err := p.Script(ctx, concept, fandom)
	if err != nil {
		return stageError(state, "script", err)
	}
	state.Script = plan

	vo, err := p.Voiceover(ctx, plan, "")
	if err != nil {
		return stageError(state, "voiceover", err)
	}
	state.Voiceover = vo

	video, err := p.Video(ctx, vo)
	if err != nil {
		return stageError(state, "video", err)
	}
	state.Video = video

	if p.deps.Publisher == nil || !p.cfg.Upload.Enabled {
		return nil
	}
	meta := upload.BuildMetadata(plan.Title, plan.Concept, plan.Description, plan.Theme, p.cfg.Upload)
	id, url, err := p.deps.Publisher.Run(ctx, video.VideoPath, meta)
	if err != nil {
		return stageError(state, "upload", err)
	}
	state.YouTubeID = id
	state.YouTubeURL = url
	return nil
}

func stageError(state *types.PipelineState, stage string, err error) error {
	err = fmt.Errorf("%s: %w", stage, err)
	state.Error = err.Error()
	return err
}
