package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/media"
	"fandom-explainer/theme"
	"fandom-explainer/tts"
	"fandom-explainer/types"
)

// Builder synthesizes narration scene by scene and lays it out on a timeline
type Builder struct {
	cfg   *config.Config
	synth tts.Synthesizer
	tool  media.Tool
	now   func() time.Time
}

// New creates a new narration Builder
func New(cfg *config.Config, synth tts.Synthesizer, tool media.Tool) *Builder {
	return &Builder{cfg: cfg, synth: synth, tool: tool, now: time.Now}
}

type sceneAudio struct {
	scene    types.Scene
	path     string
	paddedMs int64
}

// Build renders every narrated scene, pads each to the minimum scene length
// plus a pause, and concatenates them into one MP3 under paths.audio.
// voiceOverride, when non-empty, replaces the theme's voice.
func (b *Builder) Build(ctx context.Context, plan *types.ScriptPlan, voiceOverride string) (*types.Voiceover, error) {
	if plan == nil || len(plan.Scenes) == 0 {
		return nil, fmt.Errorf("%w: script with scenes is required", types.ErrInvalidInput)
	}
	logger := log.With().Str("stage", "audio").Logger()

	voice := strings.TrimSpace(voiceOverride)
	if voice == "" {
		voice = theme.Voice(b.cfg.Audio.Provider, plan.Theme)
	}
	logger.Info().Str("voice", voice).Str("fandom", plan.Theme).Int("scenes", len(plan.Scenes)).Msg("generating narration")

	if err := os.MkdirAll(b.cfg.Paths.Scratch, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	scratch, err := os.MkdirTemp(b.cfg.Paths.Scratch, "voiceover-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	minMs := media.Millis(b.cfg.Audio.MinSceneSec)
	pauseMs := media.Millis(b.cfg.Audio.PauseSec)

	var clips []sceneAudio
	for i, scene := range plan.Scenes {
		if strings.TrimSpace(scene.NarrationScript) == "" {
			logger.Warn().Int("scene", scene.SceneNumber).Msg("scene has no narration, skipping")
			continue
		}
		if len(clips) > 0 && b.cfg.Audio.InterSceneCooldown > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.cfg.Audio.InterSceneCooldown):
			}
		}

		clip, err := b.renderScene(ctx, scratch, i, scene, voice, minMs, pauseMs)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
		}
		logger.Info().Int("scene", scene.SceneNumber).Int64("padded_ms", clip.paddedMs).Msg("scene narrated")
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: no scene has narration text", types.ErrInvalidInput)
	}

	padded := make([]int64, len(clips))
	files := make([]string, len(clips))
	for i, c := range clips {
		padded[i] = c.paddedMs
		files[i] = c.path
	}
	spans, totalMs := Layout(padded)

	if err := os.MkdirAll(b.cfg.Paths.Audio, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	filename := fmt.Sprintf("voiceover_%s_%s.mp3", b.now().Format("20060102_150405"), uuid.NewString()[:8])
	outPath := filepath.Join(b.cfg.Paths.Audio, filename)
	if err := b.concat(ctx, scratch, files, outPath); err != nil {
		return nil, fmt.Errorf("%w: concatenate narration: %w", types.ErrRenderFailed, err)
	}

	timeline := make([]types.TimedScene, len(clips))
	for i, c := range clips {
		timeline[i] = types.TimedScene{
			SceneNumber: c.scene.SceneNumber,
			StartTime:   media.Seconds(spans[i].StartMs),
			EndTime:     media.Seconds(spans[i].EndMs),
			Text:        c.scene.NarrationScript,
			VideoQuery:  c.scene.VideoQuery,
			ImageQuery:  c.scene.ImageQuery,
		}
	}

	vo := &types.Voiceover{
		Concept:       plan.Concept,
		Description:   plan.Description,
		Theme:         plan.Theme,
		Title:         plan.Title,
		Timestamps:    timeline,
		AudioPath:     outPath,
		AudioFilename: filename,
		TotalDuration: media.Seconds(totalMs),
	}
	logger.Info().Str("file", outPath).Float64("total_sec", vo.TotalDuration).Msg("narration ready")
	return vo, nil
}

// renderScene synthesizes one scene, measures it and writes a padded copy
func (b *Builder) renderScene(ctx context.Context, dir string, idx int, scene types.Scene, voice string, minMs, pauseMs int64) (sceneAudio, error) {
	data, err := b.synth.Synthesize(ctx, scene.NarrationScript, voice)
	if err != nil {
		return sceneAudio{}, err
	}
	raw := filepath.Join(dir, fmt.Sprintf("scene_%02d_raw.mp3", idx))
	if err := os.WriteFile(raw, data, 0644); err != nil {
		return sceneAudio{}, fmt.Errorf("write scene audio: %w", err)
	}

	dur, err := b.tool.Probe(ctx, raw)
	if err != nil {
		return sceneAudio{}, fmt.Errorf("%w: measure scene audio: %w", types.ErrUpstream, err)
	}
	paddedMs := PadMillis(media.Millis(dur), minMs, pauseMs)

	out := filepath.Join(dir, fmt.Sprintf("scene_%02d.mp3", idx))
	sec := media.FormatSec(media.Seconds(paddedMs))
	if err := b.tool.Run(ctx,
		"-i", raw,
		"-af", "apad=whole_dur="+sec,
		"-t", sec,
		"-ar", "44100",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		out,
	); err != nil {
		return sceneAudio{}, fmt.Errorf("%w: pad scene audio: %w", types.ErrRenderFailed, err)
	}
	return sceneAudio{scene: scene, path: out, paddedMs: paddedMs}, nil
}

func (b *Builder) concat(ctx context.Context, dir string, files []string, out string) error {
	list := filepath.Join(dir, "concat_list.txt")
	if err := media.WriteConcatList(list, files); err != nil {
		return err
	}
	return b.tool.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		out,
	)
}
