package render

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/media"
	"fandom-explainer/types"
)

// Compositor renders the final MP4 from prepared clips and the narration
type Compositor struct {
	cfg    *config.Config
	tool   media.Tool
	intn   func(n int) int
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a new Compositor
func New(cfg *config.Config, tool media.Tool) *Compositor {
	return &Compositor{
		cfg:    cfg,
		tool:   tool,
		intn:   rand.Intn,
		now:    time.Now,
		logger: log.With().Str("stage", "render").Logger(),
	}
}

type profile struct {
	name    string
	fps     int
	threads int
}

// Compose overlays clips on a black canvas at their start times, mixes the
// narration with theme music and writes a video of exactly total seconds.
// The prepared clips are removed afterwards whatever the outcome.
func (c *Compositor) Compose(ctx context.Context, clips []types.VisualClip, narration, fandom string, total float64) (*types.VideoFile, error) {
	if !c.cfg.Render.KeepIntermediates {
		defer releaseClips(clips, c.logger)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: no visual clips to compose", types.ErrInvalidInput)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total duration must be positive, got %.3f", types.ErrInvalidInput, total)
	}

	sorted := SortClips(clips)
	issues := CheckCoverage(sorted, total, c.cfg.Render.GapToleranceSec)
	for _, is := range issues {
		c.logger.Warn().Str("kind", is.Kind).Float64("at", is.At).Float64("size", is.Size).Msg("timeline coverage problem")
	}
	if len(issues) > 0 && c.cfg.Render.CoverageStrict {
		return nil, fmt.Errorf("%w: timeline coverage: %s", types.ErrRenderFailed, issues[0])
	}

	if err := os.MkdirAll(c.cfg.Paths.Scratch, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	work, err := os.MkdirTemp(c.cfg.Paths.Scratch, "render-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(work)

	c.logger.Info().Int("clips", len(sorted)).Float64("total_sec", total).Msg("composing video")

	audio, music, err := c.mixAudio(ctx, work, narration, fandom, total)
	if err != nil {
		c.logger.Warn().Err(err).Msg("audio mix failed, using narration only")
		audio, music = narration, ""
	}

	if err := os.MkdirAll(c.cfg.Paths.Video, 0755); err != nil {
		return nil, fmt.Errorf("create video dir: %w", err)
	}
	filename := fmt.Sprintf("video_%d_%s.mp4", c.now().Unix(), uuid.NewString()[:8])
	final := filepath.Join(c.cfg.Paths.Video, filename)

	r := c.cfg.Render
	profiles := []profile{
		{name: "primary", fps: r.FPS, threads: r.Threads},
		{name: "conservative", fps: r.FallbackFPS, threads: r.FallbackThreads},
	}
	var renderErr error
	for _, p := range profiles {
		renderErr = c.render(ctx, sorted, audio, total, final, p)
		if renderErr == nil {
			break
		}
		c.logger.Warn().Err(renderErr).Str("profile", p.name).Msg("render attempt failed")
	}
	if renderErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRenderFailed, renderErr)
	}

	c.logger.Info().Str("file", final).Str("music", music).Msg("video ready")
	return &types.VideoFile{Path: final, Filename: filename, Duration: total, Music: music}, nil
}

// mixAudio fades the narration and lays looped theme music under it at the
// configured volume. Without a track only the fades are applied.
func (c *Compositor) mixAudio(ctx context.Context, work, narration, fandom string, total float64) (string, string, error) {
	r := c.cfg.Render
	out := filepath.Join(work, "mix.m4a")
	length := media.FormatSec(total)
	fadeOutStart := total - r.FadeOutSec
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	narrationChain := fmt.Sprintf("[0:a]atrim=0:%s,asetpts=PTS-STARTPTS,afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s",
		length, media.FormatSec(r.FadeInSec), media.FormatSec(fadeOutStart), media.FormatSec(r.FadeOutSec))

	music := PickMusic(c.cfg.Paths.Music, fandom, c.intn)
	args := []string{"-i", narration}
	var filter string
	if music == "" {
		c.logger.Info().Str("fandom", fandom).Msg("no background music available")
		filter = narrationChain + "[aout]"
	} else {
		musicDur, err := c.tool.Probe(ctx, music)
		if err != nil {
			return "", "", err
		}
		if copies := media.LoopCount(musicDur, total); copies > 1 {
			args = append(args, "-stream_loop", strconv.Itoa(copies-1))
		}
		args = append(args, "-i", music)
		filter = narrationChain + "[n];" +
			fmt.Sprintf("[1:a]atrim=0:%s,asetpts=PTS-STARTPTS,volume=%.2f[m];", length, r.MusicVolume) +
			"[n][m]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]"
	}
	args = append(args,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-t", length,
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	)
	if err := c.tool.Run(ctx, args...); err != nil {
		return "", "", err
	}
	return out, music, nil
}

// render writes to final+".temp" and renames once the file is non-empty
func (c *Compositor) render(ctx context.Context, clips []types.VisualClip, audio string, total float64, final string, p profile) error {
	v := c.cfg.Visuals
	length := media.FormatSec(total)
	tmp := final + ".temp"

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", v.Width, v.Height, p.fps, length),
	}
	for _, clip := range clips {
		args = append(args, "-i", clip.Path)
	}
	args = append(args, "-i", audio)

	args = append(args,
		"-filter_complex", overlayGraph(clips),
		"-map", fmt.Sprintf("[v%d]", len(clips)),
		"-map", fmt.Sprintf("%d:a", len(clips)+1),
		"-t", length,
		"-r", strconv.Itoa(p.fps),
		"-c:v", "libx264",
		"-preset", c.cfg.Render.Preset,
		"-threads", strconv.Itoa(p.threads),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-f", "mp4",
		tmp,
	)

	if err := c.tool.Run(ctx, args...); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("render produced no output")
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize %s: %w", final, err)
	}
	return nil
}

// overlayGraph shifts each clip to its start time and stacks the clips over
// the canvas in order. Input 0 is the canvas, inputs 1..n the clips.
func overlayGraph(clips []types.VisualClip) string {
	var parts []string
	for i, clip := range clips {
		parts = append(parts, fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS+%s/TB[c%d]", i+1, media.FormatSec(clip.StartTime), i+1))
	}
	prev := "[0:v]"
	for i, clip := range clips {
		out := fmt.Sprintf("[v%d]", i+1)
		parts = append(parts, fmt.Sprintf("%s[c%d]overlay=eof_action=pass:enable='between(t,%s,%s)'%s",
			prev, i+1, media.FormatSec(clip.StartTime), media.FormatSec(clip.End()), out))
		prev = out
	}
	return strings.Join(parts, ";")
}

func releaseClips(clips []types.VisualClip, logger zerolog.Logger) {
	for _, clip := range clips {
		if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", clip.Path).Msg("could not remove clip")
		}
	}
}
