package subtitles

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/media"
	"fandom-explainer/types"
)

// Writer produces SRT captions straight from the narration timeline and can
// burn them into a rendered video.
type Writer struct {
	cfg  *config.Config
	tool media.Tool
}

// New creates a new caption Writer
func New(cfg *config.Config, tool media.Tool) *Writer {
	return &Writer{cfg: cfg, tool: tool}
}

// WriteSRT writes one cue per narrated scene to <dir>/<name>.srt. Scenes
// without text (such as a tail filler) produce no cue.
func (w *Writer) WriteSRT(timeline []types.TimedScene, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	var b strings.Builder
	cue := 0
	for _, s := range timeline {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", cue, Timestamp(s.StartTime), Timestamp(s.EndTime), text)
	}
	if cue == 0 {
		return "", fmt.Errorf("%w: timeline has no narrated scenes", types.ErrInvalidInput)
	}

	path := filepath.Join(dir, name+".srt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write srt: %w", err)
	}
	log.Info().Str("stage", "subtitles").Str("file", path).Int("cues", cue).Msg("captions written")
	return path, nil
}

// Burn re-encodes video with the captions drawn in, replacing the file in
// place. On failure the original video is left untouched.
func (w *Writer) Burn(ctx context.Context, video, srt string) error {
	s := w.cfg.Subtitles
	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,Bold=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=%.0f,Alignment=2,MarginV=%d'",
		escapeSubtitlePath(srt),
		s.Font,
		s.FontSize,
		boolToInt(s.FontWeight == "bold"),
		s.StrokeWidth,
		s.MarginBottom,
	)

	tmp := video + ".captioned.mp4"
	err := w.tool.Run(ctx,
		"-i", video,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", w.cfg.Render.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		tmp,
	)
	if err == nil {
		err = os.Rename(tmp, video)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("burn subtitles: %w", err)
	}
	log.Info().Str("stage", "subtitles").Str("file", video).Msg("subtitles burned")
	return nil
}

// Timestamp formats seconds as an SRT HH:MM:SS,mmm time
func Timestamp(sec float64) string {
	ms := media.Millis(sec)
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	sRem := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sRem, ms%1000)
}

// ValidateSRT checks that the SRT file is non-empty and has at least one cue
func ValidateSRT(srtFile string) error {
	f, err := os.Open(srtFile)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
	}
	if lineCount < 3 {
		return fmt.Errorf("SRT file appears empty or malformed (%d lines)", lineCount)
	}
	return nil
}

func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	return path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
