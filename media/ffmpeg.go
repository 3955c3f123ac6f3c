// Package media wraps the ffmpeg and ffprobe binaries and holds the filter
// expressions shared by the audio, visuals and render stages.
package media

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tool is the subset of ffmpeg/ffprobe the pipeline relies on
type Tool interface {
	// Probe returns the container duration of a media file in seconds
	Probe(ctx context.Context, path string) (float64, error)
	// Run executes ffmpeg with args; the output file is always the last arg
	Run(ctx context.Context, args ...string) error
}

// FFmpeg shells out to the ffmpeg and ffprobe binaries on PATH
type FFmpeg struct {
	Bin      string
	ProbeBin string
}

// New returns an FFmpeg using the default binary names
func New() *FFmpeg {
	return &FFmpeg{Bin: "ffmpeg", ProbeBin: "ffprobe"}
}

// Probe uses ffprobe to read the format duration
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, f.ProbeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unreadable duration %q", path, strings.TrimSpace(string(out)))
	}
	return dur, nil
}

// Run executes ffmpeg, overwriting the output. stderr is kept so a failure
// carries ffmpeg's own explanation.
func (f *FFmpeg) Run(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, f.Bin, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Str("bin", f.Bin).Strs("args", full).Msg("exec")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 600))
	}
	return nil
}

// LoopCount is how many back-to-back copies of a src-second clip are needed
// to cover need seconds. A source at least as long as need plays once.
func LoopCount(src, need float64) int {
	if src <= 0 || src >= need {
		return 1
	}
	return int(math.Floor(need/src)) + 1
}

// Millis converts seconds to whole milliseconds
func Millis(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// Seconds converts milliseconds back to seconds
func Seconds(ms int64) float64 {
	return float64(ms) / 1000
}

// Standardize scales into a w×h frame preserving aspect ratio and pads the
// remainder with black.
func Standardize(w, h int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1",
		w, h, w, h,
	)
}

// ZoomOut builds a zoompan expression that eases linearly from start to end
// zoom over the whole segment, centred, at the given output size.
func ZoomOut(w, h, fps int, dur, start, end float64) string {
	frames := int(math.Max(1, math.Round(dur*float64(fps))))
	step := (start - end) / float64(frames)
	return fmt.Sprintf(
		"zoompan=z='max(%.4f-on*%.6f,%.4f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		start, step, end, frames, w, h, fps,
	)
}

// FormatSec renders seconds the way ffmpeg's -t and -ss accept them
func FormatSec(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// WriteConcatList writes an ffmpeg concat demuxer list for files
func WriteConcatList(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(f, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
