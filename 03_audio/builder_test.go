package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fandom-explainer/config"
	"fandom-explainer/media/mediatest"
	"fandom-explainer/types"
)

// fakeSynth returns "dur=<sec>" bodies so the fake probe can measure them
type fakeSynth struct {
	durations map[string]float64
	voices    []string
	err       error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("dur=%.3f", f.durations[text])), nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.Audio = filepath.Join(root, "audio")
	cfg.Paths.Scratch = filepath.Join(root, "scratch")
	cfg.Audio.InterSceneCooldown = 0
	return cfg
}

func plan(fandom string, narrations ...string) *types.ScriptPlan {
	p := &types.ScriptPlan{Concept: "Gravity", Theme: fandom, Title: "t"}
	for i, n := range narrations {
		p.Scenes = append(p.Scenes, types.Scene{
			SceneNumber:     i + 1,
			NarrationScript: n,
			VideoQuery:      fmt.Sprintf("video %d", i+1),
			ImageQuery:      fmt.Sprintf("image %d", i+1),
		})
	}
	return p
}

func TestPadMillis(t *testing.T) {
	assert.Equal(t, int64(5000), PadMillis(4500, 4500, 500))
	assert.Equal(t, int64(5000), PadMillis(2000, 4500, 500))
	assert.Equal(t, int64(7700), PadMillis(7200, 4500, 500))
	assert.Equal(t, int64(500), PadMillis(0, 0, 500))
}

func TestLayoutIsGapless(t *testing.T) {
	for n := 1; n <= 3; n++ {
		padded := []int64{5000, 7321, 5000}[:n]
		spans, total := Layout(padded)
		require.Len(t, spans, n)
		assert.Zero(t, spans[0].StartMs)
		for i := 1; i < n; i++ {
			assert.Equal(t, spans[i-1].EndMs, spans[i].StartMs)
		}
		assert.Equal(t, total, spans[n-1].EndMs)

		var sum int64
		for _, p := range padded {
			sum += p
		}
		assert.Equal(t, sum, total)
	}
}

func TestBuildHarryPotter(t *testing.T) {
	cfg := testConfig(t)
	synth := &fakeSynth{durations: map[string]float64{
		"Lumos lights the way.":  4.5,
		"Gravity pulls brooms.":  2.0,
		"Mass bends space-time.": 6.25,
	}}
	tool := &mediatest.Fake{}
	b := New(cfg, synth, tool)
	b.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }

	vo, err := b.Build(context.Background(), plan("Harry Potter",
		"Lumos lights the way.", "Gravity pulls brooms.", "Mass bends space-time."), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"nDJIICjR9zfJExIFeSCN", "nDJIICjR9zfJExIFeSCN", "nDJIICjR9zfJExIFeSCN"}, synth.voices)
	require.Len(t, vo.Timestamps, 3)
	assert.Equal(t, 0.0, vo.Timestamps[0].StartTime)
	assert.Equal(t, 5.0, vo.Timestamps[0].EndTime)
	assert.Equal(t, 5.0, vo.Timestamps[1].StartTime)
	assert.Equal(t, 10.0, vo.Timestamps[1].EndTime)
	assert.Equal(t, 10.0, vo.Timestamps[2].StartTime)
	assert.Equal(t, 16.75, vo.Timestamps[2].EndTime)
	assert.Equal(t, 16.75, vo.TotalDuration)
	assert.Equal(t, "video 2", vo.Timestamps[1].VideoQuery)
	assert.Equal(t, "image 3", vo.Timestamps[2].ImageQuery)

	assert.True(t, strings.HasPrefix(vo.AudioFilename, "voiceover_20240309_140506_"))
	assert.Equal(t, filepath.Join(cfg.Paths.Audio, vo.AudioFilename), vo.AudioPath)
	_, err = os.Stat(vo.AudioPath)
	require.NoError(t, err)

	pads := tool.CallsWith("-af")
	require.Len(t, pads, 3)
	assert.Equal(t, "apad=whole_dur=5.000", mediatest.ArgAfter(pads[0], "-af"))
	assert.Equal(t, "5.000", mediatest.ArgAfter(pads[1], "-t"))
	assert.Equal(t, "6.750", mediatest.ArgAfter(pads[2], "-t"))
	assert.Len(t, tool.CallsWith("concat"), 1)

	entries, err := os.ReadDir(cfg.Paths.Scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "per-scene scratch files are removed")
}

func TestBuildSkipsBlankNarration(t *testing.T) {
	cfg := testConfig(t)
	synth := &fakeSynth{durations: map[string]float64{"Only line.": 3.0}}
	vo, err := New(cfg, synth, &mediatest.Fake{}).Build(context.Background(), plan("Star Wars", "  ", "Only line."), "")
	require.NoError(t, err)

	require.Len(t, vo.Timestamps, 1)
	assert.Equal(t, 2, vo.Timestamps[0].SceneNumber)
	assert.Equal(t, 0.0, vo.Timestamps[0].StartTime)
	assert.Equal(t, 5.0, vo.TotalDuration)
	assert.Equal(t, []string{"zYcjlYFOd3taleS0gkk3"}, synth.voices)
}

func TestBuildVoiceOverride(t *testing.T) {
	synth := &fakeSynth{durations: map[string]float64{"a": 1}}
	_, err := New(testConfig(t), synth, &mediatest.Fake{}).Build(context.Background(), plan("Unknown", "a"), "custom-voice")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom-voice"}, synth.voices)

	synth = &fakeSynth{durations: map[string]float64{"a": 1}}
	_, err = New(testConfig(t), synth, &mediatest.Fake{}).Build(context.Background(), plan("Unknown", "a"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"21m00Tcm4TlvDq8ikWAM"}, synth.voices)
}

func TestBuildInvalidInput(t *testing.T) {
	b := New(testConfig(t), &fakeSynth{}, &mediatest.Fake{})

	_, err := b.Build(context.Background(), nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = b.Build(context.Background(), plan("Harry Potter"), "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = b.Build(context.Background(), plan("Harry Potter", "", " "), "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestBuildSurfacesUpstreamFailure(t *testing.T) {
	cfg := testConfig(t)
	synth := &fakeSynth{err: fmt.Errorf("%w: elevenlabs after 3 attempt(s)", types.ErrUpstream)}
	_, err := New(cfg, synth, &mediatest.Fake{}).Build(context.Background(), plan("Harry Potter", "x"), "")
	assert.ErrorIs(t, err, types.ErrUpstream)

	entries, _ := os.ReadDir(cfg.Paths.Audio)
	assert.Empty(t, entries)
}
