package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"

	"fandom-explainer/config"
	"fandom-explainer/types"
)

func TestBuildMetadata(t *testing.T) {
	cfg := config.Default().Upload
	m := BuildMetadata("Photosynthesis at Hogwarts", "Photosynthesis", "How plants eat light.", "Harry Potter", cfg)

	assert.Equal(t, "Photosynthesis at Hogwarts", m.Title)
	assert.True(t, strings.HasPrefix(m.Description, "How plants eat light.\n\n"))
	assert.Contains(t, m.Description, "narrated by Hermione")
	assert.Equal(t, "27", m.CategoryID)
	assert.Equal(t, "private", m.Visibility)
	assert.Equal(t, []string{
		"photosynthesis", "harry potter", "photosynthesis explained", "harry potter photosynthesis",
		"education", "explained", "learning", "wizarding", "hogwarts",
	}, m.Tags)

	again := BuildMetadata("Photosynthesis at Hogwarts", "Photosynthesis", "How plants eat light.", "Harry Potter", cfg)
	assert.Equal(t, m, again)
}

func TestBuildMetadataDefaultsAndLimits(t *testing.T) {
	cfg := config.Default().Upload
	m := BuildMetadata("  ", "Gravity", "", "Pokemon", cfg)
	assert.Equal(t, "Gravity Explained with Pokemon", m.Title)
	assert.Contains(t, m.Description, "narrated by Narrator")

	long := BuildMetadata(strings.Repeat("x", 300), "Gravity", strings.Repeat("y", 6000), "Pokemon", cfg)
	assert.Len(t, []rune(long.Title), maxTitleLen)
	assert.True(t, strings.HasSuffix(long.Title, "..."))
	assert.LessOrEqual(t, len([]rune(long.Description)), maxDescriptionLen)
}

func TestRunUploadsWithMetadata(t *testing.T) {
	cfg := config.Default()
	cfg.Upload.MadeForKids = true
	video := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0644))

	var got *youtube.Video
	var body string
	u := newUploader(cfg)
	u.insert = func(_ context.Context, v *youtube.Video, media io.Reader) (string, error) {
		got = v
		b, _ := io.ReadAll(media)
		body = string(b)
		return "abc123", nil
	}

	meta := BuildMetadata("Title", "Gravity", "", "Star Wars", cfg.Upload)
	id, url, err := u.Run(context.Background(), video, meta)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", url)
	assert.Equal(t, "mp4", body)
	assert.Equal(t, "Title", got.Snippet.Title)
	assert.Equal(t, "en", got.Snippet.DefaultLanguage)
	assert.Equal(t, "private", got.Status.PrivacyStatus)
	assert.True(t, got.Status.SelfDeclaredMadeForKids)
}

func TestRunErrors(t *testing.T) {
	cfg := config.Default()
	u := newUploader(cfg)
	u.insert = func(context.Context, *youtube.Video, io.Reader) (string, error) {
		return "", errors.New("quota exceeded")
	}

	_, _, err := u.Run(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), Metadata{})
	assert.ErrorIs(t, err, types.ErrMediaNotFound)

	video := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0644))
	_, _, err = u.Run(context.Background(), video, Metadata{})
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "")
	_, err := New(context.Background(), config.Default())
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLogUpload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LogUpload("id1", "https://www.youtube.com/watch?v=id1", "v.mp4", dir, Metadata{Title: "T"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "id1", got["video_id"])
	assert.Equal(t, "T", got["title"])
}
