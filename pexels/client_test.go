package pexels

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fandom-explainer/config"
	"fandom-explainer/retry"
	"fandom-explainer/types"
)

func newTestClient(url string) *Client {
	cfg := config.Default().Stock
	cfg.BaseURL = url
	return New("px-key", cfg, retry.Policy{MaxAttempts: 2, Delay: time.Millisecond})
}

func TestSearchVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos/search", r.URL.Path)
		assert.Equal(t, "px-key", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "magic wand", q.Get("query"))
		assert.Equal(t, "1", q.Get("per_page"))
		assert.Equal(t, "landscape", q.Get("orientation"))
		assert.Equal(t, "medium", q.Get("size"))
		_, _ = io.WriteString(w, `{"videos":[{"id":7,"duration":12,"video_files":[
			{"id":1,"quality":"sd","width":640,"height":360,"link":"http://x/sd.mp4"},
			{"id":2,"quality":"hd","width":1920,"height":1080,"link":"http://x/hd.mp4"}]}]}`)
	}))
	defer srv.Close()

	videos, err := newTestClient(srv.URL).SearchVideos(context.Background(), "magic wand")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	require.Len(t, videos[0].Files, 2)
	assert.Equal(t, "hd", videos[0].Files[1].Quality)
	assert.Equal(t, 1920, videos[0].Files[1].Width)
}

func TestSearchPhotos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("size"))
		_, _ = io.WriteString(w, `{"photos":[{"id":3,"src":{"original":"http://x/p.jpg"}}]}`)
	}))
	defer srv.Close()

	photos, err := newTestClient(srv.URL).SearchPhotos(context.Background(), "castle")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "http://x/p.jpg", photos[0].Src.Original)
}

func TestSearchUnauthorizedIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SearchVideos(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "fake-mp4-bytes")
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "videos")
	path, err := newTestClient(srv.URL).Download(context.Background(), srv.URL+"/v.mp4", dir, "wand: lesson #1", "mp4")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "wand_lesson_1_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake-mp4-bytes", string(data))
}

func TestCacheName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	name := CacheName(strings.Repeat("a", 80), ".jpg", now)
	assert.Regexp(t, regexp.MustCompile(`^a{50}_1700000000_[0-9a-f-]{8}\.jpg$`), name)

	assert.True(t, strings.HasPrefix(CacheName("???", "mp4", now), "media_1700000000_"))
}
