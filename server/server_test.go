package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fandom-explainer/config"
	"fandom-explainer/queue"
	"fandom-explainer/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStages struct {
	err       error
	voice     string
	gotScript *types.ScriptPlan
	gotVO     *types.Voiceover
}

func (f *fakeStages) Subtopics(_ context.Context, concept string) ([]types.Subtopic, error) {
	if concept == "" {
		return nil, fmt.Errorf("%w: concept is required", types.ErrInvalidInput)
	}
	return []types.Subtopic{{Title: "Intro to " + concept}}, f.err
}

func (f *fakeStages) Script(_ context.Context, concept, fandom string) (*types.ScriptPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.ScriptPlan{Concept: concept, Theme: fandom, Narrator: "Hermione"}, nil
}

func (f *fakeStages) Voiceover(_ context.Context, plan *types.ScriptPlan, voice string) (*types.Voiceover, error) {
	f.gotScript, f.voice = plan, voice
	if f.err != nil {
		return nil, f.err
	}
	return &types.Voiceover{Concept: plan.Concept, AudioPath: "/a/vo.mp3", AudioFilename: "vo.mp3", TotalDuration: 15}, nil
}

func (f *fakeStages) Video(_ context.Context, vo *types.Voiceover) (*types.VideoResult, error) {
	f.gotVO = vo
	if f.err != nil {
		return nil, f.err
	}
	return &types.VideoResult{VideoPath: "/v/video_1.mp4", VideoFilename: "video_1.mp4", Duration: vo.TotalDuration, ScenesCount: len(vo.Timestamps)}, nil
}

func newServer(t *testing.T, stages Stages, jobs Jobs) *Server {
	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.Video = filepath.Join(root, "videos")
	cfg.Paths.Audio = filepath.Join(root, "audio")
	require.NoError(t, os.MkdirAll(cfg.Paths.Video, 0755))
	require.NoError(t, os.MkdirAll(cfg.Paths.Audio, 0755))
	return New(cfg, stages, jobs)
}

func do(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestSubtopics(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)

	w := do(s, http.MethodGet, "/subtopics?concept=Gravity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subtopics":[{"title":"Intro to Gravity"}]}`, w.Body.String())

	w = do(s, http.MethodGet, "/subtopics", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScript(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)

	w := do(s, http.MethodPost, "/script", map[string]string{"concept_subtopic": "Gravity", "fandom": "Harry Potter"})
	require.Equal(t, http.StatusOK, w.Code)
	var plan types.ScriptPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, "Gravity", plan.Concept)
	assert.Equal(t, "Hermione", plan.Narrator)

	w = do(s, http.MethodPost, "/script", map[string]string{"fandom": "Harry Potter"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoiceoverAndVideo(t *testing.T) {
	stages := &fakeStages{}
	s := newServer(t, stages, nil)

	w := do(s, http.MethodPost, "/generate_voiceover", map[string]any{
		"script":   types.ScriptPlan{Concept: "Gravity", Theme: "Star Wars"},
		"voice_id": "custom",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "custom", stages.voice)
	var vo struct {
		AudioFile string          `json:"audio_file"`
		Data      types.Voiceover `json:"voiceover_data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vo))
	assert.Equal(t, "/a/vo.mp3", vo.AudioFile)
	assert.Equal(t, "vo.mp3", vo.Data.AudioFilename)

	vo.Data.Timestamps = []types.TimedScene{{SceneNumber: 1, EndTime: 5}}
	w = do(s, http.MethodPost, "/generate_video", map[string]any{"voiceover_data": vo.Data})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"video_path": "/v/video_1.mp4",
		"video_data": {"video_file": "/v/video_1.mp4", "video_filename": "video_1.mp4", "duration": 15,
			"scenes_count": 1, "video_title": "", "fandom": "", "concept": ""}
	}`, w.Body.String())
	require.NotNil(t, stages.gotVO)
	assert.Equal(t, "/a/vo.mp3", stages.gotVO.AudioPath)

	w = do(s, http.MethodPost, "/generate_video", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", types.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("video: %w: none", types.ErrMediaNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: tts after 3 attempt(s)", types.ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("%w: ffmpeg", types.ErrRenderFailed), http.StatusInternalServerError},
		{queue.ErrJobNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))

			s := newServer(t, &fakeStages{err: tt.err}, nil)
			w := do(s, http.MethodPost, "/script", map[string]string{"concept_subtopic": "x", "fandom": "y"})
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), `"detail"`)
		})
	}
}

func TestDownloadVideo(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)
	dir := s.cfg.Paths.Video

	w := do(s, http.MethodGet, "/download_video/missing.mp4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "busy.mp4.temp"), []byte("partial"), 0644))
	w = do(s, http.MethodGet, "/download_video/busy.mp4", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.mp4"), nil, 0644))
	w = do(s, http.MethodGet, "/download_video/empty.mp4", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "done.mp4"), []byte("mp4data"), 0644))
	w = do(s, http.MethodGet, "/download_video/done.mp4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp4data", w.Body.String())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "done.mp4")

	w = do(s, http.MethodGet, "/download_video/..", nil)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestDownloadAudio(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.Paths.Audio, "vo.mp3"), []byte("mp3"), 0644))

	w := do(s, http.MethodGet, "/download_audio/vo.mp3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp3", w.Body.String())

	w = do(s, http.MethodGet, "/download_audio/other.mp3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/script", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestJobs(t *testing.T) {
	s := newServer(t, &fakeStages{}, nil)
	w := do(s, http.MethodPost, "/jobs", map[string]string{"concept": "Gravity", "fandom": "Star Wars"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	qcfg := config.Default().Queue
	qcfg.PopTimeout = 50 * time.Millisecond
	s = newServer(t, &fakeStages{}, queue.New(rdb, qcfg))

	w = do(s, http.MethodPost, "/jobs", map[string]string{"concept": "Gravity", "fandom": "Star Wars"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var job queue.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, queue.StatusQueued, job.Status)

	w = do(s, http.MethodGet, "/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"concept":"Gravity"`)

	w = do(s, http.MethodGet, "/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, "/jobs", map[string]string{"concept": "Gravity"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
