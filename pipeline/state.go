package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"fandom-explainer/queue"
	"fandom-explainer/types"
)

// NewState starts the record for one run
func NewState(runID string) *types.PipelineState {
	return &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// SaveState stamps the completion time and writes pipeline_state.json into
// dir, creating it if needed.
func SaveState(state *types.PipelineState, dir string) string {
	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("could not create run dir")
		return ""
	}
	path := filepath.Join(dir, "pipeline_state.json")
	SaveJSON(path, state)
	return path
}

// SaveJSON writes v as indented JSON. Failures are logged, never returned.
func SaveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not marshal JSON")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not save JSON")
	}
}

// JobHandler runs queued jobs through Run and keeps each job's state under
// outputDir/<job id>.
func JobHandler(p *Pipeline, outputDir string) queue.Handler {
	return func(ctx context.Context, job *queue.Job) (queue.Result, error) {
		state := NewState(job.ID)
		err := p.Run(ctx, job.Concept, job.Fandom, state)
		SaveState(state, filepath.Join(outputDir, job.ID))
		if err != nil {
			return queue.Result{}, err
		}
		if state.Video == nil {
			return queue.Result{}, fmt.Errorf("%w: run finished without a video", types.ErrRenderFailed)
		}
		return queue.Result{VideoFilename: state.Video.VideoFilename, YouTubeURL: state.YouTubeURL}, nil
	}
}
