// Package queue runs full pipeline jobs asynchronously over a Redis list.
// Producers LPUSH a payload, workers BRPOP it, and each job's status lives
// in a hash that expires after the configured TTL.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/types"
)

const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// ErrJobNotFound is returned for unknown or expired job ids
var ErrJobNotFound = errors.New("job not found")

// Job is one queued concept+theme render and its progress
type Job struct {
	ID            string `json:"id"`
	Concept       string `json:"concept"`
	Fandom        string `json:"fandom"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	VideoFilename string `json:"video_filename,omitempty"`
	YouTubeURL    string `json:"youtube_url,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Result is what a handler reports for a finished job
type Result struct {
	VideoFilename string
	YouTubeURL    string
}

// Handler runs one job
type Handler func(ctx context.Context, job *Job) (Result, error)

type payload struct {
	ID      string `json:"id"`
	Concept string `json:"concept"`
	Fandom  string `json:"fandom"`
}

// Queue is a Redis-backed job list plus per-job status hashes
type Queue struct {
	rdb    *redis.Client
	cfg    config.QueueConfig
	now    func() time.Time
	logger zerolog.Logger
}

// New wraps an existing client
func New(rdb *redis.Client, cfg config.QueueConfig) *Queue {
	return &Queue{
		rdb:    rdb,
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("stage", "queue").Str("queue", cfg.Name).Logger(),
	}
}

// NewClient connects to REDIS_URL, accepting either a redis:// URL or a
// bare host:port. Defaults to localhost:6379.
func NewClient() (*redis.Client, error) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func (q *Queue) key(id string) string {
	return q.cfg.Name + ":job:" + id
}

// Enqueue records a new job as queued and pushes it onto the list
func (q *Queue) Enqueue(ctx context.Context, concept, fandom string) (*Job, error) {
	concept, fandom = strings.TrimSpace(concept), strings.TrimSpace(fandom)
	if concept == "" || fandom == "" {
		return nil, fmt.Errorf("%w: concept and fandom are required", types.ErrInvalidInput)
	}

	ts := q.now().UTC().Format(time.RFC3339)
	job := &Job{ID: uuid.NewString(), Concept: concept, Fandom: fandom, Status: StatusQueued, CreatedAt: ts, UpdatedAt: ts}
	body, err := json.Marshal(payload{ID: job.ID, Concept: concept, Fandom: fandom})
	if err != nil {
		return nil, err
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.key(job.ID), map[string]interface{}{
			"id":         job.ID,
			"concept":    concept,
			"fandom":     fandom,
			"status":     StatusQueued,
			"created_at": ts,
			"updated_at": ts,
		})
		pipe.Expire(ctx, q.key(job.ID), q.cfg.JobTTL)
		pipe.LPush(ctx, q.cfg.Name, body)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	q.logger.Info().Str("job", job.ID).Str("concept", concept).Str("fandom", fandom).Msg("job queued")
	return job, nil
}

// Get returns the job's current status
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := q.rdb.HGetAll(ctx, q.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return &Job{
		ID:            fields["id"],
		Concept:       fields["concept"],
		Fandom:        fields["fandom"],
		Status:        fields["status"],
		Error:         fields["error"],
		VideoFilename: fields["video_filename"],
		YouTubeURL:    fields["youtube_url"],
		CreatedAt:     fields["created_at"],
		UpdatedAt:     fields["updated_at"],
	}, nil
}

// Next blocks up to the pop timeout for a job. It returns nil, nil when
// nothing arrived.
func (q *Queue) Next(ctx context.Context) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, q.cfg.PopTimeout, q.cfg.Name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the list name, res[1] the payload
	var p payload
	if err := json.Unmarshal([]byte(res[1]), &p); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &Job{ID: p.ID, Concept: p.Concept, Fandom: p.Fandom, Status: StatusQueued}, nil
}

// Process marks job running, runs h and records the outcome
func (q *Queue) Process(ctx context.Context, job *Job, h Handler) error {
	logger := q.logger.With().Str("job", job.ID).Logger()
	if err := q.update(ctx, job.ID, map[string]interface{}{"status": StatusRunning}); err != nil {
		return err
	}
	logger.Info().Str("concept", job.Concept).Str("fandom", job.Fandom).Msg("job started")

	res, runErr := h(ctx, job)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("job failed")
		return q.update(ctx, job.ID, map[string]interface{}{"status": StatusFailed, "error": runErr.Error()})
	}
	logger.Info().Str("video", res.VideoFilename).Msg("job done")
	return q.update(ctx, job.ID, map[string]interface{}{
		"status":         StatusDone,
		"video_filename": res.VideoFilename,
		"youtube_url":    res.YouTubeURL,
	})
}

// Listen processes jobs one at a time until ctx is cancelled
func (q *Queue) Listen(ctx context.Context, h Handler) error {
	q.logger.Info().Msg("worker listening")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := q.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Warn().Err(err).Msg("error popping from queue")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := q.Process(ctx, job, h); err != nil {
			q.logger.Warn().Err(err).Str("job", job.ID).Msg("could not record job status")
		}
	}
}

func (q *Queue) update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = q.now().UTC().Format(time.RFC3339)
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.key(id), fields)
		pipe.Expire(ctx, q.key(id), q.cfg.JobTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}
