package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fandom-explainer/config"
	"fandom-explainer/types"
)

func newQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.Default().Queue
	cfg.PopTimeout = 100 * time.Millisecond
	return New(rdb, cfg), mr
}

func TestEnqueueAndGet(t *testing.T) {
	q, mr := newQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, " Photosynthesis ", "Harry Potter")
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", job.Concept)
	assert.Equal(t, StatusQueued, job.Status)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "Harry Potter", got.Fandom)
	assert.Equal(t, StatusQueued, got.Status)

	assert.Equal(t, 24*time.Hour, mr.TTL(q.key(job.ID)))
	items, err := mr.List("q_video_render")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEnqueueRejectsBlankInput(t *testing.T) {
	q, _ := newQueue(t)
	_, err := q.Enqueue(context.Background(), "", "Star Wars")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = q.Enqueue(context.Background(), "Gravity", "  ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGetUnknownJob(t *testing.T) {
	q, _ := newQueue(t)
	_, err := q.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestNextTimesOutEmpty(t *testing.T) {
	q, _ := newQueue(t)
	job, err := q.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestProcessRecordsOutcome(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	ok, err := q.Enqueue(ctx, "Gravity", "Star Wars")
	require.NoError(t, err)
	bad, err := q.Enqueue(ctx, "Magnetism", "Marvel Avengers")
	require.NoError(t, err)

	// LPUSH + BRPOP is first in, first out
	first, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, ok.ID, first.ID)
	require.NoError(t, q.Process(ctx, first, func(_ context.Context, j *Job) (Result, error) {
		mid, err := q.Get(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, mid.Status)
		return Result{VideoFilename: "video_1.mp4"}, nil
	}))

	second, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, bad.ID, second.ID)
	require.NoError(t, q.Process(ctx, second, func(context.Context, *Job) (Result, error) {
		return Result{}, errors.New("video: media not found")
	}))

	done, err := q.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)
	assert.Equal(t, "video_1.mp4", done.VideoFilename)

	failed, err := q.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "video: media not found", failed.Error)
}

func TestListenStopsOnCancel(t *testing.T) {
	q, _ := newQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, c := range []string{"Gravity", "Friction"} {
		_, err := q.Enqueue(ctx, c, "Star Wars")
		require.NoError(t, err)
	}

	var seen []string
	err := q.Listen(ctx, func(_ context.Context, j *Job) (Result, error) {
		seen = append(seen, j.Concept)
		if len(seen) == 2 {
			cancel()
		}
		return Result{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Gravity", "Friction"}, seen)
}
