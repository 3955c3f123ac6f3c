package visuals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/media"
	"fandom-explainer/pexels"
	"fandom-explainer/types"
)

const fallbackQuery = "nature landscape scenic beautiful"

// Resolver finds stock media for each timed scene and prepares standardized
// clips placed at absolute times.
type Resolver struct {
	cfg    *config.Config
	stock  pexels.Searcher
	tool   media.Tool
	logger zerolog.Logger
}

// New creates a new scene media Resolver
func New(cfg *config.Config, stock pexels.Searcher, tool media.Tool) *Resolver {
	return &Resolver{
		cfg:    cfg,
		stock:  stock,
		tool:   tool,
		logger: log.With().Str("stage", "visuals").Logger(),
	}
}

// ResolveAll resolves scenes in start order and covers any tail the timeline
// leaves before total. On error every clip prepared so far is removed.
func (r *Resolver) ResolveAll(ctx context.Context, timeline []types.TimedScene, total float64) ([]types.VisualClip, error) {
	scenes := append([]types.TimedScene(nil), timeline...)
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].StartTime < scenes[j].StartTime })

	scenes, added := WithTail(scenes, total, r.cfg.Visuals.TailFillThreshold)
	if added {
		tail := scenes[len(scenes)-1]
		r.logger.Info().Float64("from", tail.StartTime).Float64("to", tail.EndTime).Msg("adding tail scene to cover remaining narration")
	}

	var clips []types.VisualClip
	for _, scene := range scenes {
		got, err := r.Resolve(ctx, scene)
		if err != nil {
			Release(clips)
			return nil, err
		}
		clips = append(clips, got...)
	}
	return clips, nil
}

// Resolve fetches and prepares the clips for one scene. Missing media fails
// with types.ErrMediaNotFound.
func (r *Resolver) Resolve(ctx context.Context, scene types.TimedScene) ([]types.VisualClip, error) {
	d := scene.Duration()
	if d <= 0 {
		return nil, fmt.Errorf("%w: scene %d has non-positive duration %.3f", types.ErrInvalidInput, scene.SceneNumber, d)
	}
	segments := PlanSegments(d, r.cfg.Visuals)
	videoQuery := pickQuery(scene.VideoQuery, scene.Text)
	imageQuery := pickQuery(scene.ImageQuery, scene.Text)

	logger := r.logger.With().Int("scene", scene.SceneNumber).Float64("duration", d).Logger()
	logger.Info().Str("video_query", videoQuery).Str("image_query", imageQuery).Int("segments", len(segments)).Msg("resolving scene")

	videoPath, err := r.fetchVideo(ctx, scene.SceneNumber, videoQuery)
	if err != nil {
		return nil, err
	}
	var imagePath string
	if len(segments) > 1 {
		if imagePath, err = r.fetchImage(ctx, scene.SceneNumber, imageQuery); err != nil {
			return nil, err
		}
	}

	var clips []types.VisualClip
	start := scene.StartTime
	for _, seg := range segments {
		var (
			path string
			err  error
		)
		switch seg.Source {
		case types.SourceVideo:
			path, err = r.prepareVideo(ctx, scene.SceneNumber, videoPath, seg.Duration)
		case types.SourceImage:
			path, err = r.prepareImage(ctx, scene.SceneNumber, imagePath, seg.Duration)
		}
		if err != nil {
			Release(clips)
			return nil, fmt.Errorf("%w: scene %d %s clip: %w", types.ErrRenderFailed, scene.SceneNumber, seg.Source, err)
		}
		clips = append(clips, types.VisualClip{
			SourceType: seg.Source,
			Path:       path,
			StartTime:  start,
			Duration:   seg.Duration,
		})
		logger.Debug().Str("source", string(seg.Source)).Float64("start", start).Float64("length", seg.Duration).Msg("clip ready")
		start += seg.Duration
	}
	return clips, nil
}

func (r *Resolver) fetchVideo(ctx context.Context, sceneNum int, query string) (string, error) {
	videos, err := r.stock.SearchVideos(ctx, query)
	if err != nil {
		return "", fmt.Errorf("scene %d video search: %w", sceneNum, err)
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("%w: no videos found for scene %d (query %q)", types.ErrMediaNotFound, sceneNum, query)
	}
	file, ok := SelectVideoFile(videos[0].Files)
	if !ok {
		return "", fmt.Errorf("%w: no usable video format for scene %d", types.ErrMediaNotFound, sceneNum)
	}
	path, err := r.stock.Download(ctx, file.Link, filepath.Join(r.cfg.Paths.Media, "videos"), query, "mp4")
	if err != nil {
		return "", fmt.Errorf("scene %d video download: %w", sceneNum, err)
	}
	return path, nil
}

func (r *Resolver) fetchImage(ctx context.Context, sceneNum int, query string) (string, error) {
	photos, err := r.stock.SearchPhotos(ctx, query)
	if err != nil {
		return "", fmt.Errorf("scene %d image search: %w", sceneNum, err)
	}
	if len(photos) == 0 || photos[0].Src.Original == "" {
		return "", fmt.Errorf("%w: no images found for scene %d (query %q)", types.ErrMediaNotFound, sceneNum, query)
	}
	path, err := r.stock.Download(ctx, photos[0].Src.Original, filepath.Join(r.cfg.Paths.Media, "images"), query, imageExt(photos[0].Src.Original))
	if err != nil {
		return "", fmt.Errorf("scene %d image download: %w", sceneNum, err)
	}
	return path, nil
}

// prepareVideo loops the source as often as needed, trims it to need
// seconds and standardizes the frame.
func (r *Resolver) prepareVideo(ctx context.Context, sceneNum int, src string, need float64) (string, error) {
	srcDur, err := r.tool.Probe(ctx, src)
	if err != nil {
		return "", err
	}
	out, err := r.clipPath(sceneNum, types.SourceVideo)
	if err != nil {
		return "", err
	}

	var args []string
	if copies := media.LoopCount(srcDur, need); copies > 1 {
		args = append(args, "-stream_loop", strconv.Itoa(copies-1))
	}
	v := r.cfg.Visuals
	args = append(args,
		"-i", src,
		"-t", media.FormatSec(need),
		"-vf", media.Standardize(v.Width, v.Height)+",fps="+strconv.Itoa(v.FPS),
		"-c:v", "libx264",
		"-preset", r.cfg.Render.Preset,
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
	if err := r.tool.Run(ctx, args...); err != nil {
		return "", err
	}
	return out, nil
}

// prepareImage renders a still as a zoom-out clip of exactly dur seconds
func (r *Resolver) prepareImage(ctx context.Context, sceneNum int, src string, dur float64) (string, error) {
	out, err := r.clipPath(sceneNum, types.SourceImage)
	if err != nil {
		return "", err
	}
	v := r.cfg.Visuals
	filter := media.Standardize(v.Width*2, v.Height*2) + "," +
		media.ZoomOut(v.Width, v.Height, v.FPS, dur, v.ZoomStart, v.ZoomEnd)

	if err := r.tool.Run(ctx,
		"-loop", "1",
		"-i", src,
		"-vf", filter,
		"-t", media.FormatSec(dur),
		"-c:v", "libx264",
		"-preset", r.cfg.Render.Preset,
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	); err != nil {
		return "", err
	}
	return out, nil
}

func (r *Resolver) clipPath(sceneNum int, src types.SourceType) (string, error) {
	if err := os.MkdirAll(r.cfg.Paths.Scratch, 0755); err != nil {
		return "", err
	}
	return filepath.Join(r.cfg.Paths.Scratch,
		fmt.Sprintf("clip_%02d_%s_%s.mp4", sceneNum, src, uuid.NewString()[:8])), nil
}

// Release removes prepared scene clips. Cached downloads are kept.
func Release(clips []types.VisualClip) {
	for _, c := range clips {
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", c.Path).Msg("could not remove clip")
		}
	}
}

func pickQuery(query, text string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return fallbackQuery
}

func imageExt(link string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.SplitN(link, "?", 2)[0]), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp":
		return ext
	}
	return "jpg"
}
