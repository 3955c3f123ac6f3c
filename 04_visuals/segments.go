package visuals

import (
	"math"

	"fandom-explainer/config"
	"fandom-explainer/pexels"
	"fandom-explainer/types"
)

// Segment is one planned slice of a scene before media is fetched
type Segment struct {
	Source   types.SourceType
	Duration float64
}

// PlanSegments splits a scene of d seconds into a video segment, optionally
// followed by a still-image segment. Durations always sum to d.
func PlanSegments(d float64, v config.VisualsConfig) []Segment {
	if d <= v.VideoOnlyMaxSec {
		return []Segment{{Source: types.SourceVideo, Duration: d}}
	}

	video := v.VideoSegmentSec
	image := d - video
	if image < v.MinImageSec {
		video = d - v.MinImageSec
		image = v.MinImageSec
		// Unreachable with the defaults; guards tighter VisualsConfig values.
		if video < v.MinVideoSec {
			video = math.Max(v.MinVideoSec, d*v.RebalanceVideoFrac)
			image = d - video
		}
	}
	return []Segment{
		{Source: types.SourceVideo, Duration: video},
		{Source: types.SourceImage, Duration: image},
	}
}

// SelectVideoFile picks the rendition to download: the first HD file at
// least 1280 wide, else the first SD file at least 640 wide, else the first.
func SelectVideoFile(files []pexels.VideoFile) (pexels.VideoFile, bool) {
	for _, f := range files {
		if f.Quality == "hd" && f.Width >= 1280 {
			return f, true
		}
	}
	for _, f := range files {
		if f.Quality == "sd" && f.Width >= 640 {
			return f, true
		}
	}
	if len(files) > 0 && files[0].Link != "" {
		return files[0], true
	}
	return pexels.VideoFile{}, false
}

// WithTail appends a closing scene when the timeline stops more than
// threshold seconds short of total. It reuses the last scene's queries.
func WithTail(timeline []types.TimedScene, total, threshold float64) ([]types.TimedScene, bool) {
	if len(timeline) == 0 {
		return timeline, false
	}
	last := timeline[len(timeline)-1]
	if last.EndTime >= total-threshold {
		return timeline, false
	}
	out := append([]types.TimedScene(nil), timeline...)
	out = append(out, types.TimedScene{
		SceneNumber: last.SceneNumber + 1,
		StartTime:   last.EndTime,
		EndTime:     total,
		VideoQuery:  last.VideoQuery,
		ImageQuery:  last.ImageQuery,
	})
	return out, true
}
