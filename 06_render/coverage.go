package render

import (
	"fmt"
	"sort"

	"fandom-explainer/types"
)

// Issue is one coverage problem found on the composite timeline
type Issue struct {
	Kind string // gap | overlap | late_start | early_end
	At   float64
	Size float64
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %.2fs (%.2fs)", i.Kind, i.At, i.Size)
}

// SortClips orders clips by start time without touching the input
func SortClips(clips []types.VisualClip) []types.VisualClip {
	out := append([]types.VisualClip(nil), clips...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// CheckCoverage reports where sorted clips fail to tile [0,total): gaps and
// overlaps between consecutive clips, a late first clip and an early last
// clip, each only when larger than tol.
func CheckCoverage(sorted []types.VisualClip, total, tol float64) []Issue {
	if len(sorted) == 0 {
		return []Issue{{Kind: "gap", At: 0, Size: total}}
	}
	var issues []Issue
	if first := sorted[0].StartTime; first > tol {
		issues = append(issues, Issue{Kind: "late_start", At: 0, Size: first})
	}
	end := sorted[0].End()
	for _, c := range sorted[1:] {
		if gap := c.StartTime - end; gap > tol {
			issues = append(issues, Issue{Kind: "gap", At: end, Size: gap})
		}
		if overlap := end - c.StartTime; overlap > tol {
			issues = append(issues, Issue{Kind: "overlap", At: c.StartTime, Size: overlap})
		}
		if c.End() > end {
			end = c.End()
		}
	}
	if short := total - end; short > tol {
		issues = append(issues, Issue{Kind: "early_end", At: end, Size: short})
	}
	return issues
}
