package render

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fandom-explainer/theme"
)

// PickMusic returns a random .mp3 from the theme's folder under root, or ""
// when the folder is missing or empty. intn picks an index in [0, n).
func PickMusic(root, fandom string, intn func(n int) int) string {
	dir := filepath.Join(root, theme.MusicFolder(fandom))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var tracks []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	if len(tracks) == 0 {
		return ""
	}
	sort.Strings(tracks)
	return tracks[intn(len(tracks))]
}
