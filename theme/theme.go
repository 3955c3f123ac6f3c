// Package theme holds the fixed per-fandom lookup tables: narrator persona,
// synthesis voices and the background-music folder. Matching is a
// case-insensitive substring test against the requested theme; every table
// has an explicit default so an unknown theme is never an error.
package theme

import "strings"

// Entry describes one supported fandom
type Entry struct {
	Name        string
	Keywords    []string
	Narrator    string
	ElevenVoice string
	PollyVoice  string
	MusicFolder string
}

var entries = []Entry{
	{
		Name:        "Harry Potter",
		Keywords:    []string{"harry potter", "wizarding", "hogwarts"},
		Narrator:    "Hermione",
		ElevenVoice: "nDJIICjR9zfJExIFeSCN",
		PollyVoice:  "Amy",
		MusicFolder: "Harry Potter",
	},
	{
		Name:        "Star Wars",
		Keywords:    []string{"star wars", "jedi"},
		Narrator:    "Darth Vader",
		ElevenVoice: "zYcjlYFOd3taleS0gkk3",
		PollyVoice:  "Matthew",
		MusicFolder: "Star Wars",
	},
	{
		Name:        "Marvel Avengers",
		Keywords:    []string{"marvel", "avengers", "iron man"},
		Narrator:    "Iron Man",
		ElevenVoice: "jB108zg64sTcu1kCbN9L",
		PollyVoice:  "Joey",
		MusicFolder: "Marvel Avengers",
	},
}

const (
	DefaultNarrator    = "Narrator"
	DefaultElevenVoice = "21m00Tcm4TlvDq8ikWAM" // Rachel
	DefaultPollyVoice  = "Joanna"
)

// Lookup returns the entry whose keywords appear in theme
func Lookup(theme string) (Entry, bool) {
	t := strings.ToLower(strings.TrimSpace(theme))
	if t == "" {
		return Entry{}, false
	}
	for _, e := range entries {
		for _, kw := range e.Keywords {
			if strings.Contains(t, kw) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Narrator returns the narrator persona for a theme
func Narrator(theme string) string {
	if e, ok := Lookup(theme); ok {
		return e.Narrator
	}
	return DefaultNarrator
}

// Voice returns the synthesis voice for a theme and TTS provider
func Voice(provider, theme string) string {
	e, ok := Lookup(theme)
	if provider == "polly" {
		if ok {
			return e.PollyVoice
		}
		return DefaultPollyVoice
	}
	if ok {
		return e.ElevenVoice
	}
	return DefaultElevenVoice
}

// MusicFolder returns the background-music folder for a theme.
// Unmatched themes use the first entry's folder.
func MusicFolder(theme string) string {
	if e, ok := Lookup(theme); ok {
		return e.MusicFolder
	}
	return entries[0].MusicFolder
}

// MusicFolders lists every folder the music directory is expected to contain
func MusicFolders() []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.MusicFolder)
	}
	return out
}
