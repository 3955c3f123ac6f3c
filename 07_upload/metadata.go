package upload

import (
	"fmt"
	"strings"

	"fandom-explainer/config"
	"fandom-explainer/theme"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 5000
	maxTagsLen        = 500
)

// Metadata is everything YouTube needs alongside the file
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

// BuildMetadata derives upload metadata from the script fields. The same
// inputs always give the same metadata.
func BuildMetadata(title, concept, description, fandom string, cfg config.UploadConfig) Metadata {
	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("%s Explained with %s", concept, fandom)
	}

	var desc strings.Builder
	if d := strings.TrimSpace(description); d != "" {
		desc.WriteString(d)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Learn %s through the world of %s, narrated by %s.\n\n",
		strings.TrimSpace(concept), strings.TrimSpace(fandom), theme.Narrator(fandom))
	desc.WriteString("Stock footage and photos provided by Pexels.")

	return Metadata{
		Title:       clip(title, maxTitleLen),
		Description: clip(desc.String(), maxDescriptionLen),
		Tags:        buildTags(concept, fandom),
		CategoryID:  cfg.CategoryID,
		Visibility:  cfg.Visibility,
	}
}

// buildTags lowercases and dedupes while keeping the combined length under
// YouTube's tag budget.
func buildTags(concept, fandom string) []string {
	candidates := []string{concept, fandom, concept + " explained", fandom + " " + concept, "education", "explained", "learning"}
	if e, ok := theme.Lookup(fandom); ok {
		candidates = append(candidates, e.Keywords...)
	}

	seen := map[string]bool{}
	var tags []string
	used := 0
	for _, c := range candidates {
		t := strings.ToLower(strings.Join(strings.Fields(c), " "))
		if t == "" || seen[t] {
			continue
		}
		if used+len(t) > maxTagsLen {
			break
		}
		seen[t] = true
		used += len(t)
		tags = append(tags, t)
	}
	return tags
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
