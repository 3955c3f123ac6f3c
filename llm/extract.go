package llm

import (
	"regexp"
	"strings"
)

// Source records which extraction step produced a JSON candidate
type Source string

const (
	SourceStrict Source = "strict"
	SourceFenced Source = "fenced"
	SourceBraced Source = "braced"
)

// Candidate is one piece of model output that may decode as JSON
type Candidate struct {
	Source Source
	Text   string
}

var fenced = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Candidates lists the JSON texts worth trying, most literal first: the
// whole reply, the first fenced block, then every balanced {...} object in
// the order it appears.
func Candidates(raw string) []Candidate {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := []Candidate{{Source: SourceStrict, Text: raw}}
	if m := fenced.FindStringSubmatch(raw); m != nil {
		out = append(out, Candidate{Source: SourceFenced, Text: strings.TrimSpace(m[1])})
	}
	for _, obj := range balancedObjects(raw) {
		out = append(out, Candidate{Source: SourceBraced, Text: obj})
	}
	return out
}

// balancedObjects returns each top-level brace-matched span of s. Braces
// inside JSON strings do not count. An unclosed '{' is skipped and the scan
// resumes at the next one.
func balancedObjects(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		out = append(out, s[i:end+1])
		i = end
	}
	return out
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1
func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for j := start; j < len(s); j++ {
		ch := s[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
