package script

import (
	"encoding/json"

	"fandom-explainer/llm"
	"fandom-explainer/types"
)

const sourceDefault llm.Source = "default"

// rawPlan mirrors types.ScriptPlan but keeps scenes as a pointer so a reply
// without a "scenes" key can be told apart from an empty list.
type rawPlan struct {
	Concept     string         `json:"educationalConcept"`
	Description string         `json:"conceptDescription"`
	Theme       string         `json:"chosenFandom"`
	Title       string         `json:"videoTitle"`
	Scenes      *[]types.Scene `json:"scenes"`
}

// decodePlan tries each extraction step in turn. A nil plan means the reply
// holds no usable script.
func decodePlan(content string) (*types.ScriptPlan, llm.Source) {
	for _, c := range llm.Candidates(content) {
		if plan, ok := decodeCandidate(c.Text); ok {
			return plan, c.Source
		}
	}
	return nil, ""
}

func decodeCandidate(text string) (*types.ScriptPlan, bool) {
	var raw rawPlan
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	if raw.Scenes == nil || len(*raw.Scenes) == 0 {
		return nil, false
	}
	return &types.ScriptPlan{
		Concept:     raw.Concept,
		Description: raw.Description,
		Theme:       raw.Theme,
		Title:       raw.Title,
		Scenes:      *raw.Scenes,
	}, true
}
