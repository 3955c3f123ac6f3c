package types

// Subtopic is one suggested angle on an educational concept
type Subtopic struct {
	Title string `json:"title"`
}

// Scene is one narrated beat of the script
type Scene struct {
	SceneNumber     int    `json:"sceneNumber"`
	NarrationScript string `json:"narrationScript"`
	VideoQuery      string `json:"videoQuery"`
	ImageQuery      string `json:"imageQuery"`
}

// ScriptPlan is the full structured script for one video
type ScriptPlan struct {
	Concept     string  `json:"educationalConcept"`
	Description string  `json:"conceptDescription"`
	Theme       string  `json:"chosenFandom"`
	Title       string  `json:"videoTitle"`
	Narrator    string  `json:"narrator"`
	Scenes      []Scene `json:"scenes"`
}

// TimedScene places one scene on the narration timeline.
// EndTime of scene N equals StartTime of scene N+1.
type TimedScene struct {
	SceneNumber int     `json:"sceneNumber"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Text        string  `json:"text"`
	VideoQuery  string  `json:"videoQuery"`
	ImageQuery  string  `json:"imageQuery"`
}

// Duration is the length of the scene on the timeline in seconds
func (s TimedScene) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Voiceover is the combined narration track plus its timeline
type Voiceover struct {
	Concept       string       `json:"educationalConcept"`
	Description   string       `json:"conceptDescription"`
	Theme         string       `json:"chosenFandom"`
	Title         string       `json:"videoTitle"`
	Timestamps    []TimedScene `json:"timestamps"`
	AudioPath     string       `json:"audio_path"`
	AudioFilename string       `json:"audio_filename"`
	TotalDuration float64      `json:"totalDuration"`
}

// SourceType tells the compositor how a visual clip was produced
type SourceType string

const (
	SourceVideo SourceType = "video"
	SourceImage SourceType = "image"
)

// VisualClip is one prepared, standardized segment placed at an absolute time
type VisualClip struct {
	SourceType SourceType `json:"source_type"`
	Path       string     `json:"path"`
	StartTime  float64    `json:"start_time"`
	Duration   float64    `json:"duration"`
}

// End is the absolute time at which the clip stops covering the timeline
func (c VisualClip) End() float64 {
	return c.StartTime + c.Duration
}

// VideoFile is the rendered composite
type VideoFile struct {
	Path     string  `json:"path"`
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
	Music    string  `json:"music,omitempty"`
}

// VideoResult is what the pipeline hands back to callers after rendering
type VideoResult struct {
	VideoPath     string  `json:"video_file"`
	VideoFilename string  `json:"video_filename"`
	Duration      float64 `json:"duration"`
	ScenesCount   int     `json:"scenes_count"`
	VideoTitle    string  `json:"video_title"`
	Fandom        string  `json:"fandom"`
	Concept       string  `json:"concept"`
	CaptionsPath  string  `json:"captions_file,omitempty"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string       `json:"run_id"`
	StartedAt   string       `json:"started_at"`
	CompletedAt string       `json:"completed_at"`
	Concept     string       `json:"concept"`
	Theme       string       `json:"theme"`
	Script      *ScriptPlan  `json:"script"`
	Voiceover   *Voiceover   `json:"voiceover"`
	Video       *VideoResult `json:"video"`
	YouTubeID   string       `json:"youtube_id,omitempty"`
	YouTubeURL  string       `json:"youtube_url,omitempty"`
	Error       string       `json:"error,omitempty"`
}
