package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"fandom-explainer/theme"
)

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Script    ScriptConfig    `yaml:"script"`
	Audio     AudioConfig     `yaml:"audio"`
	Stock     StockConfig     `yaml:"stock"`
	Visuals   VisualsConfig   `yaml:"visuals"`
	Render    RenderConfig    `yaml:"render"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Upload    UploadConfig    `yaml:"upload"`
	Retry     RetryConfig     `yaml:"retry"`
	Server    ServerConfig    `yaml:"server"`
	Queue     QueueConfig     `yaml:"queue"`
	Paths     PathsConfig     `yaml:"paths"`
}

type LLMConfig struct {
	Provider       string        `yaml:"provider"` // openai | gemini
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	GeminiModel    string        `yaml:"gemini_model"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ScriptConfig struct {
	MaxScenes     int    `yaml:"max_scenes"`
	SystemMessage string `yaml:"system_message"`
}

type AudioConfig struct {
	Provider           string        `yaml:"provider"` // elevenlabs | polly
	ElevenLabsURL      string        `yaml:"elevenlabs_url"`
	ModelID            string        `yaml:"model_id"`
	Stability          float64       `yaml:"stability"`
	SimilarityBoost    float64       `yaml:"similarity_boost"`
	PollyRegion        string        `yaml:"polly_region"`
	PollyEngine        string        `yaml:"polly_engine"`
	MinSceneSec        float64       `yaml:"min_scene_sec"`
	PauseSec           float64       `yaml:"pause_sec"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	InterSceneCooldown time.Duration `yaml:"inter_scene_cooldown"`
}

type StockConfig struct {
	BaseURL        string        `yaml:"base_url"`
	PerPage        int           `yaml:"per_page"`
	Orientation    string        `yaml:"orientation"`
	Size           string        `yaml:"size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type VisualsConfig struct {
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	FPS                int     `yaml:"fps"`
	VideoOnlyMaxSec    float64 `yaml:"video_only_max_sec"`
	VideoSegmentSec    float64 `yaml:"video_segment_sec"`
	MinImageSec        float64 `yaml:"min_image_sec"`
	MinVideoSec        float64 `yaml:"min_video_sec"`
	RebalanceVideoFrac float64 `yaml:"rebalance_video_fraction"`
	ZoomStart          float64 `yaml:"zoom_start"`
	ZoomEnd            float64 `yaml:"zoom_end"`
	TailFillThreshold  float64 `yaml:"tail_fill_threshold_sec"`
}

type RenderConfig struct {
	FPS               int     `yaml:"fps"`
	Threads           int     `yaml:"threads"`
	Preset            string  `yaml:"preset"`
	FallbackFPS       int     `yaml:"fallback_fps"`
	FallbackThreads   int     `yaml:"fallback_threads"`
	MusicVolume       float64 `yaml:"music_volume"`
	FadeInSec         float64 `yaml:"fade_in_sec"`
	FadeOutSec        float64 `yaml:"fade_out_sec"`
	GapToleranceSec   float64 `yaml:"gap_tolerance_sec"`
	CoverageStrict    bool    `yaml:"coverage_strict"`
	KeepIntermediates bool    `yaml:"keep_intermediates"`
}

type SubtitlesConfig struct {
	Enabled       bool    `yaml:"enabled"`
	BurnIntoVideo bool    `yaml:"burn_into_video"`
	Font          string  `yaml:"font"`
	FontSize      int     `yaml:"font_size"`
	FontWeight    string  `yaml:"font_weight"`
	StrokeWidth   float64 `yaml:"stroke_width"`
	MarginBottom  int     `yaml:"margin_bottom"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type QueueConfig struct {
	Name       string        `yaml:"name"`
	JobTTL     time.Duration `yaml:"job_ttl"`
	PopTimeout time.Duration `yaml:"pop_timeout"`
}

type PathsConfig struct {
	Audio   string `yaml:"audio"`
	Video   string `yaml:"video"`
	Media   string `yaml:"media"`
	Music   string `yaml:"music"`
	Scratch string `yaml:"scratch"`
	Output  string `yaml:"output"`
}

// Load reads config.yaml and returns a Config struct with defaults filled in.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Dirs lists every directory the pipeline writes into
func (c *Config) Dirs() []string {
	return []string{
		c.Paths.Audio,
		c.Paths.Video,
		c.Paths.Media,
		c.Paths.Music,
		c.Paths.Scratch,
		c.Paths.Output,
	}
}

// MusicDirs lists the per-theme background music folders under Paths.Music
func (c *Config) MusicDirs() []string {
	var out []string
	for _, folder := range theme.MusicFolders() {
		out = append(out, filepath.Join(c.Paths.Music, folder))
	}
	return out
}

// EnsureDirs creates every directory in Dirs plus the theme music folders
func (c *Config) EnsureDirs() error {
	for _, dir := range append(c.Dirs(), c.MusicDirs()...) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	switch c.Audio.Provider {
	case "elevenlabs", "polly":
	default:
		return fmt.Errorf("audio.provider must be elevenlabs or polly, got %q", c.Audio.Provider)
	}
	if c.Visuals.Width <= 0 || c.Visuals.Height <= 0 {
		return fmt.Errorf("visuals resolution must be positive, got %dx%d", c.Visuals.Width, c.Visuals.Height)
	}
	if c.Visuals.VideoSegmentSec <= 0 || c.Visuals.VideoSegmentSec > c.Visuals.VideoOnlyMaxSec {
		return fmt.Errorf("visuals.video_segment_sec must be in (0, %.1f]", c.Visuals.VideoOnlyMaxSec)
	}
	if c.Render.MusicVolume < 0 || c.Render.MusicVolume > 1 {
		return fmt.Errorf("render.music_volume must be within [0,1], got %.2f", c.Render.MusicVolume)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}
