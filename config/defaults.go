package config

import "time"

func (c *Config) applyDefaults() {
	setString(&c.LLM.Provider, "openai")
	setString(&c.LLM.BaseURL, "https://api.aimlapi.com/v1")
	setString(&c.LLM.Model, "gpt-4o-mini")
	setString(&c.LLM.GeminiModel, "gemini-1.5-flash")
	setInt(&c.LLM.MaxTokens, 4096)
	setDuration(&c.LLM.RequestTimeout, 60*time.Second)

	setInt(&c.Script.MaxScenes, 3)
	setString(&c.Script.SystemMessage, "You are a helpful educational content creator.")

	setString(&c.Audio.Provider, "elevenlabs")
	setString(&c.Audio.ElevenLabsURL, "https://api.elevenlabs.io/v1")
	setString(&c.Audio.ModelID, "eleven_flash_v2")
	setFloat(&c.Audio.Stability, 0.5)
	setFloat(&c.Audio.SimilarityBoost, 0.75)
	setString(&c.Audio.PollyRegion, "us-east-1")
	setString(&c.Audio.PollyEngine, "neural")
	setFloat(&c.Audio.MinSceneSec, 4.5)
	setFloat(&c.Audio.PauseSec, 0.5)
	setDuration(&c.Audio.RequestTimeout, 60*time.Second)
	setDuration(&c.Audio.InterSceneCooldown, 100*time.Millisecond)

	setString(&c.Stock.BaseURL, "https://api.pexels.com")
	setInt(&c.Stock.PerPage, 1)
	setString(&c.Stock.Orientation, "landscape")
	setString(&c.Stock.Size, "medium")
	setDuration(&c.Stock.RequestTimeout, 30*time.Second)

	setInt(&c.Visuals.Width, 1920)
	setInt(&c.Visuals.Height, 1080)
	setInt(&c.Visuals.FPS, 30)
	setFloat(&c.Visuals.VideoOnlyMaxSec, 5.0)
	setFloat(&c.Visuals.VideoSegmentSec, 4.0)
	setFloat(&c.Visuals.MinImageSec, 2.0)
	setFloat(&c.Visuals.MinVideoSec, 1.0)
	setFloat(&c.Visuals.RebalanceVideoFrac, 0.4)
	setFloat(&c.Visuals.ZoomStart, 1.2)
	setFloat(&c.Visuals.ZoomEnd, 1.0)
	setFloat(&c.Visuals.TailFillThreshold, 0.5)

	setInt(&c.Render.FPS, 30)
	setInt(&c.Render.Threads, 2)
	setString(&c.Render.Preset, "ultrafast")
	setInt(&c.Render.FallbackFPS, 24)
	setInt(&c.Render.FallbackThreads, 1)
	setFloat(&c.Render.MusicVolume, 0.25)
	setFloat(&c.Render.FadeInSec, 1.0)
	setFloat(&c.Render.FadeOutSec, 2.0)
	setFloat(&c.Render.GapToleranceSec, 0.1)

	setString(&c.Subtitles.Font, "Arial")
	setInt(&c.Subtitles.FontSize, 22)
	setString(&c.Subtitles.FontWeight, "bold")
	setFloat(&c.Subtitles.StrokeWidth, 2)
	setInt(&c.Subtitles.MarginBottom, 40)

	setString(&c.Upload.Visibility, "private")
	setString(&c.Upload.CategoryID, "27") // Education
	setString(&c.Upload.DefaultLanguage, "en")

	setInt(&c.Retry.MaxAttempts, 3)
	setDuration(&c.Retry.Delay, 2*time.Second)

	setString(&c.Server.Addr, ":8000")
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	setString(&c.Queue.Name, "q_video_render")
	setDuration(&c.Queue.JobTTL, 24*time.Hour)
	setDuration(&c.Queue.PopTimeout, 5*time.Second)

	setString(&c.Paths.Audio, "generated_audio")
	setString(&c.Paths.Video, "generated_videos")
	setString(&c.Paths.Media, "media_assets")
	setString(&c.Paths.Music, "bg_music")
	setString(&c.Paths.Scratch, "scratch")
	setString(&c.Paths.Output, "output")
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
