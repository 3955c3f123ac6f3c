// Package tts provides the speech-synthesis clients used by the narration
// stage.
package tts

import (
	"context"
	"fmt"
	"os"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// Synthesizer renders text to MP3 bytes with the given voice
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// New builds the synthesizer selected by cfg.Audio.Provider
func New(cfg *config.Config) (Synthesizer, error) {
	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}

	switch cfg.Audio.Provider {
	case "polly":
		return NewPolly(cfg.Audio, policy)
	default:
		key := os.Getenv("ELEVEN_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ELEVEN_API_KEY environment variable not set")
		}
		return NewElevenLabs(key, cfg.Audio, policy), nil
	}
}
