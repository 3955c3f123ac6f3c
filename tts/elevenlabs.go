package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// ElevenLabs calls the ElevenLabs text-to-speech REST API
type ElevenLabs struct {
	apiKey  string
	baseURL string
	modelID string
	voice   voiceSettings
	http    *http.Client
	policy  retry.Policy
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabs creates a client for cfg.ElevenLabsURL
func NewElevenLabs(apiKey string, cfg config.AudioConfig, policy retry.Policy) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(cfg.ElevenLabsURL, "/"),
		modelID: cfg.ModelID,
		voice: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
		},
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		policy: policy,
	}
}

// Synthesize posts text and returns the MP3 body. 401s are retried: the API
// returns them transiently under load.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{Text: text, ModelID: e.modelID, VoiceSettings: e.voice})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, url.PathEscape(voice))

	var audio []byte
	err = e.policy.Do(ctx, "elevenlabs text-to-speech", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", e.apiKey)

		resp, err := e.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Service: "elevenlabs", StatusCode: resp.StatusCode, Body: string(data)}
		}
		if len(data) == 0 {
			return retry.Permanent(errors.New("elevenlabs returned an empty audio body"))
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}
