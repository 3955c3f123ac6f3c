package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"

	"fandom-explainer/config"
	"fandom-explainer/retry"
)

// Polly synthesizes speech with Amazon Polly. Credentials come from the
// default AWS chain.
type Polly struct {
	svc    pollyiface.PollyAPI
	engine string
	policy retry.Policy
}

// NewPolly opens an AWS session in cfg.PollyRegion
func NewPolly(cfg config.AudioConfig, policy retry.Policy) (*Polly, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:     aws.String(cfg.PollyRegion),
		MaxRetries: aws.Int(0),
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewPollyWithClient(polly.New(sess), cfg.PollyEngine, policy), nil
}

// NewPollyWithClient wraps an existing Polly API client
func NewPollyWithClient(svc pollyiface.PollyAPI, engine string, policy retry.Policy) *Polly {
	return &Polly{svc: svc, engine: engine, policy: policy}
}

// Synthesize returns MP3 bytes for text in the given Polly voice
func (p *Polly) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	input := &polly.SynthesizeSpeechInput{
		Engine:       aws.String(p.engine),
		OutputFormat: aws.String(polly.OutputFormatMp3),
		Text:         aws.String(text),
		VoiceId:      aws.String(voice),
	}

	var audio []byte
	err := p.policy.Do(ctx, "polly synthesize", func(ctx context.Context) error {
		out, err := p.svc.SynthesizeSpeechWithContext(ctx, input)
		if err != nil {
			var rf awserr.RequestFailure
			if errors.As(err, &rf) {
				return &retry.StatusError{Service: "polly", StatusCode: rf.StatusCode(), Body: rf.Message()}
			}
			return fmt.Errorf("polly: %w", err)
		}
		defer out.AudioStream.Close()

		data, err := io.ReadAll(out.AudioStream)
		if err != nil {
			return fmt.Errorf("read polly audio: %w", err)
		}
		if len(data) == 0 {
			return retry.Permanent(errors.New("polly returned an empty audio stream"))
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}
