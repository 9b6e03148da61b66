package narration

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"github.com/markdave123-py/readaloud/internal/core"
)

// CloudTTS synthesizes speech with Google Cloud Text-to-Speech.
type CloudTTS struct {
	svc *texttospeech.Service
}

var _ core.SpeechBackend = (*CloudTTS)(nil)

func NewCloudTTS(ctx context.Context, apiKey string, opts ...option.ClientOption) (*CloudTTS, error) {
	if apiKey == "" {
		return nil, core.ConfigError("cloud tts api key is not set", nil)
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create tts service: %w", err)
	}
	return &CloudTTS{svc: svc}, nil
}

func (c *CloudTTS) Name() string { return "google-cloud-tts" }

func (c *CloudTTS) Synthesize(ctx context.Context, text string, voice core.Voice) (*core.Audio, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: voice.Language,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  voice.Rate,
		},
	}

	resp, err := c.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("cloud tts synthesize: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	if len(data) == 0 {
		return nil, core.APIError("cloud tts returned no audio", nil)
	}
	return &core.Audio{Data: data, MimeType: "audio/mpeg"}, nil
}
