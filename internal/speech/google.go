package speech

import (
	"context"
	"fmt"
	"strings"

	"ai-fitness-planner/internal/config"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Google synthesizes speech with Google Cloud Text-to-Speech.
type Google struct {
	client   *texttospeech.Client
	language string
}

func NewGoogle(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Google, error) {
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	language := cfg.SpeechLanguage
	if language == "" {
		language = "en-US"
	}
	return &Google{client: client, language: language}, nil
}

func (s *Google) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := validate(req); err != nil {
		return Clip{}, err
	}
	resp, err := s.client.SynthesizeSpeech(ctx, googleRequest(req, s.language))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to synthesize text to speech: %w", err)
	}
	return Clip{Data: resp.AudioContent, Format: "mp3"}, nil
}

func (s *Google) Close() error {
	return s.client.Close()
}

func googleRequest(req Request, language string) *texttospeechpb.SynthesizeSpeechRequest {
	text := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(req.Text)

	voice := &texttospeechpb.VoiceSelectionParams{LanguageCode: language}
	// Only full Cloud voice names (en-US-Neural2-F) are forwarded.
	if strings.HasPrefix(req.Voice, language+"-") {
		voice.Name = req.Voice
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  1.0,
		},
	}
}
