package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"ai-fitness-planner/internal/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI synthesizes speech with the tts-1 model.
type OpenAI struct {
	client openai.Client
}

func NewOpenAI(cfg *config.Config, opts ...option.RequestOption) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, &config.Error{Key: "OPENAI_API_KEY"}
	}
	all := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		all = append(all, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	all = append(all, opts...)
	return &OpenAI{client: openai.NewClient(all...)}, nil
}

func (s *OpenAI) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := validate(req); err != nil {
		return Clip{}, err
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          req.Text,
		Voice:          openai.AudioSpeechNewParamsVoice(OpenAIVoice(req.Voice)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return Clip{}, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Clip{}, fmt.Errorf("speech request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read speech audio: %w", err)
	}
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("speech response was empty")
	}
	return Clip{Data: data, Format: "mp3"}, nil
}
