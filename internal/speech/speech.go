// Package speech synthesizes and plays the spoken version of a workout day.
package speech

import (
	"context"
	"fmt"
	"strings"

	"ai-fitness-planner/internal/config"
)

type Request struct {
	Text  string
	Voice string
}

// Clip is a synthesized audio file.
type Clip struct {
	Data   []byte
	Format string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

const defaultVoice = "alloy"

var openAIVoices = map[string]string{
	"alloy":   "alloy",
	"echo":    "echo",
	"fable":   "fable",
	"onyx":    "onyx",
	"nova":    "nova",
	"shimmer": "shimmer",
	"sarah":   "nova",
	"aria":    "shimmer",
	"roger":   "onyx",
	"charlie": "echo",
}

// OpenAIVoice maps a voice name to an OpenAI voice. Legacy names are
// translated, native names pass through and anything else becomes alloy.
func OpenAIVoice(name string) string {
	if v, ok := openAIVoices[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v
	}
	return defaultVoice
}

// New returns the synthesizer selected by cfg.SpeechProvider. The returned
// close function releases provider clients.
func New(ctx context.Context, cfg *config.Config) (Synthesizer, func() error, error) {
	nop := func() error { return nil }
	switch cfg.SpeechProvider {
	case config.SpeechOpenAI:
		s, err := NewOpenAI(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, nop, nil
	case config.SpeechGoogle:
		s, err := NewGoogle(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.SpeechLocal, "":
		return NewLocal(), nop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported speech provider %q", cfg.SpeechProvider)
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("speech text is empty")
	}
	return nil
}
