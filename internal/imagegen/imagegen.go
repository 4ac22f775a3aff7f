// Package imagegen produces illustrations for exercises and meals.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/render"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "dall-e-3"

// ErrDisabled is returned when no image backend is configured.
var ErrDisabled = errors.New("image generation is not configured")

type Request struct {
	Prompt string
	Type   render.ImageType
}

type Result struct {
	URL string
}

// Generator turns a short subject into an image URL.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// OpenAI generates images with the OpenAI Images API. Each request is a
// single attempt.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg *config.Config, opts ...option.RequestOption) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, &config.Error{Key: "OPENAI_API_KEY"}
	}
	model := cfg.ImageModel
	if model == "" {
		model = defaultModel
	}
	all := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey), option.WithMaxRetries(0)}
	if cfg.OpenAIBaseURL != "" {
		all = append(all, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	all = append(all, opts...)
	return &OpenAI{client: openai.NewClient(all...), model: model}, nil
}

func (g *OpenAI) Generate(ctx context.Context, req Request) (Result, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return Result{}, err
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Result{}, fmt.Errorf("image request rejected with status %d: %w", apiErr.StatusCode, err)
		}
		return Result{}, fmt.Errorf("failed to generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return Result{}, fmt.Errorf("image response contained no url")
	}
	return Result{URL: resp.Data[0].URL}, nil
}

// Prompt expands a subject into the full image prompt for its type.
func Prompt(req Request) (string, error) {
	subject := strings.TrimSpace(req.Prompt)
	if subject == "" {
		return "", fmt.Errorf("image prompt is empty")
	}
	switch req.Type {
	case render.ImageExercise, "":
		return fmt.Sprintf("A clear, well lit fitness illustration of a person performing %s with correct form, plain gym background, no text.", subject), nil
	case render.ImageMeal:
		return fmt.Sprintf("An appetizing overhead food photograph of %s on a plate, natural light, no text.", subject), nil
	default:
		return "", fmt.Errorf("unsupported image type %q", req.Type)
	}
}

// Disabled is the Generator used when images are not configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (Result, error) {
	return Result{}, ErrDisabled
}

// New returns the configured generator, or Disabled when there is no key.
func New(cfg *config.Config) (Generator, error) {
	if !cfg.ImagesEnabled() {
		return Disabled{}, nil
	}
	return NewOpenAI(cfg)
}
