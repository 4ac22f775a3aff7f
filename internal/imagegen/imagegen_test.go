package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/render"

	"github.com/openai/openai-go/option"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    string
		wantErr bool
	}{
		{name: "exercise", req: Request{Prompt: "push-ups", Type: render.ImageExercise}, want: "performing push-ups"},
		{name: "meal", req: Request{Prompt: "grilled chicken", Type: render.ImageMeal}, want: "photograph of grilled chicken"},
		{name: "default type", req: Request{Prompt: "squats"}, want: "performing squats"},
		{name: "empty", req: Request{Prompt: "  "}, wantErr: true},
		{name: "unknown type", req: Request{Prompt: "x", Type: "poster"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Prompt(tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected prompt to contain %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images/generations") {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created": 1, "data": [{"url": "https://img.example/squat.png"}]}`))
	}))
	defer server.Close()

	cfg := &config.Config{OpenAIAPIKey: "test-key"}
	g, err := NewOpenAI(cfg, option.WithBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := g.Generate(context.Background(), Request{Prompt: "squats", Type: render.ImageExercise})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.URL != "https://img.example/squat.png" {
		t.Errorf("Unexpected url %q", res.URL)
	}
	if gotBody["model"] != "dall-e-3" {
		t.Errorf("Expected dall-e-3, got %v", gotBody["model"])
	}
}

func TestOpenAIGenerateFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "boom"}}`))
	}))
	defer server.Close()

	g, err := NewOpenAI(&config.Config{OpenAIAPIKey: "k"}, option.WithBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), Request{Prompt: "rice", Type: render.ImageMeal}); err == nil {
		t.Fatal("Expected an error")
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}

func TestNew(t *testing.T) {
	g, err := New(&config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}

	var cfgErr *config.Error
	if _, err := NewOpenAI(&config.Config{}); !errors.As(err, &cfgErr) || cfgErr.Key != "OPENAI_API_KEY" {
		t.Errorf("Expected missing key error, got %v", err)
	}
}
