package acceptance_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/server"
)

const planResponse = `===WORKOUT===
## Day 1: Legs
- **Squats:** 3 sets of 10 reps
- **Lunges:** 3 sets of 12 reps

## Day 2: Upper Body
- **Push-ups:** 3 sets of 15 reps
===DIET===
## Breakfast
- **Oatmeal:** 60g oats with berries
===MOTIVATION===
"Every workout is progress."
Keep showing up.`

// --- Mock chat completion endpoint ---
func newModelServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "llama-test",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": planResponse}},
			},
			"usage": map[string]any{"prompt_tokens": 800, "completion_tokens": 1200, "total_tokens": 2000},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, modelURL, dbPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PlanProvider = config.ProviderGroq
	cfg.GroqAPIKey = "test-key"
	cfg.GroqBaseURL = modelURL
	cfg.SpeechProvider = config.SpeechLocal
	cfg.DatabasePath = dbPath
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}
	return &cfg
}

// --- Acceptance Test ---
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	modelServer := newModelServer(t, &calls)
	dbPath := filepath.Join(t.TempDir(), "trainify.db")
	cfg := testConfig(t, modelServer.URL, dbPath)

	details := planner.UserDetails{
		Name: "Alex", Age: 30, Height: 175, Weight: 70,
		Goal: planner.GoalMuscleGain, Level: planner.LevelBeginner, Location: planner.LocationGym,
	}

	// 1. First run: generate, hit the cache, export.
	application, cleanup, err := app.Build(ctx, cfg, logging.NewNop(), app.RemotePlayback)
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}

	first, err := application.GeneratePlan(ctx, details)
	if err != nil {
		t.Fatalf("Expected no error generating plan, got %v", err)
	}
	if first.Source != planner.SourceModel {
		t.Errorf("Expected a model plan, got %s", first.Source)
	}
	if !strings.Contains(first.Workout, "Squats") || !strings.Contains(first.Diet, "Oatmeal") {
		t.Errorf("Unexpected plans %+v", first.Sections)
	}

	second, err := application.GeneratePlan(ctx, details)
	if err != nil {
		t.Fatal(err)
	}
	if second.Source != planner.SourceCache {
		t.Errorf("Expected the second request to be served from cache, got %s", second.Source)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected one model call, got %d", calls.Load())
	}

	var pdf bytes.Buffer
	if err := application.ExportPDF(ctx, second.ID, &pdf); err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	if !bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")) {
		t.Error("Expected a PDF document")
	}

	usage, err := application.Usage(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 1 || usage[0].TotalPrompt != 800 || usage[0].CacheHits != 1 {
		t.Errorf("Expected usage of one model call and one cache hit, got %+v", usage)
	}
	cleanup()

	// 2. Restart: the last bundle is current again, the in-memory cache is not.
	restarted, cleanup, err := app.Build(ctx, cfg, logging.NewNop(), app.RemotePlayback)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	current, ok := restarted.Current()
	if !ok || current.ID != second.ID {
		t.Fatalf("Expected %s to be restored, got %+v", second.ID, current)
	}
	if _, err := restarted.GeneratePlan(ctx, details); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected a fresh model call after restart, got %d calls", calls.Load())
	}
}

func TestHTTPWorkflow(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	modelServer := newModelServer(t, &calls)
	cfg := testConfig(t, modelServer.URL, filepath.Join(t.TempDir(), "trainify.db"))

	application, cleanup, err := app.Build(ctx, cfg, logging.NewNop(), app.RemotePlayback)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	signer, err := server.NewExportSigner("acceptance-secret")
	if err != nil {
		t.Fatal(err)
	}
	api := httptest.NewServer(server.New(application, signer, logging.NewNop(), server.Options{}).Router())
	defer api.Close()

	body := `{"name":"Alex","age":30,"height":175,"weight":70,"goal":"endurance"}`
	resp, err := http.Post(api.URL+"/api/v1/plans", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var bundle planner.Bundle
	json.NewDecoder(resp.Body).Decode(&bundle)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || bundle.ID == "" {
		t.Fatalf("Expected 201 with a bundle, got %d %+v", resp.StatusCode, bundle)
	}

	resp, err = http.Post(api.URL+"/api/v1/plans/"+bundle.ID+"/export-link", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var link struct {
		URL string `json:"url"`
	}
	json.NewDecoder(resp.Body).Decode(&link)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || link.URL == "" {
		t.Fatalf("Expected an export link, got %d %+v", resp.StatusCode, link)
	}

	resp, err = http.Get(api.URL + link.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("Expected a PDF download, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), server.ExportFilename) {
		t.Errorf("Expected attachment named %s, got %q", server.ExportFilename, resp.Header.Get("Content-Disposition"))
	}
}
