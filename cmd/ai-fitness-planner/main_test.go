package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const planResponse = `===WORKOUT===
## Day 1: Legs
- **Squats:** 3 sets of 10 reps
===DIET===
## Breakfast
- **Oatmeal:** 60g oats
===MOTIVATION===
Keep showing up.`

// setupCLITestEnv writes a config file pointing at a temporary database and
// a fake chat completion endpoint.
func setupCLITestEnv(t *testing.T) string {
	t.Helper()

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": planResponse}}},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(model.Close)

	for _, key := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "TTS_PROVIDER", "DATABASE_PATH", "PLAN_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("GROQ_BASE_URL", model.URL)

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	config := `[plan]
provider = "groq"

[speech]
provider = "local"

[database]
path = "` + filepath.ToSlash(filepath.Join(base, "trainify.db")) + `"

[log]
level = "error"
`
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCommand()
	want := []string{"serve", "generate", "show", "export", "listen", "streak", "metrics", "metrics-cleanup"}
	for _, name := range want {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (%v)", name, found, err)
		}
	}
}

func TestGenerateValidatesDetails(t *testing.T) {
	_, err := runCLI(t, "generate", "--name", "Alex", "--age", "0", "--height", "175", "--weight", "70")
	if err == nil || !strings.Contains(err.Error(), "age") {
		t.Errorf("Expected an age validation error, got %v", err)
	}
}

func TestGenerateShowExport(t *testing.T) {
	configPath := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", configPath, "generate",
		"--name", "Alex", "--age", "30", "--height", "175", "--weight", "70", "--goal", "Muscle Gain")
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, out)
	}
	for _, want := range []string{"for Alex", "WORKOUT", "Squats", "DIET", "MOTIVATION", "Day 1: Legs", "listen DAY"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "--config", configPath, "show")
	if err != nil || !strings.Contains(out, "Oatmeal") {
		t.Errorf("Expected latest plan, got %v\n%s", err, out)
	}

	pdfPath := filepath.Join(t.TempDir(), "plan.pdf")
	if _, err := runCLI(t, "--config", configPath, "export", "-o", pdfPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("Expected a PDF at %s (%v)", pdfPath, err)
	}
}

func TestStreakCommands(t *testing.T) {
	configPath := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", configPath, "streak", "checkin")
	if err != nil {
		t.Fatalf("checkin failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Checked in") || !strings.Contains(out, "Current streak: 1 days") {
		t.Errorf("Unexpected checkin output:\n%s", out)
	}

	out, err = runCLI(t, "--config", configPath, "streak")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(today)") || !strings.Contains(out, "✓") {
		t.Errorf("Expected today to be marked in the calendar:\n%s", out)
	}
}

func TestMetricsCleanupRejectsNonPositiveDays(t *testing.T) {
	_, err := runCLI(t, "metrics-cleanup", "--days", "0")
	if err == nil || !strings.Contains(err.Error(), "--days") {
		t.Errorf("Expected a --days error, got %v", err)
	}
}
