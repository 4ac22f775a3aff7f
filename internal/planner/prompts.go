package planner

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"ai-fitness-planner/internal/segment"
)

//go:embed prompts/*.md
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"label": func(v any) string { return Label(fmt.Sprint(v)) },
}).ParseFS(promptFS, "prompts/*.md"))

type formatting struct {
	Items      string
	ItemName   string
	ItemDetail string
	NoteLabel  string
}

type categoryPromptData struct {
	Details UserDetails
	Format  formatting
}

var categoryFormats = map[segment.Category]formatting{
	segment.Workout:    {Items: "items (like exercises)", ItemName: "Exercise Name", ItemDetail: "Reps, Sets, Rest", NoteLabel: "Description"},
	segment.Diet:       {Items: "items (like meals)", ItemName: "Meal Name", ItemDetail: "Portion size, Calories", NoteLabel: "Description"},
	segment.Motivation: {Items: "items (like tips)", ItemName: "Tip Name", ItemDetail: "Brief description", NoteLabel: "Note"},
}

// buildPlanPrompt renders the single prompt that asks for all three plans.
func buildPlanPrompt(d UserDetails) (string, error) {
	return execute("plan_prompt.md", d)
}

// buildCategoryPrompt renders the detailed prompt for one plan.
func buildCategoryPrompt(d UserDetails, category segment.Category) (string, error) {
	format, ok := categoryFormats[category]
	if !ok {
		return "", fmt.Errorf("unknown plan category %q", category)
	}
	return execute(string(category)+"_prompt.md", categoryPromptData{Details: d, Format: format})
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
