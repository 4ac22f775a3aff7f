package render

import (
	"reflect"
	"testing"

	"ai-fitness-planner/internal/segment"
)

const workoutPlan = "# Plan\n## Day 1: Legs\n- **Squats:** 3x10 (60s)\n- **Lunges:** 3x12\n## Day 2: Arms\n- **Curls:** 3x12"

func TestRenderWorkout(t *testing.T) {
	blocks := Render(workoutPlan, segment.Workout, NewState())
	if len(blocks) != 6 {
		t.Fatalf("Expected 6 blocks, got %d", len(blocks))
	}

	day := blocks[1]
	if day.Key != "day-1" || day.SpokenContent != "Legs. Squats 3x10 60s. Lunges 3x12." {
		t.Errorf("Unexpected day block %+v", day)
	}
	if !reflect.DeepEqual(day.Actions, []Action{ActionListen}) {
		t.Errorf("Expected listen action, got %v", day.Actions)
	}

	item := blocks[2]
	if item.Key != "workout-2" || item.ImagePrompt != "squats" || item.ImageType != ImageExercise {
		t.Errorf("Unexpected item block %+v", item)
	}
	if item.Accent != AccentOrange {
		t.Errorf("Expected orange accent, got %s", item.Accent)
	}
	if blocks[4].Key != "day-2" {
		t.Errorf("Expected second day key, got %q", blocks[4].Key)
	}
	if blocks[0].Key != "" || blocks[0].Actions != nil {
		t.Errorf("Expected no actions on a plain heading, got %+v", blocks[0])
	}
}

func TestRenderDietAndMotivation(t *testing.T) {
	diet := Render("## Day 1\n- **Oatmeal:** with berries", segment.Diet, NewState())
	if diet[0].Key != "" {
		t.Errorf("Expected diet day blocks without listen key, got %q", diet[0].Key)
	}
	if diet[1].ImageType != ImageMeal || diet[1].Accent != AccentGreen || diet[1].Key != "diet-1" {
		t.Errorf("Unexpected diet item %+v", diet[1])
	}

	motivation := Render("- **Mindset:** be consistent", segment.Motivation, NewState())
	if motivation[0].Key != "" || motivation[0].Accent != AccentPurple {
		t.Errorf("Unexpected motivation block %+v", motivation[0])
	}
}

func TestRenderIsPure(t *testing.T) {
	state := NewState()
	state = Reduce(state, Event{Type: EventImageRequested, Key: "workout-2"})

	first := Render(workoutPlan, segment.Workout, state)
	second := Render(workoutPlan, segment.Workout, state)
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output for identical input")
	}
	if !first[2].Generating || first[2].Actions != nil {
		t.Errorf("Expected generating item without actions, got %+v", first[2])
	}
}

func TestRenderReflectsState(t *testing.T) {
	state := NewState()
	state = Reduce(state, Event{Type: EventImageRequested, Key: "workout-2"})
	state = Reduce(state, Event{Type: EventImageReady, Key: "workout-2", URL: "https://img/squats.png"})
	state = Reduce(state, Event{Type: EventAudioStarted, Key: "day-2"})

	blocks := Render(workoutPlan, segment.Workout, state)
	if blocks[2].Image != "https://img/squats.png" || blocks[2].Generating {
		t.Errorf("Expected ready image, got %+v", blocks[2])
	}
	if !blocks[4].Playing || !reflect.DeepEqual(blocks[4].Actions, []Action{ActionStop}) {
		t.Errorf("Expected day 2 playing with stop action, got %+v", blocks[4])
	}
	if blocks[1].Playing {
		t.Error("Expected day 1 to be idle")
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key      Key
		category segment.Category
		n        int
		wantErr  bool
	}{
		{key: "workout-12", category: segment.Workout, n: 12},
		{key: "diet-3", category: segment.Diet, n: 3},
		{key: "day-2", category: segment.Workout, n: 2},
		{key: "cardio-1", wantErr: true},
		{key: "workout", wantErr: true},
		{key: "diet-x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			category, n, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && (category != tt.category || n != tt.n) {
				t.Errorf("ParseKey(%q) = %s %d", tt.key, category, n)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	block, ok := Lookup(workoutPlan, segment.Workout, "workout-3")
	if !ok || block.ImagePrompt != "lunges" {
		t.Errorf("Expected lunges block, got %+v %v", block, ok)
	}
	if _, ok := Lookup(workoutPlan, segment.Workout, "workout-99"); ok {
		t.Error("Expected missing key")
	}
}

func TestRenderExampleScenario(t *testing.T) {
	plan := "## Day 1: Legs\n- **Squats:** 3x10 (60s)\n- **Lunges:** 3x12 (45s)"
	blocks := Render(plan, segment.Workout, NewState())

	if blocks[0].Key != "day-1" || blocks[0].Day != 1 {
		t.Errorf("Expected day-1 block, got %+v", blocks[0])
	}
	if blocks[0].SpokenContent != "Legs. Squats 3x10 60s. Lunges 3x12 45s." {
		t.Errorf("Unexpected spoken content %q", blocks[0].SpokenContent)
	}
	if blocks[1].Name != "Squats" || blocks[1].Key != "workout-1" {
		t.Errorf("Unexpected first item %+v", blocks[1])
	}
	if blocks[2].Name != "Lunges" || blocks[2].Key != "workout-2" {
		t.Errorf("Unexpected second item %+v", blocks[2])
	}
}
