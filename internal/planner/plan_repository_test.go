package planner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ai-fitness-planner/internal/database"
	"ai-fitness-planner/internal/segment"
)

func TestPlanRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	repo := NewPlanRepository(db.SQL)

	t.Run("LatestEmpty", func(t *testing.T) {
		if _, err := repo.Latest(ctx); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	older := NewBundle(testDetails(), Sections{Workout: "w1", Diet: "d1", Motivation: "m1"}, SourceModel, now.Add(-time.Hour))
	newer := NewBundle(testDetails(), Sections{Workout: "w2", Diet: "d2", Motivation: "m2"}, SourceDefault, now)

	for _, b := range []Bundle{older, newer} {
		if err := repo.Save(ctx, b); err != nil {
			t.Fatalf("Failed to save bundle: %v", err)
		}
	}

	t.Run("Latest", func(t *testing.T) {
		got, err := repo.Latest(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != newer.ID || got.Workout != "w2" || got.Source != SourceDefault {
			t.Errorf("Unexpected latest bundle %+v", got)
		}
		if got.Details != testDetails() {
			t.Errorf("Details did not round trip: %+v", got.Details)
		}
		if !got.CreatedAt.Equal(now) {
			t.Errorf("Expected created_at %v, got %v", now, got.CreatedAt)
		}
	})

	t.Run("GetAndUpdate", func(t *testing.T) {
		if err := repo.UpdatePlan(ctx, older.ID, segment.Diet, "d1-new"); err != nil {
			t.Fatal(err)
		}
		got, err := repo.Get(ctx, older.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Diet != "d1-new" || got.Workout != "w1" {
			t.Errorf("Unexpected bundle after update %+v", got)
		}
		if err := repo.UpdatePlan(ctx, "missing", segment.Diet, "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserDetails(t *testing.T) {
	t.Run("Normalize", func(t *testing.T) {
		d := UserDetails{Name: "  Asha   Rao ", Goal: "Muscle Gain", Diet: "NON-VEGETARIAN"}.Normalize()
		if d.Name != "Asha Rao" || d.Goal != GoalMuscleGain || d.Diet != DietNonVegetarian {
			t.Errorf("Unexpected normalization %+v", d)
		}
	})

	t.Run("CanonicalKeyIsStable", func(t *testing.T) {
		a := testDetails()
		b := testDetails()
		b.Level = "Beginner"
		if a.CanonicalKey() != b.CanonicalKey() {
			t.Error("Expected equal keys for equivalent details")
		}
		b.Weight = 61
		if a.CanonicalKey() == b.CanonicalKey() {
			t.Error("Expected different keys for different details")
		}
	})

	tests := []struct {
		field  string
		modify func(*UserDetails)
	}{
		{"name", func(d *UserDetails) { d.Name = " " }},
		{"age", func(d *UserDetails) { d.Age = 0 }},
		{"height", func(d *UserDetails) { d.Height = -1 }},
		{"weight", func(d *UserDetails) { d.Weight = 0 }},
		{"gender", func(d *UserDetails) { d.Gender = "robot" }},
		{"goal", func(d *UserDetails) { d.Goal = "fame" }},
		{"level", func(d *UserDetails) { d.Level = "expert" }},
		{"location", func(d *UserDetails) { d.Location = "moon" }},
		{"diet", func(d *UserDetails) { d.Diet = "paleo" }},
	}
	for _, tt := range tests {
		t.Run("Invalid-"+tt.field, func(t *testing.T) {
			d := testDetails()
			tt.modify(&d)
			var vErr *ValidationError
			if err := d.Validate(); !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Errorf("Expected %s validation error, got %v", tt.field, err)
			}
		})
	}

	if err := testDetails().Validate(); err != nil {
		t.Errorf("Expected valid details, got %v", err)
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"weight-loss":    "Weight Loss",
		"non-vegetarian": "Non Vegetarian",
		"gym":            "Gym",
		"":               "Not specified",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}
