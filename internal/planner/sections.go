package planner

import (
	"strings"

	"ai-fitness-planner/internal/segment"
)

const (
	workoutMarker    = "===WORKOUT==="
	dietMarker       = "===DIET==="
	motivationMarker = "===MOTIVATION==="
)

// Sections are the three plan texts of one generation.
type Sections struct {
	Workout    string `json:"workout"`
	Diet       string `json:"diet"`
	Motivation string `json:"motivation"`
}

// Get returns the plan text for category.
func (s Sections) Get(category segment.Category) string {
	switch category {
	case segment.Workout:
		return s.Workout
	case segment.Diet:
		return s.Diet
	case segment.Motivation:
		return s.Motivation
	}
	return ""
}

// With returns s with the plan for category replaced.
func (s Sections) With(category segment.Category, text string) Sections {
	switch category {
	case segment.Workout:
		s.Workout = text
	case segment.Diet:
		s.Diet = text
	case segment.Motivation:
		s.Motivation = text
	}
	return s
}

// SplitSections splits a combined response on the section markers, falling
// back to Markdown section headings. Sections that cannot be found are
// empty; ok reports whether all three were found.
func SplitSections(text string) (s Sections, ok bool) {
	s.Workout = firstNonEmpty(
		between(text, workoutMarker, dietMarker),
		between(text, "# Workout", "# Diet"),
	)
	s.Diet = firstNonEmpty(
		between(text, dietMarker, motivationMarker),
		between(text, "# Diet", "# Motivation"),
		between(text, "## Diet", "## Motivation"),
	)
	s.Motivation = firstNonEmpty(
		between(text, motivationMarker, ""),
		between(text, "# Motivation", ""),
		between(text, "## Motivation", ""),
	)

	s.Workout = cutAt(s.Workout, dietMarker)
	s.Diet = cutAt(s.Diet, motivationMarker)
	s.Motivation = cutAt(cutAt(s.Motivation, workoutMarker), dietMarker)

	return s, s.Workout != "" && s.Diet != "" && s.Motivation != ""
}

// between returns the trimmed text after the first start marker, up to the
// next start marker or end marker.
func between(text, start, end string) string {
	_, after, found := strings.Cut(text, start)
	if !found {
		return ""
	}
	after = cutAt(after, start)
	if end != "" {
		after = cutAt(after, end)
	}
	return strings.TrimSpace(after)
}

// cutAt keeps the text before marker. Heading markers may split a deeper
// heading ("## Diet" on "# Diet"), so dangling hashes are dropped.
func cutAt(text, marker string) string {
	before, _, _ := strings.Cut(text, marker)
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(before), "#"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
