package planner

import (
	"time"

	"ai-fitness-planner/internal/segment"

	"github.com/google/uuid"
)

// Source records where a bundle's plans came from.
type Source string

const (
	SourceModel   Source = "model"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// Bundle is the last generated set of plans together with the details they
// were generated for.
type Bundle struct {
	ID      string      `json:"id"`
	Details UserDetails `json:"details"`
	Sections
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBundle assigns a fresh id to a generation result.
func NewBundle(details UserDetails, sections Sections, source Source, now time.Time) Bundle {
	return Bundle{
		ID:        uuid.NewString(),
		Details:   details,
		Sections:  sections,
		Source:    source,
		CreatedAt: now.UTC(),
	}
}

// Plan returns the plan text for category.
func (b Bundle) Plan(category segment.Category) string {
	return b.Sections.Get(category)
}
