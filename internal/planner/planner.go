package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ai-fitness-planner/internal/cache"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/shared"
)

// MetricsRecorder persists generation metadata.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Result is the outcome of a generation call.
type Result struct {
	Sections
	Source Source
	Meta   shared.AgentMeta
}

// Generator produces workout, diet and motivation plans with a language
// model. Responses are cached by the user's details.
type Generator struct {
	textGen  llm.TextGenerator
	cache    *cache.Cache[Sections]
	defaults content.Defaults
	provider string
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewGenerator creates a new Generator. metrics may be nil.
func NewGenerator(
	textGen llm.TextGenerator,
	planCache *cache.Cache[Sections],
	defaults content.Defaults,
	provider string,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		textGen:  textGen,
		cache:    planCache,
		defaults: defaults,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// DefaultSections returns the built-in plans.
func (g *Generator) DefaultSections() Sections {
	return Sections{Workout: g.defaults.Workout, Diet: g.defaults.Diet, Motivation: g.defaults.Motivation}
}

// Generate returns the three plans for d. A cached result short-circuits the
// model call. Configuration, rate limit and authorization errors are
// returned; any other model failure yields the default plans, which are
// cached like a model response.
func (g *Generator) Generate(ctx context.Context, d UserDetails) (Result, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return Result{}, err
	}

	key := d.CanonicalKey()
	if cached, storedAt, ok := g.cache.Get(key); ok {
		g.logger.Info("using cached plans", "stored_at", storedAt)
		meta := shared.AgentMeta{AgentName: "Planner", Provider: g.provider, CacheHit: true}
		g.record(ctx, meta)
		return Result{Sections: cached, Source: SourceCache, Meta: meta}, nil
	}

	prompt, err := buildPlanPrompt(d)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	meta := shared.AgentMeta{AgentName: "Planner", Provider: g.provider, Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		if fatal(ctx, err) {
			return Result{}, err
		}
		g.logger.Warn("plan generation failed, using default plans", "error", err)
		return g.store(ctx, key, g.DefaultSections(), SourceDefault, meta), nil
	}

	sections, complete := SplitSections(resp.Content)
	source := SourceModel
	if !complete {
		g.logger.Warn("plan response was incomplete, filling with default plans",
			"workout", sections.Workout != "", "diet", sections.Diet != "", "motivation", sections.Motivation != "")
		sections, source = g.fill(sections)
	}
	return g.store(ctx, key, sections, source, meta), nil
}

// Regenerate produces a new plan for one category with the detailed
// category prompt. The cached bundle for d, if any, is updated.
func (g *Generator) Regenerate(ctx context.Context, d UserDetails, category segment.Category) (string, shared.AgentMeta, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return "", shared.AgentMeta{}, err
	}
	if !category.Valid() {
		return "", shared.AgentMeta{}, fmt.Errorf("unknown plan category %q", category)
	}

	prompt, err := buildCategoryPrompt(d, category)
	if err != nil {
		return "", shared.AgentMeta{}, err
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	meta := shared.AgentMeta{AgentName: "Regenerate", Provider: g.provider, Usage: resp.Usage, Latency: time.Since(start)}
	g.record(ctx, meta)

	text := strings.TrimSpace(resp.Content)
	if err != nil {
		if fatal(ctx, err) {
			return "", meta, err
		}
		g.logger.Warn("plan regeneration failed, using default plan", "category", category, "error", err)
		text = ""
	}
	if text == "" {
		text = g.DefaultSections().Get(category)
	}

	key := d.CanonicalKey()
	if cached, _, ok := g.cache.Get(key); ok {
		g.cache.Put(key, cached.With(category, text))
	}
	return text, meta, nil
}

func (g *Generator) fill(s Sections) (Sections, Source) {
	defaults := g.DefaultSections()
	missing := 0
	for _, c := range segment.Categories {
		if s.Get(c) == "" {
			s = s.With(c, defaults.Get(c))
			missing++
		}
	}
	if missing == len(segment.Categories) {
		return s, SourceDefault
	}
	return s, SourceModel
}

func (g *Generator) store(ctx context.Context, key string, s Sections, source Source, meta shared.AgentMeta) Result {
	if evicted := g.cache.Put(key, s); evicted > 0 {
		g.logger.Debug("plan cache evicted entries", "count", evicted)
	}
	g.record(ctx, meta)
	return Result{Sections: s, Source: source, Meta: meta}
}

func (g *Generator) record(ctx context.Context, meta shared.AgentMeta) {
	if g.metrics == nil {
		return
	}
	if err := g.metrics.RecordMeta(ctx, meta); err != nil {
		g.logger.Warn("failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}

// fatal reports whether err must reach the caller instead of being replaced
// by default plans.
func fatal(ctx context.Context, err error) bool {
	var (
		cfgErr  *config.Error
		rateErr *llm.RateLimitError
		authErr *llm.AuthError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &rateErr), errors.As(err, &authErr):
		return true
	case ctx.Err() != nil:
		return true
	}
	return false
}
