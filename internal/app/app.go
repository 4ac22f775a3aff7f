package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"ai-fitness-planner/internal/actions"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/imagegen"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/pdf"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/speech"
	"ai-fitness-planner/internal/storage"
	"ai-fitness-planner/internal/streak"
)

var (
	// ErrNotCurrent is returned for side-channel actions on a plan that has
	// since been replaced.
	ErrNotCurrent = errors.New("plan is no longer the current plan")
	// ErrNoAction is returned when a key names no block offering the action.
	ErrNoAction = errors.New("no such action for this plan")
)

// Deps are the collaborators of an App.
type Deps struct {
	Config    *config.Config
	Generator *planner.Generator
	Plans     *planner.PlanRepository
	Actions   *actions.Controller
	Streaks   *streak.Repository
	Metrics   *metrics.Store
	Catalog   *content.Catalog
	Enricher  *content.Enricher
	Clips     *storage.ClipStore
	Speech    speech.Synthesizer
	Logger    *slog.Logger
}

// App holds the application's dependencies and runs the plan workflows
// shared by the HTTP API, the Telegram bot and the CLI.
type App struct {
	cfg       *config.Config
	generator *planner.Generator
	plans     *planner.PlanRepository
	actions   *actions.Controller
	streaks   *streak.Repository
	metrics   *metrics.Store
	catalog   *content.Catalog
	enricher  *content.Enricher
	clips     *storage.ClipStore
	speech    speech.Synthesizer
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *planner.Bundle
}

// NewApp creates and initializes a new App instance.
func NewApp(d Deps) *App {
	return &App{
		cfg:       d.Config,
		generator: d.Generator,
		plans:     d.Plans,
		actions:   d.Actions,
		streaks:   d.Streaks,
		metrics:   d.Metrics,
		catalog:   d.Catalog,
		enricher:  d.Enricher,
		clips:     d.Clips,
		speech:    d.Speech,
		logger:    d.Logger,
		now:       time.Now,
	}
}

func (a *App) Config() *config.Config    { return a.cfg }
func (a *App) Catalog() *content.Catalog { return a.catalog }

// Restore makes the last persisted bundle current again.
func (a *App) Restore(ctx context.Context) error {
	b, err := a.plans.Latest(ctx)
	if errors.Is(err, planner.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	a.setCurrent(b)
	a.logger.Info("restored last plan", "id", b.ID, "created_at", b.CreatedAt)
	return nil
}

// GeneratePlan generates, persists and activates a new bundle. Side-channel
// state of the previous plan is discarded.
func (a *App) GeneratePlan(ctx context.Context, d planner.UserDetails) (*planner.Bundle, error) {
	res, err := a.generator.Generate(ctx, d)
	if err != nil {
		return nil, err
	}

	b := planner.NewBundle(d.Normalize(), res.Sections, res.Source, a.now())
	if err := a.plans.Save(ctx, b); err != nil {
		return nil, err
	}
	a.setCurrent(&b)
	a.actions.Reset()

	a.logger.Info("plan generated", "id", b.ID, "source", b.Source,
		"prompt_tokens", res.Meta.Usage.PromptTokens, "latency", res.Meta.Latency)
	return &b, nil
}

// Current returns the active bundle.
func (a *App) Current() (*planner.Bundle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, false
	}
	b := *a.current
	return &b, true
}

// LatestPlan returns the active bundle, or the newest persisted one.
func (a *App) LatestPlan(ctx context.Context) (*planner.Bundle, error) {
	if b, ok := a.Current(); ok {
		return b, nil
	}
	return a.plans.Latest(ctx)
}

// Plan returns the bundle with id.
func (a *App) Plan(ctx context.Context, id string) (*planner.Bundle, error) {
	if b, ok := a.Current(); ok && b.ID == id {
		return b, nil
	}
	return a.plans.Get(ctx, id)
}

// RegeneratePlan replaces one category of a bundle with a fresh plan.
func (a *App) RegeneratePlan(ctx context.Context, id string, category segment.Category) (*planner.Bundle, error) {
	b, err := a.Plan(ctx, id)
	if err != nil {
		return nil, err
	}

	text, _, err := a.generator.Regenerate(ctx, b.Details, category)
	if err != nil {
		return nil, err
	}
	if err := a.plans.UpdatePlan(ctx, id, category, text); err != nil {
		return nil, err
	}
	b.Sections = b.Sections.With(category, text)

	a.mu.Lock()
	isCurrent := a.current != nil && a.current.ID == id
	if isCurrent {
		a.current = b
	}
	a.mu.Unlock()
	if isCurrent {
		a.actions.Reset()
	}
	return b, nil
}

// Blocks renders one category of a bundle. Only the current bundle carries
// image and audio state.
func (a *App) Blocks(ctx context.Context, id string, category segment.Category) ([]render.Block, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown plan category %q", category)
	}
	b, err := a.Plan(ctx, id)
	if err != nil {
		return nil, err
	}
	state := render.NewState()
	if a.isCurrent(id) {
		state = a.actions.State()
	}
	return render.Render(b.Plan(category), category, state), nil
}

// State returns the side-channel state of the current plan.
func (a *App) State() render.State {
	return a.actions.State()
}

// Subscribe streams side-channel updates of the current plan.
func (a *App) Subscribe() (<-chan actions.Update, func()) {
	return a.actions.Subscribe()
}

// GenerateImage generates the illustration of the item block at key and
// waits for the outcome.
func (a *App) GenerateImage(ctx context.Context, id string, key render.Key) (render.ImageState, error) {
	block, err := a.block(id, key)
	if err != nil {
		return render.ImageState{}, err
	}
	if block.ImageType == "" {
		return render.ImageState{}, ErrNoAction
	}
	return a.actions.GenerateImage(ctx, key, imagegen.Request{Prompt: block.ImagePrompt, Type: block.ImageType})
}

// Listen plays the spoken content of the day block at key.
func (a *App) Listen(ctx context.Context, id string, key render.Key) (actions.Session, error) {
	block, err := a.block(id, key)
	if err != nil {
		return actions.Session{}, err
	}
	if !render.IsDayKey(key) || block.SpokenContent == "" {
		return actions.Session{}, ErrNoAction
	}
	return a.actions.Listen(ctx, key, block.SpokenContent)
}

// SpeakDay synthesizes the spoken content of a day of any stored bundle
// without playing it.
func (a *App) SpeakDay(ctx context.Context, id string, key render.Key) (speech.Clip, error) {
	if a.speech == nil || !render.IsDayKey(key) {
		return speech.Clip{}, ErrNoAction
	}
	b, err := a.Plan(ctx, id)
	if err != nil {
		return speech.Clip{}, err
	}
	category, _, err := render.ParseKey(key)
	if err != nil {
		return speech.Clip{}, fmt.Errorf("%w: %v", ErrNoAction, err)
	}
	block, ok := render.Lookup(b.Plan(category), category, key)
	if !ok || block.SpokenContent == "" {
		return speech.Clip{}, ErrNoAction
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	return a.speech.Synthesize(ctx, speech.Request{Text: block.SpokenContent, Voice: a.cfg.SpeechVoice})
}

// Stop halts playback of key.
func (a *App) Stop(id string, key render.Key) error {
	if !a.isCurrent(id) {
		return ErrNotCurrent
	}
	return a.actions.Stop(key)
}

// AudioFinished records a client report that playback of key ended.
func (a *App) AudioFinished(id string, key render.Key, failure string) error {
	if !a.isCurrent(id) {
		return ErrNotCurrent
	}
	return a.actions.Finished(key, failure)
}

// Clip returns a stored audio clip and its format.
func (a *App) Clip(id string) ([]byte, string, error) {
	return a.clips.Load(id)
}

// PruneClips removes clips older than maxAge.
func (a *App) PruneClips(maxAge time.Duration) (int, error) {
	return a.clips.RemoveStale(a.now().Add(-maxAge))
}

// ExportPDF writes the paginated document of a bundle to w.
func (a *App) ExportPDF(ctx context.Context, id string, w io.Writer) error {
	b, err := a.Plan(ctx, id)
	if err != nil {
		return err
	}
	doc, err := pdf.Export(pdf.Plans{Workout: b.Workout, Diet: b.Diet, Motivation: b.Motivation})
	if err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if _, err := w.Write(doc); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// Streak returns the current streak summary.
func (a *App) Streak(ctx context.Context) (streak.Summary, error) {
	record, err := a.streaks.Load(ctx)
	if err != nil {
		return streak.Summary{}, err
	}
	return record.Summary(a.now()), nil
}

// CheckIn marks today as completed.
func (a *App) CheckIn(ctx context.Context) (streak.Summary, error) {
	return a.streaks.CheckIn(ctx, a.now())
}

// Usage returns daily generation totals for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metrics.GetDailyUsage(ctx, days)
}

// Health reports process and host metrics.
func (a *App) Health(ctx context.Context) metrics.SysHealth {
	return metrics.GetSysHealth(ctx, filepath.Dir(a.cfg.DatabasePath))
}

// CleanupMetrics removes metric records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metrics.Cleanup(ctx, days)
}

// Reads returns the suggested reads with page descriptions filled in where
// the pages could be fetched.
func (a *App) Reads(ctx context.Context) []content.Read {
	if a.enricher == nil {
		return a.catalog.Reads
	}
	return a.enricher.Enrich(ctx, a.catalog.Reads)
}

// Close stops in-flight side channels.
func (a *App) Close() {
	a.actions.Close()
}

func (a *App) setCurrent(b *planner.Bundle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = b
}

func (a *App) isCurrent(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && a.current.ID == id
}

// block finds the block carrying key in the current bundle.
func (a *App) block(id string, key render.Key) (render.Block, error) {
	b, ok := a.Current()
	if !ok || b.ID != id {
		return render.Block{}, ErrNotCurrent
	}
	category, _, err := render.ParseKey(key)
	if err != nil {
		return render.Block{}, fmt.Errorf("%w: %v", ErrNoAction, err)
	}
	block, ok := render.Lookup(b.Plan(category), category, key)
	if !ok {
		return render.Block{}, ErrNoAction
	}
	return block, nil
}
