package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ai-fitness-planner/internal/database"
	"ai-fitness-planner/internal/segment"
)

// ErrNotFound is returned when no bundle matches.
var ErrNotFound = errors.New("plan bundle not found")

// PlanRepository is a database-backed repository for plan bundles.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts a bundle.
func (r *PlanRepository) Save(ctx context.Context, b Bundle) error {
	details, err := json.Marshal(b.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal user details: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO plan_bundles (id, cache_key, details, workout, diet, motivation, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Details.CanonicalKey(), string(details), b.Workout, b.Diet, b.Motivation, string(b.Source),
		database.FormatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save plan bundle: %w", err)
	}
	return nil
}

// UpdatePlan replaces one plan of a stored bundle.
func (r *PlanRepository) UpdatePlan(ctx context.Context, id string, category segment.Category, text string) error {
	var column string
	switch category {
	case segment.Workout:
		column = "workout"
	case segment.Diet:
		column = "diet"
	case segment.Motivation:
		column = "motivation"
	default:
		return fmt.Errorf("unknown plan category %q", category)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE plan_bundles SET `+column+` = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update plan bundle %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get retrieves a bundle by id.
func (r *PlanRepository) Get(ctx context.Context, id string) (*Bundle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, details, workout, diet, motivation, source, created_at
		 FROM plan_bundles WHERE id = ?`, id)
	return scanBundle(row)
}

// Latest retrieves the most recently generated bundle.
func (r *PlanRepository) Latest(ctx context.Context) (*Bundle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, details, workout, diet, motivation, source, created_at
		 FROM plan_bundles ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanBundle(row)
}

func scanBundle(row *sql.Row) (*Bundle, error) {
	var (
		b         Bundle
		details   string
		source    string
		createdAt string
	)
	err := row.Scan(&b.ID, &details, &b.Workout, &b.Diet, &b.Motivation, &source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan bundle: %w", err)
	}

	if err := json.Unmarshal([]byte(details), &b.Details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user details: %w", err)
	}
	b.Source = Source(source)
	if b.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &b, nil
}
