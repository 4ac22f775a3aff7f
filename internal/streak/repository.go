package streak

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ai-fitness-planner/internal/database"
)

// Repository persists the streak record in the streak_days table.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Load reads the whole record.
func (r *Repository) Load(ctx context.Context) (Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day FROM streak_days WHERE completed = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query streak days: %w", err)
	}
	defer rows.Close()

	record := Record{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan streak day: %w", err)
		}
		record[day] = true
	}
	return record, rows.Err()
}

// Mark records day as completed. Marking a day twice is a no-op.
func (r *Repository) Mark(ctx context.Context, day time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO streak_days (day, completed, marked_at) VALUES (?, 1, ?)
		 ON CONFLICT(day) DO NOTHING`,
		Key(day), database.FormatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to mark streak day: %w", err)
	}
	return nil
}

// CheckIn marks today and returns the updated summary.
func (r *Repository) CheckIn(ctx context.Context, today time.Time) (Summary, error) {
	if err := r.Mark(ctx, today); err != nil {
		return Summary{}, err
	}
	record, err := r.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return record.Summary(today), nil
}
