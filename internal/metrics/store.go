package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ai-fitness-planner/internal/database"
	"ai-fitness-planner/internal/shared"
)

// ExecutionMetric records metadata for a single generation call.
type ExecutionMetric struct {
	AgentName        string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	CacheHit         bool
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_metrics
		 (agent_name, provider, model, prompt_tokens, completion_tokens, latency_ms, cache_hit, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Provider, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, m.CacheHit,
		database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to record execution metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	return s.Record(ctx, MapMeta(meta, s.now()))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	CacheHits       int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(timestamp, 1, 10) AS day,
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COUNT(*),
		        COALESCE(SUM(cache_hit), 0)
		 FROM execution_metrics
		 WHERE timestamp >= ?
		 GROUP BY day
		 ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution, &u.CacheHits); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapMeta converts generation metadata to an ExecutionMetric.
func MapMeta(meta shared.AgentMeta, at time.Time) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        meta.AgentName,
		Provider:         meta.Provider,
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
		CacheHit:         meta.CacheHit,
		Timestamp:        at,
	}
}
