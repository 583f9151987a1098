package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/nusup/internal/ports/secondary"
)

// JournalRepository implements secondary.JournalRepository with SQLite.
type JournalRepository struct {
	db *sql.DB
}

// NewJournalRepository creates a new SQLite journal repository.
func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

var _ secondary.JournalRepository = (*JournalRepository)(nil)

// CreateRun persists a new run in its started state.
func (r *JournalRepository) CreateRun(ctx context.Context, run *secondary.RunRecord) error {
	var region sql.NullString
	if run.Region != "" {
		region = sql.NullString{String: run.Region, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO runs (id, kind, region, result, titles_updated) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Kind, region, run.Result, run.TitlesUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the result and end time of a run.
func (r *JournalRepository) FinishRun(ctx context.Context, runID, result string, titlesUpdated int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE runs SET result = ?, titles_updated = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		result, titlesUpdated, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// AppendTitleEvent records a per-title outcome for a run.
func (r *JournalRepository) AppendTitleEvent(ctx context.Context, event *secondary.TitleEventRecord) error {
	var detail sql.NullString
	if event.Detail != "" {
		detail = sql.NullString{String: event.Detail, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO title_events (run_id, title_id, action, detail) VALUES (?, ?, ?, ?)",
		event.RunID, event.TitleID, event.Action, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append title event: %w", err)
	}
	return nil
}

// ListRuns retrieves runs matching the given filters, newest first.
func (r *JournalRepository) ListRuns(ctx context.Context, filters secondary.RunFilters) ([]*secondary.RunRecord, error) {
	query := "SELECT id, kind, region, result, titles_updated, started_at, finished_at FROM runs WHERE 1=1"
	args := []any{}

	if filters.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filters.Kind)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*secondary.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListTitleEvents retrieves the title events of a run in insertion order.
func (r *JournalRepository) ListTitleEvents(ctx context.Context, runID string) ([]*secondary.TitleEventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT run_id, title_id, action, detail, created_at FROM title_events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list title events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.TitleEventRecord
	for rows.Next() {
		var detail sql.NullString
		var createdAt time.Time
		record := &secondary.TitleEventRecord{}
		if err := rows.Scan(&record.RunID, &record.TitleID, &record.Action, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan title event: %w", err)
		}
		record.Detail = detail.String
		record.CreatedAt = createdAt.Format(time.RFC3339)
		events = append(events, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list title events: %w", err)
	}
	return events, nil
}

func scanRun(rows *sql.Rows) (*secondary.RunRecord, error) {
	var region sql.NullString
	var startedAt time.Time
	var finishedAt sql.NullTime
	record := &secondary.RunRecord{}
	if err := rows.Scan(&record.ID, &record.Kind, &region, &record.Result, &record.TitlesUpdated, &startedAt, &finishedAt); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	record.Region = region.String
	record.StartedAt = startedAt.Format(time.RFC3339)
	if finishedAt.Valid {
		record.FinishedAt = finishedAt.Time.Format(time.RFC3339)
	}
	return record, nil
}
