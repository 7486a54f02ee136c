package storage

import (
	"context"
	"fmt"

	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
)

// ImportRunRepository logs ingestion attempts.
type ImportRunRepository struct {
	BaseRepository
}

// NewImportRunRepository creates a new import run repository.
func NewImportRunRepository(db *DB) *ImportRunRepository {
	return &ImportRunRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Start records a new running import and returns it.
func (r *ImportRunRepository) Start(ctx context.Context, kind models.ImportKind, source string) (*models.ImportRun, error) {
	run := &models.ImportRun{
		ID:        GenerateID(),
		Kind:      kind,
		Source:    source,
		Status:    models.ImportStatusRunning,
		StartedAt: r.Now(),
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO import_runs (id, kind, source, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Source, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting import run: %w", err)
	}

	return run, nil
}

// Finish stores the outcome of a run. A nil runErr marks it successful.
func (r *ImportRunRepository) Finish(ctx context.Context, run *models.ImportRun, runErr error) error {
	now := r.Now()
	run.FinishedAt = &now
	run.Status = models.ImportStatusSuccess
	run.Error = nil
	if runErr != nil {
		msg := runErr.Error()
		run.Status = models.ImportStatusError
		run.Error = &msg
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE import_runs SET
			status = ?, error = ?, events_parsed = ?, events_written = ?,
			events_deleted = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.Error, run.EventsParsed, run.EventsWritten, run.EventsDeleted, now, run.ID)
	if err != nil {
		return fmt.Errorf("updating import run: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("import run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// List returns the most recent runs first. A limit <= 0 returns all runs.
func (r *ImportRunRepository) List(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, kind, source, status, error, events_parsed, events_written,
		       events_deleted, started_at, finished_at
		FROM import_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ImportRun
	for rows.Next() {
		var run models.ImportRun
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.Source, &run.Status, &run.Error,
			&run.EventsParsed, &run.EventsWritten, &run.EventsDeleted,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning import run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
