package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun stores or replaces a run and its stage results in one transaction.
func (s *runStore) SaveRun(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, dataset, status, exit_code, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dataset = excluded.dataset,
			status = excluded.status,
			exit_code = excluded.exit_code,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at
	`, run.ID, run.Dataset, string(run.Status), run.ExitCode,
		run.StartedAt.UnixNano(), nullableUnix(run.EndedAt))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM stage_results WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clearing stage results: %w", err)
	}

	for i, st := range run.Stages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stage_results (run_id, position, stage, command, exit_code, status, error, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, string(st.Stage), st.Command, st.ExitCode, string(st.Status),
			nullString(st.Error), st.StartedAt.UnixNano(), nullableUnix(st.EndedAt))
		if err != nil {
			return fmt.Errorf("saving stage result %s: %w", st.Stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, dataset, status, exit_code, started_at, ended_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	stages, err := s.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	return s.list(ctx, `
		SELECT id, dataset, status, exit_code, started_at, ended_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
}

// ListRunsForDataset returns the most recent runs of one dataset, newest first.
func (s *runStore) ListRunsForDataset(ctx context.Context, dataset string, limit int) ([]domain.Run, error) {
	return s.list(ctx, `
		SELECT id, dataset, status, exit_code, started_at, ended_at
		FROM runs
		WHERE dataset = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, dataset, limit)
}

func (s *runStore) list(ctx context.Context, query string, args ...any) ([]domain.Run, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var runs []domain.Run //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		stages, err := s.stages(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

func (s *runStore) stages(ctx context.Context, runID string) ([]domain.StageResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT stage, command, exit_code, status, error, started_at, ended_at
		FROM stage_results
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying stage results: %w", err)
	}
	defer rows.Close()

	var results []domain.StageResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			st        domain.StageResult
			stage     string
			status    string
			errMsg    sql.NullString
			startedAt int64
			endedAt   sql.NullInt64
		)
		if err := rows.Scan(&stage, &st.Command, &st.ExitCode, &status, &errMsg, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning stage result: %w", err)
		}
		st.Stage = domain.StageName(stage)
		st.Status = domain.StageStatus(status)
		st.Error = errMsg.String
		st.StartedAt = time.Unix(0, startedAt)
		st.EndedAt = parseNullableUnix(endedAt)
		results = append(results, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage results: %w", err)
	}
	return results, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var (
		run       domain.Run
		status    string
		startedAt int64
		endedAt   sql.NullInt64
	)
	err := row.Scan(&run.ID, &run.Dataset, &status, &run.ExitCode, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = time.Unix(0, startedAt)
	run.EndedAt = parseNullableUnix(endedAt)
	return &run, nil
}

// nullableUnix returns Unix nanoseconds, or nil for the zero time.
func nullableUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

func parseNullableUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
