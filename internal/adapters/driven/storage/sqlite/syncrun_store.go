package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

const syncRunColumns = `id, connector_id, state, started_at, ended_at, polls, rows_synced, error`

// Record persists a terminal run. Recording the same run ID twice replaces it.
func (s *syncRunStore) Record(ctx context.Context, run domain.SyncRun) error {
	if run.ID == "" || run.ConnectorID == "" {
		return domain.ErrInvalidInput
	}
	if !run.State.IsTerminal() {
		return fmt.Errorf("%w: run %s is %s", domain.ErrInvalidInput, run.ID, run.State)
	}

	var rows any
	if run.RowsSynced != nil {
		rows = *run.RowsSynced
	}
	errMsg := run.Error
	if errMsg == "" && run.Err != nil {
		errMsg = run.Err.Error()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (`+syncRunColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			polls = excluded.polls,
			rows_synced = excluded.rows_synced,
			error = excluded.error
	`, run.ID, run.ConnectorID, string(run.State),
		formatStoredTime(run.StartedAt), formatStoredTime(run.EndedAt),
		run.Polls, rows, nullString(errMsg))
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// List returns recent runs, most recent first. An empty connectorID lists
// every connector; a non-positive limit returns all runs.
func (s *syncRunStore) List(ctx context.Context, connectorID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT ` + syncRunColumns + ` FROM sync_runs`
	args := []any{}
	if connectorID != "" {
		query += ` WHERE connector_id = ?`
		args = append(args, connectorID)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run for a connector.
func (s *syncRunStore) Latest(ctx context.Context, connectorID string) (*domain.SyncRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+syncRunColumns+` FROM sync_runs
		WHERE connector_id = ?
		ORDER BY started_at DESC, id
		LIMIT 1
	`, connectorID)

	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// Prune deletes runs that ended before the cutoff.
func (s *syncRunStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_runs WHERE ended_at IS NOT NULL AND ended_at < ?", formatStoredTime(before))
	if err != nil {
		return 0, fmt.Errorf("pruning sync runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning sync runs: %w", err)
	}
	return int(n), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var state string
	var startedAt, endedAt, errMsg sql.NullString
	var rowsSynced sql.NullInt64

	if err := row.Scan(&run.ID, &run.ConnectorID, &state, &startedAt, &endedAt,
		&run.Polls, &rowsSynced, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	run.State = domain.SyncRunState(state)
	run.StartedAt = parseStoredTime(startedAt)
	run.EndedAt = parseStoredTime(endedAt)
	if rowsSynced.Valid {
		n := rowsSynced.Int64
		run.RowsSynced = &n
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}

func formatStoredTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseStoredTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
