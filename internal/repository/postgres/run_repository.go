// internal/repository/postgres/run_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

const runColumns = `id, tenant, snapshot_date, quality, status, products,
	duplicates, unmatched, started_at, completed_at, error_message`

// CreateRun inserts run, assigning an ID when it has none.
func (r *runRepository) CreateRun(ctx context.Context, run *domain.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES (:id, :tenant, :snapshot_date, :quality, :status, :products,
			:duplicates, :unmatched, :started_at, :completed_at, :error_message)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return errors.Wrapf(err, "create sync run %s", run.ID)
	}
	return nil
}

func (r *runRepository) UpdateRun(ctx context.Context, run *domain.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET quality = :quality, status = :status, products = :products,
		    duplicates = :duplicates, unmatched = :unmatched,
		    completed_at = :completed_at, error_message = :error_message
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return errors.Wrapf(err, "update sync run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}
	return nil
}

// GetRun returns nil without error when the run does not exist.
func (r *runRepository) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = $1`

	var run domain.SyncRun
	err := r.db.GetContext(ctx, &run, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get sync run %s", id)
	}
	return &run, nil
}

// ListRuns returns the newest runs matching filter.
func (r *runRepository) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.SyncRun, error) {
	clause, args := buildRunFilterClause(filter, "r", 1)
	query := fmt.Sprintf(`
		SELECT %s
		FROM sync_runs r
		WHERE 1=1%s
		ORDER BY r.snapshot_date DESC, r.started_at DESC
		LIMIT %d
	`, prefixColumns(runColumns, "r."), clause, runLimit(filter.Limit))

	runs := make([]domain.SyncRun, 0)
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, errors.Wrap(err, "list sync runs")
	}
	return runs, nil
}
