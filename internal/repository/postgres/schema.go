package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id            UUID PRIMARY KEY,
		tenant        TEXT NOT NULL,
		snapshot_date DATE NOT NULL,
		quality       TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		products      INTEGER NOT NULL DEFAULT 0,
		duplicates    INTEGER NOT NULL DEFAULT 0,
		unmatched     INTEGER NOT NULL DEFAULT 0,
		started_at    TIMESTAMPTZ NOT NULL,
		completed_at  TIMESTAMPTZ,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS sync_runs_tenant_date_idx ON sync_runs (tenant, snapshot_date DESC)`,
	`CREATE TABLE IF NOT EXISTS product_stock (
		tenant           TEXT NOT NULL,
		snapshot_date    DATE NOT NULL,
		supplier_article TEXT NOT NULL,
		nm_id            BIGINT NOT NULL,
		run_id           UUID NOT NULL REFERENCES sync_runs (id),
		total_stock      INTEGER NOT NULL,
		total_orders     INTEGER NOT NULL,
		turnover         DOUBLE PRECISION NOT NULL,
		unmatched_orders INTEGER NOT NULL DEFAULT 0,
		distributed      BOOLEAN NOT NULL DEFAULT FALSE,
		has_fbs          BOOLEAN NOT NULL DEFAULT FALSE,
		quality          TEXT NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (tenant, snapshot_date, supplier_article, nm_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_warehouse_stock (
		tenant           TEXT NOT NULL,
		snapshot_date    DATE NOT NULL,
		supplier_article TEXT NOT NULL,
		nm_id            BIGINT NOT NULL,
		warehouse_name   TEXT NOT NULL,
		stock            INTEGER NOT NULL,
		orders           INTEGER NOT NULL,
		turnover         DOUBLE PRECISION NOT NULL,
		fulfillment_type TEXT NOT NULL,
		is_fbs           BOOLEAN NOT NULL DEFAULT FALSE,
		synthetic        BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (tenant, snapshot_date, supplier_article, nm_id, warehouse_name)
	)`,
}

// Migrate creates the reconciliation tables when they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "apply schema")
			}
		}
		return nil
	})
}
