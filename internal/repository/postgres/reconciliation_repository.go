// internal/repository/postgres/reconciliation_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/repository"
	"github.com/pkg/errors"
)

type reconciliationRepository struct {
	db *DB
}

func NewReconciliationRepository(db *DB) *reconciliationRepository {
	return &reconciliationRepository{db: db}
}

// SaveResult replaces the snapshot's product and warehouse rows in one transaction.
func (r *reconciliationRepository) SaveResult(ctx context.Context, run *domain.SyncRun, products []*domain.ProductAggregate) error {
	productRows, warehouseRows := repository.BuildRows(run, products)

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Products and warehouses that disappeared since the last save must not linger.
		for _, table := range []string{"product_warehouse_stock", "product_stock"} {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE tenant = $1 AND snapshot_date = $2`,
				run.Tenant, run.SnapshotDate,
			); err != nil {
				return errors.Wrapf(err, "clear %s", table)
			}
		}

		productStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO product_stock (
				tenant, snapshot_date, supplier_article, nm_id, run_id,
				total_stock, total_orders, turnover, unmatched_orders,
				distributed, has_fbs, quality, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			ON CONFLICT (tenant, snapshot_date, supplier_article, nm_id)
			DO UPDATE SET
				run_id = EXCLUDED.run_id,
				total_stock = EXCLUDED.total_stock,
				total_orders = EXCLUDED.total_orders,
				turnover = EXCLUDED.turnover,
				unmatched_orders = EXCLUDED.unmatched_orders,
				distributed = EXCLUDED.distributed,
				has_fbs = EXCLUDED.has_fbs,
				quality = EXCLUDED.quality,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare product statement: %w", err)
		}
		defer productStmt.Close()

		for _, row := range productRows {
			if _, err := productStmt.ExecContext(ctx,
				row.Tenant, row.SnapshotDate, row.SupplierArticle, row.NmID, row.RunID,
				row.TotalStock, row.TotalOrders, row.Turnover, row.UnmatchedOrders,
				row.Distributed, row.HasFBS, row.Quality,
			); err != nil {
				return errors.Wrapf(err, "upsert product %s/%d", row.SupplierArticle, row.NmID)
			}
		}

		warehouseStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO product_warehouse_stock (
				tenant, snapshot_date, supplier_article, nm_id, warehouse_name,
				stock, orders, turnover, fulfillment_type, is_fbs, synthetic
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tenant, snapshot_date, supplier_article, nm_id, warehouse_name)
			DO UPDATE SET
				stock = EXCLUDED.stock,
				orders = EXCLUDED.orders,
				turnover = EXCLUDED.turnover,
				fulfillment_type = EXCLUDED.fulfillment_type,
				is_fbs = EXCLUDED.is_fbs,
				synthetic = EXCLUDED.synthetic
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare warehouse statement: %w", err)
		}
		defer warehouseStmt.Close()

		for _, row := range warehouseRows {
			if _, err := warehouseStmt.ExecContext(ctx,
				row.Tenant, row.SnapshotDate, row.SupplierArticle, row.NmID, row.WarehouseName,
				row.Stock, row.Orders, row.Turnover, row.Type, row.IsFBS, row.Synthetic,
			); err != nil {
				return errors.Wrapf(err, "upsert warehouse %q of %s/%d", row.WarehouseName, row.SupplierArticle, row.NmID)
			}
		}

		return nil
	})
}

func (r *reconciliationRepository) GetProducts(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.ProductStockRow, error) {
	query := `
		SELECT run_id, tenant, snapshot_date, supplier_article, nm_id,
		       total_stock, total_orders, turnover, unmatched_orders,
		       distributed, has_fbs, quality
		FROM product_stock
		WHERE tenant = $1 AND snapshot_date = $2
		ORDER BY supplier_article, nm_id
	`
	rows := make([]domain.ProductStockRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, tenant, snapshotDate); err != nil {
		return nil, errors.Wrapf(err, "get products for %s", tenant)
	}
	return rows, nil
}

func (r *reconciliationRepository) GetWarehouseRows(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.WarehouseStockRow, error) {
	query := `
		SELECT tenant, snapshot_date, supplier_article, nm_id, warehouse_name,
		       stock, orders, turnover, fulfillment_type, is_fbs, synthetic
		FROM product_warehouse_stock
		WHERE tenant = $1 AND snapshot_date = $2
		ORDER BY supplier_article, nm_id, warehouse_name
	`
	rows := make([]domain.WarehouseStockRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, tenant, snapshotDate); err != nil {
		return nil, errors.Wrapf(err, "get warehouse rows for %s", tenant)
	}
	return rows, nil
}

func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

var (
	_ repository.ReconciliationRepository = (*reconciliationRepository)(nil)
	_ repository.RunRepository            = (*runRepository)(nil)
)
