// internal/repository/reconciliation_repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

// ReconciliationRepository persists reconciled products per tenant snapshot.
type ReconciliationRepository interface {
	SaveResult(ctx context.Context, run *domain.SyncRun, products []*domain.ProductAggregate) error
	GetProducts(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.ProductStockRow, error)
	GetWarehouseRows(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.WarehouseStockRow, error)
}

// RunRepository tracks sync runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.SyncRun) error
	UpdateRun(ctx context.Context, run *domain.SyncRun) error
	GetRun(ctx context.Context, id string) (*domain.SyncRun, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.SyncRun, error)
}

// BuildRows flattens products into their persisted rows. Products are
// emitted in input order, warehouses in bucket order.
func BuildRows(run *domain.SyncRun, products []*domain.ProductAggregate) ([]domain.ProductStockRow, []domain.WarehouseStockRow) {
	productRows := make([]domain.ProductStockRow, 0, len(products))
	var warehouseRows []domain.WarehouseStockRow

	for _, p := range products {
		if p == nil {
			continue
		}
		productRows = append(productRows, domain.ProductStockRow{
			RunID:           run.ID,
			Tenant:          run.Tenant,
			SnapshotDate:    run.SnapshotDate,
			SupplierArticle: p.SupplierArticle,
			NmID:            p.NmID,
			TotalStock:      p.TotalStock,
			TotalOrders:     p.TotalOrders,
			Turnover:        p.Turnover,
			UnmatchedOrders: p.UnmatchedOrders,
			Distributed:     p.Distributed,
			HasFBS:          p.HasFBS(),
			Quality:         run.Quality,
		})
		for _, b := range p.Buckets {
			warehouseRows = append(warehouseRows, domain.WarehouseStockRow{
				Tenant:          run.Tenant,
				SnapshotDate:    run.SnapshotDate,
				SupplierArticle: p.SupplierArticle,
				NmID:            p.NmID,
				WarehouseName:   b.Name,
				Stock:           b.Stock,
				Orders:          b.Orders,
				Turnover:        b.Turnover,
				Type:            b.Type,
				IsFBS:           b.IsFBS,
				Synthetic:       b.Synthetic,
			})
		}
	}
	return productRows, warehouseRows
}
