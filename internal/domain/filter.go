package domain

import "time"

// RunFilter narrows sync run listings. Zero values are ignored.
type RunFilter struct {
	Tenants []string
	Status  RunStatus
	Quality DataQuality
	Since   time.Time
	Limit   int
}

// ProductStockRow is the persisted form of a ProductAggregate.
type ProductStockRow struct {
	RunID           string      `db:"run_id"`
	Tenant          string      `db:"tenant"`
	SnapshotDate    time.Time   `db:"snapshot_date"`
	SupplierArticle string      `db:"supplier_article"`
	NmID            int64       `db:"nm_id"`
	TotalStock      int         `db:"total_stock"`
	TotalOrders     int         `db:"total_orders"`
	Turnover        float64     `db:"turnover"`
	UnmatchedOrders int         `db:"unmatched_orders"`
	Distributed     bool        `db:"distributed"`
	HasFBS          bool        `db:"has_fbs"`
	Quality         DataQuality `db:"quality"`
}

// WarehouseStockRow is the persisted form of a WarehouseBucket.
type WarehouseStockRow struct {
	Tenant          string          `db:"tenant"`
	SnapshotDate    time.Time       `db:"snapshot_date"`
	SupplierArticle string          `db:"supplier_article"`
	NmID            int64           `db:"nm_id"`
	WarehouseName   string          `db:"warehouse_name"`
	Stock           int             `db:"stock"`
	Orders          int             `db:"orders"`
	Turnover        float64         `db:"turnover"`
	Type            FulfillmentType `db:"fulfillment_type"`
	IsFBS           bool            `db:"is_fbs"`
	Synthetic       bool            `db:"synthetic"`
}

// PersistedSnapshot is what a saved reconciliation of one tenant snapshot
// reads back as.
type PersistedSnapshot struct {
	Tenant       string
	SnapshotDate time.Time
	Products     []ProductStockRow
	Warehouses   []WarehouseStockRow
}
