package domain

// TurnoverCategory buckets a turnover ratio for display
type TurnoverCategory string

const (
	TurnoverNoMovement TurnoverCategory = "no_movement"
	TurnoverLow        TurnoverCategory = "low"
	TurnoverMedium     TurnoverCategory = "medium"
	TurnoverHigh       TurnoverCategory = "high"
	TurnoverExcellent  TurnoverCategory = "excellent"
)

// WarehouseTotals is a cross-product rollup for one warehouse
type WarehouseTotals struct {
	Name         string          `json:"name" db:"warehouse_name"`
	Stock        int             `json:"stock" db:"stock"`
	Orders       int             `json:"orders" db:"orders"`
	ProductCount int             `json:"product_count" db:"product_count"`
	Type         FulfillmentType `json:"type" db:"fulfillment_type"`
	IsFBS        bool            `json:"is_fbs" db:"is_fbs"`
}

// WarehousePerformance extends the rollup with derived ratios
type WarehousePerformance struct {
	WarehouseTotals
	Turnover       float64          `json:"turnover"`
	Category       TurnoverCategory `json:"turnover_category"`
	AvgStock       float64          `json:"avg_stock_per_product"`
	AvgOrders      float64          `json:"avg_orders_per_product"`
	StockSharePct  float64          `json:"stock_share_pct"`
	OrdersSharePct float64          `json:"orders_share_pct"`
}

// ReconciliationStats counts what happened to the input rows of a pass
type ReconciliationStats struct {
	RemainsRows         int `json:"remains_rows"`
	OrderRows           int `json:"order_rows"`
	SkippedRows         int `json:"skipped_rows"`
	PseudoRows          int `json:"pseudo_rows"`
	CancelledOrders     int `json:"cancelled_orders"`
	DuplicateOrders     int `json:"duplicate_orders"`
	UnmatchedOrders     int `json:"unmatched_orders"`
	DistributedProducts int `json:"distributed_products"`
	ExcludedProducts    int `json:"excluded_products"`
}
