// internal/domain/models.go
package domain

import (
	"fmt"
	"time"
)

// ProductKey identifies a product by seller article and marketplace article.
type ProductKey struct {
	SupplierArticle string `json:"supplier_article" db:"supplier_article"`
	NmID            int64  `json:"nm_id" db:"nm_id"`
}

func (k ProductKey) String() string {
	return fmt.Sprintf("%s/%d", k.SupplierArticle, k.NmID)
}

// RemainsRecord is one (product, warehouse) row of the detailed remains feed
type RemainsRecord struct {
	Key       ProductKey `json:"key"`
	Warehouse string     `json:"warehouse"`
	Quantity  int        `json:"quantity"`
}

// OrderRecord is one order line item from the orders feed
type OrderRecord struct {
	Key       ProductKey      `json:"key"`
	Warehouse string          `json:"warehouse"`
	Type      FulfillmentType `json:"type"`
	Cancelled bool            `json:"cancelled"`
	OrderID   string          `json:"order_id"`
	Quantity  int             `json:"quantity"`
	Date      time.Time       `json:"date"`
}

// Qty returns the ordered quantity, defaulting to 1 when the feed omitted it
func (o OrderRecord) Qty() int {
	if o.Quantity <= 0 {
		return 1
	}
	return o.Quantity
}

// TotalsRecord is a per-product row of the aggregate-only feed.
// Orders is nil when the feed did not report orders for the product.
type TotalsRecord struct {
	Key    ProductKey `json:"key"`
	Stock  int        `json:"stock"`
	Orders *int       `json:"orders,omitempty"`
}

// RemainsSnapshot is a previously fetched detailed remains result kept for
// the cached-detailed fallback.
type RemainsSnapshot struct {
	Records   []RemainsRecord `json:"records"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Discrepancy reports a product whose bucket sums disagree with an
// independently reported total.
type Discrepancy struct {
	Key      ProductKey `json:"key"`
	Field    string     `json:"field"`
	Computed int        `json:"computed"`
	Reported int        `json:"reported"`
}

// SyncRun tracks a single reconciliation pass for a tenant snapshot
type SyncRun struct {
	ID           string      `json:"id" db:"id"`
	Tenant       string      `json:"tenant" db:"tenant"`
	SnapshotDate time.Time   `json:"snapshot_date" db:"snapshot_date"`
	Quality      DataQuality `json:"quality" db:"quality"`
	Status       RunStatus   `json:"status" db:"status"`
	Products     int         `json:"products" db:"products"`
	Duplicates   int         `json:"duplicates" db:"duplicates"`
	Unmatched    int         `json:"unmatched" db:"unmatched"`
	StartedAt    time.Time   `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at" db:"completed_at"`
	ErrorMessage string      `json:"error_message" db:"error_message"`
}
