package domain

import "fmt"

// WarehouseBucket holds one warehouse's stock and orders for a single product
type WarehouseBucket struct {
	Name      string          `json:"name" db:"warehouse_name"`
	Stock     int             `json:"stock" db:"stock"`
	Orders    int             `json:"orders" db:"orders"`
	Type      FulfillmentType `json:"type" db:"fulfillment_type"`
	IsFBS     bool            `json:"is_fbs" db:"is_fbs"`
	Synthetic bool            `json:"synthetic" db:"synthetic"`
	Turnover  float64         `json:"turnover" db:"turnover"`
}

// ProductAggregate is the reconciled per-product unit of output.
//
// Stock and orders only change through the aggregate's methods so that
// TotalStock and TotalOrders always equal the bucket sums.
type ProductAggregate struct {
	SupplierArticle string             `json:"supplier_article" db:"supplier_article"`
	NmID            int64              `json:"nm_id" db:"nm_id"`
	Buckets         []*WarehouseBucket `json:"warehouses"`
	TotalStock      int                `json:"total_stock" db:"total_stock"`
	TotalOrders     int                `json:"total_orders" db:"total_orders"`
	Turnover        float64            `json:"turnover" db:"turnover"`

	// UnmatchedOrders counts orders placed by proportional distribution.
	UnmatchedOrders int  `json:"unmatched_orders" db:"unmatched_orders"`
	Distributed     bool `json:"distributed" db:"distributed"`

	index map[string]int
}

// NewProductAggregate creates an empty aggregate for key
func NewProductAggregate(key ProductKey) *ProductAggregate {
	return &ProductAggregate{
		SupplierArticle: key.SupplierArticle,
		NmID:            key.NmID,
		Buckets:         make([]*WarehouseBucket, 0, 4),
		index:           make(map[string]int),
	}
}

func (p *ProductAggregate) Key() ProductKey {
	return ProductKey{SupplierArticle: p.SupplierArticle, NmID: p.NmID}
}

// Bucket looks up a bucket by canonical warehouse name.
func (p *ProductAggregate) Bucket(name string) (*WarehouseBucket, bool) {
	if p.index == nil {
		p.reindex()
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.Buckets[i], true
}

// EnsureBucket returns the bucket for name, appending an empty one with type t
// when it does not exist yet.
func (p *ProductAggregate) EnsureBucket(name string, t FulfillmentType) (*WarehouseBucket, bool) {
	if b, ok := p.Bucket(name); ok {
		return b, false
	}
	if t == "" {
		t = FulfillmentUnknown
	}
	b := &WarehouseBucket{Name: name, Type: t, IsFBS: t == FulfillmentFBS}
	p.index[name] = len(p.Buckets)
	p.Buckets = append(p.Buckets, b)
	return b, true
}

// AddStock adds qty (clamped at zero) to b and to the product total.
func (p *ProductAggregate) AddStock(b *WarehouseBucket, qty int) {
	if qty <= 0 {
		return
	}
	b.Stock += qty
	p.TotalStock += qty
}

// AddOrders adds qty (clamped at zero) to b and to the product total.
func (p *ProductAggregate) AddOrders(b *WarehouseBucket, qty int) {
	if qty <= 0 {
		return
	}
	b.Orders += qty
	p.TotalOrders += qty
}

// MarkFBS flags b as a seller warehouse. The flag is never cleared.
func (b *WarehouseBucket) MarkFBS() {
	b.IsFBS = true
	b.Type = FulfillmentFBS
}

// Inherit adopts an order's explicit type when the bucket is still unclassified.
func (b *WarehouseBucket) Inherit(t FulfillmentType) {
	if t == FulfillmentFBS {
		b.MarkFBS()
		return
	}
	if b.Type == FulfillmentUnknown && t != "" {
		b.Type = t
	}
}

// Recalculate rebuilds the totals from the buckets.
func (p *ProductAggregate) Recalculate() {
	stock, orders := 0, 0
	for _, b := range p.Buckets {
		stock += b.Stock
		orders += b.Orders
	}
	p.TotalStock = stock
	p.TotalOrders = orders
}

// ApplyTurnover derives product and bucket turnover with fn.
func (p *ProductAggregate) ApplyTurnover(fn func(orders, stock int) float64) {
	for _, b := range p.Buckets {
		b.Turnover = fn(b.Orders, b.Stock)
	}
	p.Turnover = fn(p.TotalOrders, p.TotalStock)
}

// HasFBS reports whether any bucket is a seller warehouse.
func (p *ProductAggregate) HasFBS() bool {
	for _, b := range p.Buckets {
		if b.IsFBS {
			return true
		}
	}
	return false
}

// Validate checks the conservation invariants.
func (p *ProductAggregate) Validate() error {
	stock, orders := 0, 0
	for _, b := range p.Buckets {
		if b.Stock < 0 || b.Orders < 0 {
			return fmt.Errorf("product %s: negative values in warehouse %q", p.Key(), b.Name)
		}
		stock += b.Stock
		orders += b.Orders
	}
	if stock != p.TotalStock {
		return fmt.Errorf("product %s: total stock %d != bucket sum %d", p.Key(), p.TotalStock, stock)
	}
	if orders != p.TotalOrders {
		return fmt.Errorf("product %s: total orders %d != bucket sum %d", p.Key(), p.TotalOrders, orders)
	}
	return nil
}

func (p *ProductAggregate) reindex() {
	p.index = make(map[string]int, len(p.Buckets))
	for i, b := range p.Buckets {
		p.index[b.Name] = i
	}
}
