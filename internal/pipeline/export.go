package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/reconcile"
)

const (
	LevelProduct   = "product"
	LevelWarehouse = "warehouse"
)

var productHeader = []string{
	"level", "supplier_article", "nm_id", "warehouse", "fulfillment_type", "is_fbs",
	"stock", "orders", "turnover", "turnover_category", "synthetic",
	"distributed", "unmatched_orders", "quality",
}

var warehouseHeader = []string{
	"warehouse", "fulfillment_type", "is_fbs", "stock", "orders", "product_count",
	"turnover", "turnover_category", "avg_stock_per_product", "avg_orders_per_product",
	"stock_share_pct", "orders_share_pct",
}

// Exporter writes reconciliation results as CSV under a root directory.
type Exporter struct {
	root string
}

func NewExporter(root string) *Exporter {
	return &Exporter{root: root}
}

// Paths returns the product and warehouse file paths of a snapshot.
func (e *Exporter) Paths(tenant, snapshot string) (string, string) {
	dir := filepath.Join(e.root, tenant)
	return filepath.Join(dir, snapshot+".csv"), filepath.Join(dir, snapshot+"_warehouses.csv")
}

// Export writes <root>/<tenant>/<snapshot>.csv with one product row followed
// by its warehouse rows, and <snapshot>_warehouses.csv with the warehouse
// rollup sorted by orders.
func (e *Exporter) Export(tenant, snapshot string, res *reconcile.Result, perf []domain.WarehousePerformance) ([]string, error) {
	productsPath, warehousesPath := e.Paths(tenant, snapshot)
	if err := os.MkdirAll(filepath.Dir(productsPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeCSV(productsPath, productHeader, productRecords(res)); err != nil {
		return nil, err
	}

	sorted := reconcile.TopN(perf, reconcile.MetricOrders, len(perf))
	if err := writeCSV(warehousesPath, warehouseHeader, warehouseRecords(sorted)); err != nil {
		return nil, err
	}

	return []string{productsPath, warehousesPath}, nil
}

func productRecords(res *reconcile.Result) [][]string {
	quality := string(res.Quality)
	records := make([][]string, 0, len(res.Products)*3)
	for _, p := range res.Products {
		productType := ""
		if p.HasFBS() {
			productType = string(domain.FulfillmentFBS)
		}
		records = append(records, []string{
			LevelProduct,
			p.SupplierArticle,
			strconv.FormatInt(p.NmID, 10),
			"",
			productType,
			strconv.FormatBool(p.HasFBS()),
			strconv.Itoa(p.TotalStock),
			strconv.Itoa(p.TotalOrders),
			formatFloat(p.Turnover),
			string(reconcile.Categorize(p.Turnover)),
			"false",
			strconv.FormatBool(p.Distributed),
			strconv.Itoa(p.UnmatchedOrders),
			quality,
		})
		for _, b := range p.Buckets {
			records = append(records, []string{
				LevelWarehouse,
				p.SupplierArticle,
				strconv.FormatInt(p.NmID, 10),
				b.Name,
				string(b.Type),
				strconv.FormatBool(b.IsFBS),
				strconv.Itoa(b.Stock),
				strconv.Itoa(b.Orders),
				formatFloat(b.Turnover),
				string(reconcile.Categorize(b.Turnover)),
				strconv.FormatBool(b.Synthetic),
				"",
				"",
				quality,
			})
		}
	}
	return records
}

func warehouseRecords(perf []domain.WarehousePerformance) [][]string {
	records := make([][]string, 0, len(perf))
	for _, w := range perf {
		records = append(records, []string{
			w.Name,
			string(w.Type),
			strconv.FormatBool(w.IsFBS),
			strconv.Itoa(w.Stock),
			strconv.Itoa(w.Orders),
			strconv.Itoa(w.ProductCount),
			formatFloat(w.Turnover),
			string(w.Category),
			formatFloat(w.AvgStock),
			formatFloat(w.AvgOrders),
			formatFloat(w.StockSharePct),
			formatFloat(w.OrdersSharePct),
		})
	}
	return records
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
