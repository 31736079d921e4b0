package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/urfave/cli/v2"
)

func warehousesFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "snapshot",
			Usage:    "Snapshot directory (<tenant>/<YYYYMMDD>)",
			Required: true,
			EnvVars:  []string{"RECONCILE_SNAPSHOT"},
		},
		&cli.StringFlag{
			Name:    "metric",
			Usage:   "Sort metric: stock, orders, product_count, turnover, avg_stock, avg_orders",
			Value:   string(reconcile.MetricOrders),
			EnvVars: []string{"RECONCILE_WAREHOUSE_METRIC"},
		},
		&cli.IntFlag{
			Name:    "top",
			Usage:   "Number of warehouses to print",
			Value:   10,
			EnvVars: []string{"RECONCILE_WAREHOUSE_TOP"},
		},
	}
}

func runWarehouses(c *cli.Context) error {
	metric, err := reconcile.ParseMetric(c.String("metric"))
	if err != nil {
		return err
	}

	cfg := config.Load()
	comps, err := buildComponents(c.Context, cfg, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	snap, err := feed.NewLoader(nil).Load(c.String("snapshot"))
	if err != nil {
		return err
	}
	res, err := comps.svc.Reconcile(c.Context, snap, false)
	if err != nil {
		return err
	}

	top := reconcile.TopN(comps.svc.Engine().Warehouses(res.Products), metric, c.Int("top"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "# %s/%s quality=%s products=%d\n", snap.Tenant, snap.Name(), res.Quality, len(res.Products))
	fmt.Fprintln(w, "WAREHOUSE\tTYPE\tSTOCK\tORDERS\tPRODUCTS\tTURNOVER\tCATEGORY\tSTOCK%\tORDERS%")
	for _, p := range top {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2f\t%s\t%.2f\t%.2f\n",
			p.Name, p.Type, p.Stock, p.Orders, p.ProductCount, p.Turnover, p.Category, p.StockSharePct, p.OrdersSharePct)
	}
	return w.Flush()
}
