package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/urfave/cli/v2"
)

func showFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "snapshot",
			Usage:    "Persisted snapshot as <tenant>/<YYYYMMDD>",
			Required: true,
			EnvVars:  []string{"RECONCILE_SNAPSHOT"},
		},
		&cli.BoolFlag{
			Name:    "warehouses",
			Usage:   "Also print the per-warehouse rows",
			EnvVars: []string{"RECONCILE_SHOW_WAREHOUSES"},
		},
	}
}

func showSnapshot(c *cli.Context) error {
	tenant, date, err := feed.ParseSnapshotDir(c.String("snapshot"))
	if err != nil {
		return err
	}

	comps, err := buildComponents(c.Context, config.Load(), true)
	if err != nil {
		return err
	}
	defer comps.Close()

	stored, err := comps.svc.Snapshot(c.Context, tenant, date)
	if err != nil {
		return err
	}
	if len(stored.Products) == 0 {
		return fmt.Errorf("no persisted reconciliation for %s/%s", tenant, date.Format(feed.SnapshotDateLayout))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "# %s/%s run=%s quality=%s products=%d\n",
		tenant, date.Format(feed.SnapshotDateLayout), stored.Products[0].RunID, stored.Products[0].Quality, len(stored.Products))
	fmt.Fprintln(w, "ARTICLE\tNM_ID\tSTOCK\tORDERS\tTURNOVER\tUNMATCHED\tFBS")
	for _, p := range stored.Products {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%d\t%t\n",
			p.SupplierArticle, p.NmID, p.TotalStock, p.TotalOrders, p.Turnover, p.UnmatchedOrders, p.HasFBS)
	}

	if c.Bool("warehouses") {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ARTICLE\tNM_ID\tWAREHOUSE\tTYPE\tSTOCK\tORDERS\tTURNOVER\tSYNTHETIC")
		for _, r := range stored.Warehouses {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\t%.2f\t%t\n",
				r.SupplierArticle, r.NmID, r.WarehouseName, r.Type, r.Stock, r.Orders, r.Turnover, r.Synthetic)
		}
	}
	return w.Flush()
}
