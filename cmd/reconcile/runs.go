package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/urfave/cli/v2"
)

func runsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tenant",
			Usage:   "Filter by tenant (repeatable)",
			EnvVars: []string{"RECONCILE_TENANT"},
		},
		&cli.StringFlag{
			Name:    "status",
			Usage:   "Filter by status (processing, completed, failed)",
			EnvVars: []string{"RECONCILE_RUNS_STATUS"},
		},
		&cli.IntFlag{
			Name:    "days",
			Usage:   "Only runs for snapshots of the last N days",
			EnvVars: []string{"RECONCILE_RUNS_DAYS"},
		},
		&cli.IntFlag{
			Name:    "limit",
			Usage:   "Maximum number of runs",
			Value:   20,
			EnvVars: []string{"RECONCILE_RUNS_LIMIT"},
		},
	}
}

func listRuns(c *cli.Context) error {
	cfg := config.Load()
	comps, err := buildComponents(c.Context, cfg, true)
	if err != nil {
		return err
	}
	defer comps.Close()

	filter := domain.RunFilter{
		Tenants: c.StringSlice("tenant"),
		Status:  domain.RunStatus(c.String("status")),
		Limit:   c.Int("limit"),
	}
	if days := c.Int("days"); days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -days)
	}

	runs, err := comps.svc.ListRuns(c.Context, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTENANT\tSNAPSHOT\tSTATUS\tQUALITY\tPRODUCTS\tDUPLICATES\tUNMATCHED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Tenant, r.SnapshotDate.Format(feed.SnapshotDateLayout), r.Status, r.Quality,
			r.Products, r.Duplicates, r.Unmatched, r.ErrorMessage)
	}
	return w.Flush()
}

func migrate(c *cli.Context) error {
	comps, err := buildComponents(c.Context, config.Load(), true)
	if err != nil {
		return err
	}
	comps.Close()
	fmt.Println("schema is up to date")
	return nil
}
