package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/andresuchdata/stockrecon/pkg/logger"
	"github.com/rs/zerolog"
)

const (
	RemainsFeed = "remains"
	OrdersFeed  = "orders"
	TotalsFeed  = "totals"

	// remainsErrorMarker holds the error of a failed live remains fetch.
	remainsErrorMarker = "remains.error"

	SnapshotDateLayout = "20060102"
)

var supportedExtensions = []string{".json", ".csv", ".xlsx"}

// Snapshot is one point-in-time set of raw feeds for a tenant, as laid out
// on disk under <tenant>/<YYYYMMDD>.
type Snapshot struct {
	Tenant string
	Date   time.Time
	Dir    string

	Remains        interface{}
	RemainsErr     error
	RemainsSkipped bool
	Orders         interface{}
	Totals         interface{}
}

// Name is the snapshot's date in directory form.
func (s *Snapshot) Name() string {
	return s.Date.Format(SnapshotDateLayout)
}

// RawInput converts the snapshot into engine input.
func (s *Snapshot) RawInput(forceClassification bool) reconcile.RawInput {
	return reconcile.RawInput{
		Tenant:              s.Tenant,
		Remains:             s.Remains,
		RemainsErr:          s.RemainsErr,
		RemainsSkipped:      s.RemainsSkipped,
		Orders:              s.Orders,
		Totals:              s.Totals,
		ForceClassification: forceClassification,
	}
}

// Loader reads snapshot directories.
type Loader struct {
	log zerolog.Logger
}

func NewLoader(log *zerolog.Logger) *Loader {
	l := logger.Log
	if log != nil {
		l = *log
	}
	return &Loader{log: l.With().Str("component", "feed_loader").Logger()}
}

// Discover lists snapshot directories under root, oldest first. An empty
// tenant scans every tenant directory.
func (l *Loader) Discover(root, tenant string) ([]string, error) {
	tenants := []string{tenant}
	if tenant == "" {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("failed to read data dir %s: %w", root, err)
		}
		tenants = tenants[:0]
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				tenants = append(tenants, e.Name())
			}
		}
	}

	var dirs []string
	for _, t := range tenants {
		entries, err := os.ReadDir(filepath.Join(root, t))
		if err != nil {
			return nil, fmt.Errorf("failed to read tenant dir %s: %w", t, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if _, err := time.Parse(SnapshotDateLayout, e.Name()); err != nil {
				l.log.Debug().Str("tenant", t).Str("dir", e.Name()).Msg("skipping non-snapshot directory")
				continue
			}
			dirs = append(dirs, filepath.Join(root, t, e.Name()))
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		return filepath.Base(dirs[i]) < filepath.Base(dirs[j]) ||
			(filepath.Base(dirs[i]) == filepath.Base(dirs[j]) && dirs[i] < dirs[j])
	})
	return dirs, nil
}

// Load reads every feed of a snapshot directory. A missing remains file
// means the live fetch was skipped; a remains.error marker means it failed.
// Orders and totals are optional.
func (l *Loader) Load(dir string) (*Snapshot, error) {
	tenant, date, err := ParseSnapshotDir(dir)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Tenant: tenant, Date: date, Dir: dir}

	if msg, err := os.ReadFile(filepath.Join(dir, remainsErrorMarker)); err == nil {
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = "remains fetch failed"
		}
		snap.RemainsErr = errors.New(text)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", remainsErrorMarker, err)
	}

	if snap.RemainsErr == nil {
		rows, found, err := l.readFeed(dir, RemainsFeed)
		if err != nil {
			return nil, err
		}
		snap.Remains = rows
		snap.RemainsSkipped = !found
	}

	if snap.Orders, _, err = l.readFeed(dir, OrdersFeed); err != nil {
		return nil, err
	}
	if snap.Totals, _, err = l.readFeed(dir, TotalsFeed); err != nil {
		return nil, err
	}

	l.log.Debug().
		Str("tenant", tenant).
		Str("snapshot", snap.Name()).
		Bool("remains_skipped", snap.RemainsSkipped).
		Bool("remains_failed", snap.RemainsErr != nil).
		Msg("snapshot loaded")
	return snap, nil
}

// ParseSnapshotDir extracts tenant and date from <...>/<tenant>/<YYYYMMDD>.
func ParseSnapshotDir(dir string) (string, time.Time, error) {
	clean := filepath.Clean(dir)
	date, err := time.Parse(SnapshotDateLayout, filepath.Base(clean))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("snapshot dir %s: expected <tenant>/%s layout", dir, SnapshotDateLayout)
	}
	tenant := filepath.Base(filepath.Dir(clean))
	if tenant == "." || tenant == string(filepath.Separator) || tenant == "" {
		return "", time.Time{}, fmt.Errorf("snapshot dir %s: missing tenant directory", dir)
	}
	return tenant, date, nil
}

func (l *Loader) readFeed(dir, feed string) (interface{}, bool, error) {
	for _, ext := range supportedExtensions {
		path := filepath.Join(dir, feed+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		var (
			rows interface{}
			err  error
		)
		switch ext {
		case ".json":
			rows, err = readJSON(path)
		case ".csv":
			rows, err = readCSV(path)
		case ".xlsx":
			rows, err = readXLSX(path)
		}
		if err != nil {
			return nil, true, fmt.Errorf("failed to read %s feed: %w", feed, err)
		}
		return rows, true, nil
	}
	return nil, false, nil
}

// readJSON accepts a top-level array, or an object wrapping it under "data".
func readJSON(path string) (interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if obj, ok := doc.(map[string]interface{}); ok {
		if data, ok := obj["data"]; ok {
			return data, nil
		}
	}
	return doc, nil
}
