package pipeline

import (
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

// JobConfig holds configuration for a sync job
type JobConfig struct {
	Workers             int    // Number of snapshots reconciled concurrently
	OutputDir           string // Root directory for CSV exports
	Persist             bool   // Save results to the database
	Archive             bool   // Upload exports to object storage
	ArchivePrefix       string // Object key prefix for uploads
	ForceClassification bool   // Rebuild warehouse classification on every pass
	MetricsTextfile     string // Prometheus textfile written after the job
}

// DefaultJobConfig returns sensible defaults
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Workers:       4,
		OutputDir:     "data/output",
		ArchivePrefix: "reconciliation",
	}
}

// SnapshotOutcome reports what happened to one snapshot directory
type SnapshotOutcome struct {
	Dir       string
	Tenant    string
	Date      time.Time
	RunID     string
	Status    domain.RunStatus
	Quality   domain.DataQuality
	Products  int
	Files     []string
	Archived  []string
	Persisted bool
	Duration  time.Duration
	Err       error
}
