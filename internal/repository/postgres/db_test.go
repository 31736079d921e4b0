package postgres

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDriverName(t *testing.T) {
	assert.Equal(t, "pgx", DriverName("pgx"))
	assert.Equal(t, "pgx", DriverName(" PGX/v5 "))
	assert.Equal(t, "postgres", DriverName("postgres"))
	assert.Equal(t, "postgres", DriverName(""))
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "recon"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=recon sslmode=disable", DSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestBuildRunFilterClause(t *testing.T) {
	clause, args := buildRunFilterClause(domain.RunFilter{}, "r", 1)
	assert.Empty(t, clause)
	assert.Nil(t, args)

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clause, args = buildRunFilterClause(domain.RunFilter{
		Tenants: []string{"a", " ", "b"},
		Status:  domain.RunStatusFailed,
		Quality: domain.QualityTotalsOnly,
		Since:   since,
	}, "r", 1)

	assert.Equal(t, " AND r.tenant IN ($1,$2) AND r.status = $3 AND r.quality = $4 AND r.snapshot_date >= $5", clause)
	assert.Equal(t, []interface{}{"a", "b", domain.RunStatusFailed, domain.QualityTotalsOnly, since}, args)
}

func TestRunLimitAndColumns(t *testing.T) {
	assert.Equal(t, defaultRunLimit, runLimit(0))
	assert.Equal(t, 5, runLimit(5))
	assert.Equal(t, "r.id, r.tenant", prefixColumns("id,\n\ttenant", "r."))
}
