package config

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestBuild_Defaults(t *testing.T) {
	setDefaults()
	viper.AutomaticEnv()

	cfg := build()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.App.Workers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, reconcile.DefaultSnapshotTTL, cfg.Cache.SnapshotTTL())
	assert.Equal(t, reconcile.DefaultSyntheticWarehouse, cfg.Reconcile.SyntheticWarehouse)
	assert.Equal(t, reconcile.DefaultKeywords(), cfg.Reconcile.Keywords())

	opts := cfg.Reconcile.Options()
	assert.Equal(t, 24*time.Hour, opts.Classification.TTL)
	assert.Equal(t, 30*24*time.Hour, opts.Classification.Lookback)
}

func TestBuild_Environment(t *testing.T) {
	t.Setenv("APP_WORKERS", "9")
	t.Setenv("CACHE_SNAPSHOT_TTL_SECONDS", "600")
	t.Setenv("RECONCILE_MARKETPLACE_KEYWORDS", " DBS , , склад продавца")
	t.Setenv("DB_DRIVER", "pgx")
	setDefaults()
	viper.AutomaticEnv()

	cfg := build()

	assert.Equal(t, 9, cfg.App.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Cache.SnapshotTTL())
	assert.Equal(t, "pgx", cfg.Database.Driver)

	kw := cfg.Reconcile.Keywords()
	assert.Equal(t, []string{"DBS", "склад продавца"}, kw.Marketplace)
	assert.Equal(t, reconcile.DefaultKeywords().StatusLabels, kw.StatusLabels)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"a", "b c"}, splitList("a, b c ,"))
}
