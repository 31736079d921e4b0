// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
	Storage   StorageConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	// Driver is "postgres" (lib/pq) or "pgx".
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type AppConfig struct {
	DataDir   string
	OutputDir string
	Workers   int
	LogLevel  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
}

// SnapshotTTL is the lifetime of a cached detailed remains snapshot.
func (c CacheConfig) SnapshotTTL() time.Duration {
	if c.SnapshotTTLSeconds <= 0 {
		return reconcile.DefaultSnapshotTTL
	}
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

type ReconcileConfig struct {
	ClassificationTTLHours int
	LookbackDays           int
	TurnoverDecimals       int
	SyntheticWarehouse     string
	MarketplaceKeywords    []string
	StatusLabels           []string
	StatusSubstrings       []string
}

// Keywords returns the configured vocabulary; empty lists keep the defaults.
func (c ReconcileConfig) Keywords() reconcile.Keywords {
	kw := reconcile.DefaultKeywords()
	if len(c.MarketplaceKeywords) > 0 {
		kw.Marketplace = c.MarketplaceKeywords
	}
	if len(c.StatusLabels) > 0 {
		kw.StatusLabels = c.StatusLabels
	}
	if len(c.StatusSubstrings) > 0 {
		kw.StatusSubstrings = c.StatusSubstrings
	}
	return kw
}

// Options maps the section onto engine options.
func (c ReconcileConfig) Options() reconcile.Options {
	return reconcile.Options{
		Keywords:         c.Keywords(),
		SyntheticName:    c.SyntheticWarehouse,
		TurnoverDecimals: c.TurnoverDecimals,
		Classification: reconcile.ClassifierOptions{
			TTL:      time.Duration(c.ClassificationTTLHours) * time.Hour,
			Lookback: time.Duration(c.LookbackDays) * 24 * time.Hour,
		},
	}
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type MetricsConfig struct {
	TextfilePath string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_OUTPUT_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockrecon")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 5)
	viper.SetDefault("APP_DATA_DIR", "./data/feeds")
	viper.SetDefault("APP_OUTPUT_DIR", "./data/output")
	viper.SetDefault("APP_WORKERS", 4)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SNAPSHOT_TTL_SECONDS", int(reconcile.DefaultSnapshotTTL/time.Second))
	viper.SetDefault("RECONCILE_CLASSIFICATION_TTL_HOURS", 24)
	viper.SetDefault("RECONCILE_LOOKBACK_DAYS", 30)
	viper.SetDefault("RECONCILE_TURNOVER_DECIMALS", reconcile.DefaultTurnoverDecimals)
	viper.SetDefault("RECONCILE_SYNTHETIC_WAREHOUSE", reconcile.DefaultSyntheticWarehouse)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "reconciliation")
}

func build() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxConns: viper.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			DataDir:   viper.GetString("APP_DATA_DIR"),
			OutputDir: viper.GetString("APP_OUTPUT_DIR"),
			Workers:   viper.GetInt("APP_WORKERS"),
			LogLevel:  viper.GetString("LOG_LEVEL"),
		},
		Cache: CacheConfig{
			Enabled:            viper.GetBool("CACHE_ENABLED"),
			RedisURL:           viper.GetString("REDIS_URL"),
			RedisHost:          viper.GetString("REDIS_HOST"),
			RedisPort:          viper.GetString("REDIS_PORT"),
			RedisPassword:      viper.GetString("REDIS_PASSWORD"),
			RedisDB:            viper.GetInt("REDIS_DB"),
			SnapshotTTLSeconds: viper.GetInt("CACHE_SNAPSHOT_TTL_SECONDS"),
		},
		Reconcile: ReconcileConfig{
			ClassificationTTLHours: viper.GetInt("RECONCILE_CLASSIFICATION_TTL_HOURS"),
			LookbackDays:           viper.GetInt("RECONCILE_LOOKBACK_DAYS"),
			TurnoverDecimals:       viper.GetInt("RECONCILE_TURNOVER_DECIMALS"),
			SyntheticWarehouse:     viper.GetString("RECONCILE_SYNTHETIC_WAREHOUSE"),
			MarketplaceKeywords:    splitList(viper.GetString("RECONCILE_MARKETPLACE_KEYWORDS")),
			StatusLabels:           splitList(viper.GetString("RECONCILE_STATUS_LABELS")),
			StatusSubstrings:       splitList(viper.GetString("RECONCILE_STATUS_SUBSTRINGS")),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Metrics: MetricsConfig{
			TextfilePath: viper.GetString("METRICS_TEXTFILE"),
		},
	}
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
