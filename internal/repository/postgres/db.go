package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockrecon/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// DriverName maps the configured driver to a registered database/sql name.
func DriverName(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "pgx/v5":
		return "pgx"
	default:
		return "postgres"
	}
}

// DSN builds a keyword/value connection string accepted by both drivers.
func DSN(cfg *config.DatabaseConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
}

// NewDB opens a connection pool for cfg.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Connect(DriverName(cfg.Driver), DSN(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}

	db.SetMaxOpenConns(maxConns + 5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, maxConns), nil
}

// Wrap limits concurrent transactions on an existing pool to maxConcurrent.
func Wrap(db *sqlx.DB, maxConcurrent int) *DB {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &DB{DB: db, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
