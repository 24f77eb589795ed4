package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

// DB wraps the database handle plus the placeholder dialect the query
// builder needs. Production runs Postgres through a pgx pool; local runs and
// tests can point DB_DRIVER at sqlite and reuse the same repository code.
type DB struct {
	SQL     *sql.DB
	Builder sq.StatementBuilderType

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects according to cfg.Driver and returns the wrapped handle.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", "postgres":
		return openPostgres(ctx, cfg, logger)
	case "sqlite":
		return openSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "ocr-pipeline"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("connected to postgres")
	return &DB{
		SQL:     stdlib.OpenDBFromPool(pool),
		Builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		pool:    pool,
		logger:  logger,
	}, nil
}

func openSQLite(cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	logger.Info("opened sqlite database", "dsn", cfg.DSN)
	return &DB{
		SQL:     db,
		Builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger:  logger,
	}, nil
}

// HealthCheck pings the database, catching DSN and credential issues at
// startup rather than on the first document.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.SQL.PingContext(ctx)
}

// Close closes the database connections gracefully.
func (d *DB) Close() {
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.logger.Error("failed to close sql handle", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}
