package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const defaultConnectTimeout = 5 * time.Second

// NewPostgres opens the pool and waits up to cfg.ConnectTimeout for the
// first ping. With cfg.AutoMigrate set the chat schema is applied before
// the pool is handed out.
func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBName),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	if cfg.AutoMigrate {
		if err := Migrate(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// StatsCollector exposes the pool statistics as go_sql_* metrics labelled db_name="chat".
func StatsCollector(db *sqlx.DB) prometheus.Collector {
	return collectors.NewDBStatsCollector(db.DB, "chat")
}

// Close closes the database connection
func Close(db *sqlx.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
		return
	}
	logger.Info("Database connection closed")
}
