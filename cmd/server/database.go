package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/postflight/campaign-api/internal/config"
)

// connectDatabase opens the database and verifies it with a bounded
// exponential-backoff ping loop. The backoff starts at
// ConnectBackoffMillis and doubles per attempt; after ConnectAttempts
// failures the last ping error is returned rather than retrying forever.
func connectDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	backoff := time.Duration(cfg.ConnectBackoffMillis) * time.Millisecond
	var pingErr error

	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = db.PingContext(ctx)
		cancel()

		if pingErr == nil {
			logger.Info("database connection established", "attempt", attempt)
			return db, nil
		}

		logger.Warn("database not reachable",
			"attempt", attempt,
			"max_attempts", cfg.ConnectAttempts,
			"backoff", backoff.String(),
			"error", pingErr)

		if attempt < cfg.ConnectAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	if closeErr := db.Close(); closeErr != nil {
		logger.Error("failed to close database after failed connect", "error", closeErr)
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", cfg.ConnectAttempts, pingErr)
}
