package database

import (
	"context"
	"fmt"
	"time"

	"pizzaria/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	applicationName = "pizzaria"

	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
)

// NewPool creates a PostgreSQL connection pool and waits until the server
// answers a ping, retrying a few times while the database starts up.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
		}
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("database not reachable yet")
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}

// newPoolConfig maps the settings onto a pgxpool config. Sessions report
// the application name and use UTC so order timestamps compare across nodes.
func newPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return poolConfig, nil
}
