package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending up migrations to the database at connString
// (a postgres:// URL). Running it on an up-to-date schema is a no-op.
func Migrate(connString string, logger zerolog.Logger) error {
	m, err := newMigrator(connString)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("no new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info().Uint("version", version).Msg("migrations applied successfully")
	return nil
}

// Rollback reverts every migration.
func Rollback(connString string, logger zerolog.Logger) error {
	m, err := newMigrator(connString)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("no migrations to revert")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	logger.Info().Msg("migrations reverted")
	return nil
}

func newMigrator(connString string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(connString))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize migration instance: %w", err)
	}
	return m, nil
}

// migrationURL rewrites a postgres URL to the pgx/v5 driver scheme.
func migrationURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
