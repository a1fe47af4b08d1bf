// Command migrate applies or reverts the order schema and checks database
// connectivity.
//
//	migrate up     apply pending migrations
//	migrate down   revert every migration
//	migrate check  connect and report the server version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pizzaria/internal/config"
	"pizzaria/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := fs.String("dsn", os.Getenv("DATABASE_URL"), "postgres URL; defaults to the DB_* settings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: migrate [-dsn url] up|down|check")
	}

	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"})

	connString := *dsn
	if connString == "" {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		connString = cfg.ConnectionString()
	}

	switch cmd := fs.Arg(0); cmd {
	case "up":
		return database.Migrate(connString, logger)
	case "down":
		return database.Rollback(connString, logger)
	case "check":
		return check(connString, logger)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func check(connString string, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	var dbName, version string
	if err := conn.QueryRow(ctx, "SELECT current_database(), version()").Scan(&dbName, &version); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var orders int64
	if err := conn.QueryRow(ctx, "SELECT count(*) FROM orders").Scan(&orders); err != nil {
		logger.Warn().Err(err).Msg("orders table not readable, run migrate up")
	} else {
		logger.Info().Int64("orders", orders).Msg("orders table present")
	}

	logger.Info().Str("database", dbName).Str("server", version).Msg("successfully connected to database")
	return nil
}
