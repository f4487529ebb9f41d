package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsDir = "migrations"

// MigrationCommands lists the commands accepted by Migrate.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements goose.Logger.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements goose.Logger without exiting the process.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Migrate runs a goose command against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, migrationsDir)
	case "reset":
		err = goose.ResetContext(ctx, db, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration command: %s (expected one of %v)", command, MigrationCommands)
	}
	if err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed")
	return nil
}
