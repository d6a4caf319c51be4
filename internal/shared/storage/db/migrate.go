package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded SQL migrations for the dialect via goose.
// If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return nil
	}
	dir, gooseDialect, err := migrationTarget(dialect)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}

// MigrationNames lists the embedded migration files for a dialect.
func MigrationNames(dialect Dialect) ([]string, error) {
	dir, _, err := migrationTarget(dialect)
	if err != nil {
		return nil, err
	}
	return fs.Glob(migrationFiles, dir+"/*.sql")
}

func migrationTarget(dialect Dialect) (string, string, error) {
	switch dialect {
	case DialectPostgres:
		return "migrations/postgres", "postgres", nil
	case DialectSQLite:
		return "migrations/sqlite", "sqlite3", nil
	default:
		return "", "", fmt.Errorf("no migrations for dialect %q", dialect)
	}
}
