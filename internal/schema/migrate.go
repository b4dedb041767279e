package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-course-roster/internal/dialect"
)

// Version identifies the schema the descriptors describe.
const Version = "001_student_courses"

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate creates the tables described by Tables when the current Version
// has not been applied yet. It runs inside a single transaction and is safe
// to call on every start.
func Migrate(ctx context.Context, db *sqlx.DB, d dialect.Dialect) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied int
	if err = tx.GetContext(ctx, &applied, tx.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`), Version); err != nil {
		return fmt.Errorf("check migration %s: %w", Version, err)
	}
	if applied > 0 {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit migration check: %w", err)
		}
		return nil
	}

	for _, table := range Tables {
		for _, stmt := range table.CreateSQL(d) {
			if _, err = tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create %s: %w", table.Name, err)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`), Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record migration %s: %w", Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
