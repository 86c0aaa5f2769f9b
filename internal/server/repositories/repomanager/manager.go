// Package repomanager selects and wires a database backend: it opens the
// process-wide pooled *sql.DB, runs the embedded migrations, and vends
// repository implementations bound to a DBTX.
package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/shares"
)

type RepositoryManager interface {
	// Open returns the shared connection pool for the configured DSN.
	// It is called once at startup; handlers borrow connections from the
	// pool instead of opening their own store handles.
	Open(dsn string) (*sql.DB, error)
	RunMigrations(ctx context.Context, db *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Shares(db dbx.DBTX) shares.Repository
}

// ForDSN picks the backend by DSN scheme: postgres:// selects PostgreSQL,
// anything else is treated as a SQLite database path.
func ForDSN(dsn string) RepositoryManager {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return &PostgresRepositoryManager{}
	}
	return &SQLiteRepositoryManager{}
}
