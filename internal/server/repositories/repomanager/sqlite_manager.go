package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/migrations"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharegate/internal/server/repositories/shares"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories. This is the
// default backend: a single database file next to the binary, matching a
// single-operator deployment.
type SQLiteRepositoryManager struct{}

// Open opens the pooled handle with foreign key enforcement switched on for
// every connection; the share→file cascade depends on it.
func (m *SQLiteRepositoryManager) Open(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

func (m *SQLiteRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewSQLiteRepository(db)
}

// RunMigrations sets up goose with the embedded SQLite migrations and runs
// them against the provided database connection.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.SQLite())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
