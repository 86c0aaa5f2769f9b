package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/sharegate/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

type testEnv struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	files  *FileService
	shares *ShareService
	gate   *AccessGate
}

// setupEnv wires the services over a private in-memory database, migrated
// the same way the server does it. A single pooled connection keeps
// concurrent test redemptions serialized at the store.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	rm := &repomanager.SQLiteRepositoryManager{}
	dsn := fmt.Sprintf("file:services_tests_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := rm.Open(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, rm.RunMigrations(context.Background(), db))

	return &testEnv{
		db:     db,
		rm:     rm,
		files:  NewFileService(db, rm),
		shares: NewShareService(db, rm),
		gate:   NewAccessGate(db, rm),
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
