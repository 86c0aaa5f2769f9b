package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharegate/internal/common"
	"github.com/dmitrijs2005/sharegate/internal/dbx"
	"github.com/dmitrijs2005/sharegate/internal/server/models"
)

// SQLiteRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, f *models.FileEntry) error {
	query := `INSERT INTO file (id, abs_path, name, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.AbsPath, f.Name, f.SizeBytes, f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByPath(ctx context.Context, absPath string) (*models.FileEntry, error) {
	query := `SELECT id, abs_path, name, size_bytes, created_at FROM file WHERE abs_path = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, absPath))
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	query := `SELECT id, abs_path, name, size_bytes, created_at FROM file WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.FileEntry, error) {
	query := `SELECT id, abs_path, name, size_bytes, created_at FROM file ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileEntry
	for rows.Next() {
		var item models.FileEntry
		if err := rows.Scan(&item.ID, &item.AbsPath, &item.Name, &item.SizeBytes, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.FileEntry, error) {
	f := &models.FileEntry{}
	if err := row.Scan(&f.ID, &f.AbsPath, &f.Name, &f.SizeBytes, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
