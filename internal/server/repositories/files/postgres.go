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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.FileEntry) error {
	query := `INSERT INTO file (id, abs_path, name, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.AbsPath, f.Name, f.SizeBytes, f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByPath(ctx context.Context, absPath string) (*models.FileEntry, error) {
	query := `SELECT id, abs_path, name, size_bytes, created_at FROM file WHERE abs_path = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, absPath))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	query := `SELECT id, abs_path, name, size_bytes, created_at FROM file WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.FileEntry, error) {
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM file WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.FileEntry, error) {
	f := &models.FileEntry{}
	if err := row.Scan(&f.ID, &f.AbsPath, &f.Name, &f.SizeBytes, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
