package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solvencia-backend/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

// List returns every stored document, oldest edit first.
func (r *DocumentRepo) List(ctx context.Context) ([]models.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, content, source, updated_at FROM knowledge_documents ORDER BY updated_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Document, error) {
		var d models.Document
		err := row.Scan(&d.ID, &d.Name, &d.Content, &d.Source, &d.UpdatedAt)
		return d, err
	})
}

// Upsert inserts d or overwrites the document with the same ID.
func (r *DocumentRepo) Upsert(ctx context.Context, d *models.Document) error {
	if d.Source == "" {
		d.Source = models.SourceManual
	}
	d.UpdatedAt = time.Now()

	query := `INSERT INTO knowledge_documents (id, name, content, source, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, content = EXCLUDED.content,
			source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, d.ID, d.Name, d.Content, d.Source, d.UpdatedAt)
	return err
}

// Delete removes a document and reports whether it existed.
func (r *DocumentRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM knowledge_documents WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Count is the number of stored documents, custom and overrides alike.
func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM knowledge_documents").Scan(&n)
	return n, err
}
