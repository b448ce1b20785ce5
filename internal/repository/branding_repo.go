package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solvencia-backend/internal/models"
)

const brandingRowID = "default"

type BrandingRepo struct {
	pool *pgxpool.Pool
}

func NewBrandingRepo(pool *pgxpool.Pool) *BrandingRepo {
	return &BrandingRepo{pool: pool}
}

// Get returns the stored branding, or the defaults when none was saved.
func (r *BrandingRepo) Get(ctx context.Context) (*models.Branding, error) {
	b := &models.Branding{}
	err := r.pool.QueryRow(ctx,
		`SELECT app_name, dept_name, icon_type, updated_at FROM branding WHERE id = $1`, brandingRowID,
	).Scan(&b.AppName, &b.DeptName, &b.IconType, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		def := models.DefaultBranding()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BrandingRepo) Update(ctx context.Context, b *models.Branding) error {
	b.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO branding (id, app_name, dept_name, icon_type, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET app_name = EXCLUDED.app_name, dept_name = EXCLUDED.dept_name,
			icon_type = EXCLUDED.icon_type, updated_at = EXCLUDED.updated_at`,
		brandingRowID, b.AppName, b.DeptName, b.IconType, b.UpdatedAt,
	)
	return err
}
