package categories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaf-events/backend/internal/models"
)

// Repository handles category reference data.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a categories repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all categories ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, fee, max_participants, COALESCE(description,''), created_at, updated_at
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Fee, &cat.MaxParticipants, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, cat)
	}
	return list, rows.Err()
}

// GetByID returns one category.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const q = `SELECT id, name, fee, max_participants, COALESCE(description,''), created_at, updated_at
		FROM categories WHERE id = $1`
	var cat models.Category
	err := r.pool.QueryRow(ctx, q, id).Scan(&cat.ID, &cat.Name, &cat.Fee, &cat.MaxParticipants, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// MapByIDs returns the categories for the given ids keyed by id. Missing ids
// are simply absent from the map; the caller validates.
func (r *Repository) MapByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, fee, max_participants, COALESCE(description,''), created_at, updated_at
		FROM categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[uuid.UUID]models.Category, len(ids))
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Fee, &cat.MaxParticipants, &cat.Description, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, err
		}
		m[cat.ID] = cat
	}
	return m, rows.Err()
}

// Create inserts a category (admin only).
func (r *Repository) Create(ctx context.Context, cat *models.Category) error {
	const q = `INSERT INTO categories (name, fee, max_participants, description)
		VALUES ($1, $2, $3, NULLIF($4,''))
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, cat.Name, cat.Fee, cat.MaxParticipants, cat.Description).
		Scan(&cat.ID, &cat.CreatedAt, &cat.UpdatedAt)
}
