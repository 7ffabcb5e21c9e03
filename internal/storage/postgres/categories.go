package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `id, name, type, tax_mapping, created_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.TaxMapping, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategoryByID retrieves a category by id.
func (s *Store) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "category", id)
	}
	return c, nil
}

// GetCategoryByName retrieves a category by its exact name.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
	if err != nil {
		return nil, notFound(err, "category", fmt.Sprintf("%q", name))
	}
	return c, nil
}

// CreateCategory inserts a category, assigning an id when empty.
func (s *Store) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := storage.ValidateCategory(category); err != nil {
		return err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.TaxMapping == "" {
		category.TaxMapping = model.TaxNone
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, type, tax_mapping, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, category.ID, category.Name, category.Type, category.TaxMapping, category.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}
