package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
)

const categoryColumns = `id, name, type, tax_mapping, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var (
		c         model.Category
		createdAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.TaxMapping, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.Time
	return &c, nil
}

// GetCategoryByID retrieves a category by id.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, s.db, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
}

// GetCategoryByName retrieves a category by its exact name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, s.db, `SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name)
}

func (s *SQLiteStorage) getCategory(ctx context.Context, q queryable, query string, arg string) (*model.Category, error) {
	category, err := scanCategory(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", arg, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// CreateCategory inserts a category, assigning an id when empty.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateCategory(category); err != nil {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, type, tax_mapping, created_at)
		VALUES (?, ?, ?, ?, ?)
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
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
