package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// CategoryResolver finds global categories by name and creates them on first sight.
type CategoryResolver struct {
	store service.CategoryStore
}

// NewCategoryResolver creates a resolver backed by store.
func NewCategoryResolver(store service.CategoryStore) *CategoryResolver {
	return &CategoryResolver{store: store}
}

// ResolveCategory returns the category named name, creating it with the given
// type and mapping when absent. A concurrent create of the same name surfaces
// as ErrDuplicateEntry from the store, after which the winner is read back.
func (r *CategoryResolver) ResolveCategory(ctx context.Context, name string, mapping model.TaxMapping, isExpense bool) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = model.UncategorizedName
	}

	category, err := r.store.GetCategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	categoryType := model.CategoryTypeIncome
	if isExpense {
		categoryType = model.CategoryTypeExpense
	}
	if !mapping.Valid() {
		mapping = model.TaxNone
	}

	category = &model.Category{Name: name, Type: categoryType, TaxMapping: mapping}
	err = r.store.CreateCategory(ctx, category)
	switch {
	case err == nil:
		return category, nil
	case errors.Is(err, common.ErrDuplicateEntry):
		existing, getErr := r.store.GetCategoryByName(ctx, name)
		if getErr != nil {
			return nil, fmt.Errorf("failed to read back category %q: %w", name, getErr)
		}
		return existing, nil
	default:
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}
}
