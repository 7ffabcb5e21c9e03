// Package categories seeds tax-mapped categories for tests.
//
//	cats := categories.NewBuilder(t).
//		WithBasicCategories().
//		WithCategory(categories.CategorySoftware).
//		MustBuild(ctx, store)
package categories

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// CategoryName is a category known to the builder.
type CategoryName string

// String returns the category name.
func (c CategoryName) String() string {
	return string(c)
}

// Category names with known types and tax mappings.
const (
	CategoryGroceries CategoryName = "Groceries"
	CategoryDining    CategoryName = "Dining & Takeaway"
	CategorySoftware  CategoryName = "Software & IT"
	CategoryTravel    CategoryName = "Travel"
	CategoryUtilities CategoryName = "Utilities"
	CategoryBankFees  CategoryName = "Bank & Finance Charges"
	CategoryTransfers CategoryName = "Transfers"
	CategorySalary    CategoryName = "Salary"
	CategoryRefunds   CategoryName = "Refunds"
)

type seed struct {
	typ     model.CategoryType
	mapping model.TaxMapping
}

var known = map[CategoryName]seed{
	CategoryGroceries: {model.CategoryTypeExpense, model.TaxNone},
	CategoryDining:    {model.CategoryTypeExpense, model.TaxNone},
	CategorySoftware:  {model.CategoryTypeExpense, model.TaxOfficeCosts},
	CategoryTravel:    {model.CategoryTypeExpense, model.TaxTravelCosts},
	CategoryUtilities: {model.CategoryTypeExpense, model.TaxPremisesCosts},
	CategoryBankFees:  {model.CategoryTypeExpense, model.TaxFinancialCharges},
	CategoryTransfers: {model.CategoryTypeExpense, model.TaxNone},
	CategorySalary:    {model.CategoryTypeIncome, model.TaxNone},
	CategoryRefunds:   {model.CategoryTypeIncome, model.TaxNone},
}

// Categories is a set of created categories.
type Categories []model.Category

// Find returns the category with the given name, or nil.
func (c Categories) Find(name CategoryName) *model.Category {
	for i := range c {
		if c[i].Name == name.String() {
			return &c[i]
		}
	}
	return nil
}

// MustFind returns the category with the given name or fails the test.
func (c Categories) MustFind(t *testing.T, name CategoryName) *model.Category {
	t.Helper()
	cat := c.Find(name)
	if cat == nil {
		t.Fatalf("category %q not found in test data", name)
	}
	return cat
}

// Names returns the category names in order.
func (c Categories) Names() []string {
	names := make([]string, len(c))
	for i, cat := range c {
		names[i] = cat.Name
	}
	return names
}

// Builder collects categories to create.
type Builder struct {
	t     *testing.T
	names map[CategoryName]struct{}
}

// NewBuilder creates an empty builder.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, names: make(map[CategoryName]struct{})}
}

// WithCategory adds one category. Unknown names become untaxed expenses.
func (b *Builder) WithCategory(name CategoryName) *Builder {
	b.names[name] = struct{}{}
	return b
}

// WithCategories adds several categories.
func (b *Builder) WithCategories(names ...CategoryName) *Builder {
	for _, name := range names {
		b.WithCategory(name)
	}
	return b
}

// WithBasicCategories adds a small mix of taxed, untaxed and income categories.
func (b *Builder) WithBasicCategories() *Builder {
	return b.WithCategories(CategoryGroceries, CategorySoftware, CategoryTravel, CategorySalary)
}

// Build creates the categories in name order.
func (b *Builder) Build(ctx context.Context, store service.CategoryStore) (Categories, error) {
	names := make([]string, 0, len(b.names))
	for name := range b.names {
		names = append(names, name.String())
	}
	sort.Strings(names)

	result := make(Categories, 0, len(names))
	for _, name := range names {
		s, ok := known[CategoryName(name)]
		if !ok {
			s = seed{model.CategoryTypeExpense, model.TaxNone}
		}
		c := &model.Category{Name: name, Type: s.typ, TaxMapping: s.mapping}
		if err := store.CreateCategory(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", name, err)
		}
		result = append(result, *c)
	}
	return result, nil
}

// MustBuild is Build that fails the test on error.
func (b *Builder) MustBuild(ctx context.Context, store service.CategoryStore) Categories {
	b.t.Helper()
	cats, err := b.Build(ctx, store)
	if err != nil {
		b.t.Fatalf("failed to build categories: %v", err)
	}
	return cats
}
