package categories

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBuilder(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	cats := NewBuilder(t).
		WithBasicCategories().
		WithCategory(CategoryGroceries).
		WithCategory("Pet Supplies").
		MustBuild(ctx, store)

	assert.Equal(t, []string{"Groceries", "Pet Supplies", "Salary", "Software & IT", "Travel"}, cats.Names())

	software := cats.MustFind(t, CategorySoftware)
	assert.Equal(t, model.TaxOfficeCosts, software.TaxMapping)
	assert.True(t, software.IsTaxDeductible())

	salary := cats.MustFind(t, CategorySalary)
	assert.Equal(t, model.CategoryTypeIncome, salary.Type)

	pets := cats.MustFind(t, "Pet Supplies")
	assert.Equal(t, model.TaxNone, pets.TaxMapping)

	stored, err := store.GetCategoryByName(ctx, "Travel")
	require.NoError(t, err)
	assert.Equal(t, cats.MustFind(t, CategoryTravel).ID, stored.ID)

	assert.Nil(t, cats.Find(CategoryDining))
}

func TestBuildDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	NewBuilder(t).WithCategory(CategoryTravel).MustBuild(ctx, store)
	_, err := NewBuilder(t).WithCategory(CategoryTravel).Build(ctx, store)
	require.Error(t, err)
}
