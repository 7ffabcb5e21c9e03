// Package testutil provides in-memory databases for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/testutil/categories"
)

// TestDB is a migrated in-memory SQLite store with seeded categories.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories categories.Categories
}

// SetupTestDB creates a migrated in-memory database, optionally seeded with
// the given categories. The database is closed when the test ends.
func SetupTestDB(t *testing.T, names ...categories.CategoryName) *TestDB {
	t.Helper()
	return SetupTestDBWithBuilder(t, func(b *categories.Builder) *categories.Builder {
		return b.WithCategories(names...)
	})
}

// SetupTestDBWithBuilder creates a test database using a category builder.
func SetupTestDBWithBuilder(t *testing.T, configure func(*categories.Builder) *categories.Builder) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	builder := categories.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}

	return &TestDB{
		Storage:    store,
		Categories: builder.MustBuild(ctx, store),
		t:          t,
	}
}

// MustGetCategory returns a seeded category or fails the test.
func (db *TestDB) MustGetCategory(name categories.CategoryName) *model.Category {
	db.t.Helper()
	return db.Categories.MustFind(db.t, name)
}
