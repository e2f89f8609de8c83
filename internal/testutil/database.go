// Package testutil provides test utilities for studyflow.
// It offers isolated, migrated databases with optional seeding.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/storage"
)

// TestDB represents a test database with an open shift.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Shift   *model.Shift
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	ShiftStart     time.Time
	Studies        []model.CompletedStudy
	SkipMigrations bool
	SkipShift      bool
}

// SetupTestDB creates a new in-memory test database, migrated and with one open shift.
// It automatically handles cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	_, err := db.Storage.SaveStudy(ctx, db.Shift.ID, study)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}

	if !opts.SkipShift && !opts.SkipMigrations {
		start := opts.ShiftStart
		if start.IsZero() {
			start = time.Date(2024, 6, 3, 19, 0, 0, 0, time.UTC)
		}
		shift, err := store.StartShift(ctx, start)
		if err != nil {
			t.Fatalf("failed to start shift: %v", err)
		}
		db.Shift = shift

		for _, study := range opts.Studies {
			if _, err := store.SaveStudy(ctx, shift.ID, study); err != nil {
				t.Fatalf("failed to seed study %q: %v", study.Accession, err)
			}
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustStudies returns the current shift's studies or fails the test.
func (db *TestDB) MustStudies() []model.CompletedStudy {
	db.t.Helper()
	if db.Shift == nil {
		db.t.Fatalf("test database has no shift")
	}
	studies, err := db.Storage.GetStudiesByShift(context.Background(), db.Shift.ID)
	if err != nil {
		db.t.Fatalf("failed to load studies: %v", err)
	}
	return studies
}
