package catalogdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndListPreservesOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	keys := []string{"c", "a", "b"}
	for _, key := range keys {
		created, err := db.CreateImage(ctx, models.CatalogEntry{Key: key, Labels: []models.Label{{Name: "x", Value: 1}}})
		if err != nil {
			t.Fatalf("CreateImage(%s) failed: %v", key, err)
		}
		if created.ID == "" {
			t.Errorf("Expected ID to be assigned for %s", key)
		}
	}

	entries, err := db.ListImages(ctx)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(entries) != len(keys) {
		t.Fatalf("Expected %d entries, got %d", len(keys), len(entries))
	}
	for i, key := range keys {
		if entries[i].Key != key {
			t.Errorf("Expected key %s at %d, got %s", key, i, entries[i].Key)
		}
		if entries[i].Labels[0] != (models.Label{Name: "x", Value: 1}) {
			t.Errorf("Unexpected labels %+v", entries[i].Labels)
		}
	}

	n, err := db.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Expected count 3, got %d (%v)", n, err)
	}
}

func TestCreateImageValidation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   models.CatalogEntry
		wantDup bool
	}{
		{name: "missing key", entry: models.CatalogEntry{Labels: []models.Label{{Name: "x"}}}},
		{name: "missing labels", entry: models.CatalogEntry{Key: "k"}},
		{name: "duplicate", entry: models.CatalogEntry{Key: "dup", Labels: []models.Label{{Name: "x"}}}, wantDup: true},
	}

	if _, err := db.CreateImage(ctx, models.CatalogEntry{Key: "dup", Labels: []models.Label{{Name: "y"}}}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateImage(ctx, tt.entry)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantDup && !errors.Is(err, ErrDuplicateKey) {
				t.Errorf("Expected ErrDuplicateKey, got %v", err)
			}
		})
	}
}

func TestDuplicateIDIsNotDuplicateKey(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateImage(ctx, models.CatalogEntry{ID: "fixed-id", Key: "a.jpg", Labels: []models.Label{{Name: "x"}}}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	_, err := db.CreateImage(ctx, models.CatalogEntry{ID: "fixed-id", Key: "b.jpg", Labels: []models.Label{{Name: "y"}}})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
	if errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ID collision not to report a duplicate key, got %v", err)
	}

	_, err = db.CreateImage(ctx, models.CatalogEntry{ID: "other-id", Key: "a.jpg", Labels: []models.Label{{Name: "y"}}})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestUniqueColumn(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"constraint failed: UNIQUE constraint failed: images.id (2067)", "images.id"},
		{"UNIQUE constraint failed: images.key", "images.key"},
		{"database is locked", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := uniqueColumn(errors.New(tt.msg)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEmptyList(t *testing.T) {
	db := openTestDB(t)
	entries, err := db.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", entries)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.CreateImage(context.Background(), models.CatalogEntry{ID: "fixed", Key: "k", Labels: []models.Label{{Name: "x"}}}); err != nil {
		t.Fatalf("CreateImage failed: %v", err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer db.Close()

	entries, err := db.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "fixed" {
		t.Errorf("Expected persisted entry with ID fixed, got %+v", entries)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = db.Close()

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := raw.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	_ = raw.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Expected ErrSchemaMismatch, got %v", err)
	}
}
