package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

func sampleEntries() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "1", Key: "2026-01-01T00-00-00.000000001Z.jpg", Labels: []models.Label{{Name: "pizza", Value: 285}}},
		{Key: "2026-01-01T00-00-00.000000002Z.jpg", Labels: []models.Label{{Name: "cat"}, {Name: "animal"}}},
	}
}

func TestWriteYAML(t *testing.T) {
	entries := sampleEntries()
	items := []storage.Item{
		{Entry: entries[0], Sync: storage.SyncSynced, BlobStored: true},
		{Entry: entries[1], Sync: storage.SyncFailed},
	}

	var buf bytes.Buffer
	generated := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	if err := WriteYAML(&buf, items, generated); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	var doc Document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not valid YAML: %v", err)
	}
	if doc.GeneratedAt != "2026-10-16T12:00:00Z" {
		t.Errorf("Unexpected generated_at %s", doc.GeneratedAt)
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[0].Labels[0] != (models.Label{Name: "pizza", Value: 285}) || doc.Entries[0].Sync != "synced" {
		t.Errorf("Unexpected first entry %+v", doc.Entries[0])
	}
	if doc.Entries[1].BlobStored || doc.Entries[1].Sync != "failed" {
		t.Errorf("Unexpected second entry %+v", doc.Entries[1])
	}
	if !strings.Contains(buf.String(), "generated_at:") {
		t.Errorf("Expected generated_at key in output:\n%s", buf.String())
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalog.parquet")
	entries := sampleEntries()

	if err := SaveParquet(path, entries); err != nil {
		t.Fatalf("SaveParquet failed: %v", err)
	}
	loaded, err := LoadParquet(path)
	if err != nil {
		t.Fatalf("LoadParquet failed: %v", err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(loaded))
	}
	for i := range entries {
		if loaded[i].Key != entries[i].Key || loaded[i].ID != entries[i].ID {
			t.Errorf("Entry %d: expected %+v, got %+v", i, entries[i], loaded[i])
		}
		if len(loaded[i].Labels) != len(entries[i].Labels) {
			t.Fatalf("Entry %d: expected %d labels, got %d", i, len(entries[i].Labels), len(loaded[i].Labels))
		}
		for j := range entries[i].Labels {
			if loaded[i].Labels[j] != entries[i].Labels[j] {
				t.Errorf("Entry %d label %d: expected %+v, got %+v", i, j, entries[i].Labels[j], loaded[i].Labels[j])
			}
		}
	}
}

func TestLoadParquetMissingFile(t *testing.T) {
	if _, err := LoadParquet(filepath.Join(t.TempDir(), "missing.parquet")); err == nil {
		t.Error("Expected error for missing file")
	}
}

type fakeCreator struct {
	keys []string
}

func (f *fakeCreator) CreateImage(_ context.Context, entry models.CatalogEntry) (models.CatalogEntry, error) {
	for _, k := range f.keys {
		if k == entry.Key {
			return models.CatalogEntry{}, errors.New("duplicate")
		}
	}
	f.keys = append(f.keys, entry.Key)
	return entry, nil
}

func TestImport(t *testing.T) {
	entries := append(sampleEntries(),
		models.CatalogEntry{Key: "2026-01-01T00-00-00.000000001Z.jpg", Labels: []models.Label{{Name: "again"}}},
		models.CatalogEntry{Key: "no-labels"},
	)
	dst := &fakeCreator{}

	result, err := Import(context.Background(), dst, entries)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Created != 2 || result.Skipped != 2 {
		t.Errorf("Expected 2 created and 2 skipped, got %+v", result)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Import(ctx, dst, entries); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
