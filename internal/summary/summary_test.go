package summary

import (
	"testing"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/prediction"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

func item(key string, sync storage.SyncState, blob bool, labels ...models.Label) storage.Item {
	return storage.Item{Entry: models.CatalogEntry{Key: key, Labels: labels}, Sync: sync, BlobStored: blob}
}

func TestCalculate(t *testing.T) {
	items := []storage.Item{
		item("1", storage.SyncSynced, true, models.Label{Name: "pizza", Value: 285}),
		item("2", storage.SyncSynced, true, models.Label{Name: "pizza", Value: 300}),
		item("3", storage.SyncPending, false, models.Label{Name: "apple", Value: 95}),
		item("4", storage.SyncFailed, true, models.Label{Name: "burger", Value: 540}, models.Label{Name: "fries", Value: 365}),
		item("5", storage.SyncSynced, false, prediction.FallbackLabels()...),
	}

	s := Calculate(items)

	if s.Total != 5 || s.Fallback != 1 || s.MissingBlobs != 2 || s.PendingSync != 1 || s.FailedSync != 1 {
		t.Errorf("Unexpected counts %+v", s)
	}
	if s.LabelCounts["pizza"] != 2 || s.LabelCounts["fries"] != 1 {
		t.Errorf("Unexpected label counts %v", s.LabelCounts)
	}
	if _, ok := s.LabelCounts["cat"]; ok {
		t.Error("Expected fallback labels to be excluded from label counts")
	}

	expected := ValueStats{Count: 4, Mean: 305, Median: 292.5, Min: 95, Max: 540}
	if s.Value != expected {
		t.Errorf("Expected %+v, got %+v", expected, s.Value)
	}
}

func TestCalculateValueStats(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected ValueStats
	}{
		{name: "empty", values: nil, expected: ValueStats{}},
		{name: "single", values: []float64{100}, expected: ValueStats{Count: 1, Mean: 100, Median: 100, Min: 100, Max: 100}},
		{name: "odd", values: []float64{3, 1, 2}, expected: ValueStats{Count: 3, Mean: 2, Median: 2, Min: 1, Max: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateValueStats(tt.values); got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestTopLabels(t *testing.T) {
	s := Summary{LabelCounts: map[string]int{"pizza": 3, "apple": 1, "burger": 3, "soup": 2}}

	top := s.TopLabels(3)
	expected := []LabelCount{{"burger", 3}, {"pizza", 3}, {"soup", 2}}
	if len(top) != len(expected) {
		t.Fatalf("Expected %d labels, got %d", len(expected), len(top))
	}
	for i := range expected {
		if top[i] != expected[i] {
			t.Errorf("Expected %+v at %d, got %+v", expected[i], i, top[i])
		}
	}
	if all := s.TopLabels(0); len(all) != 4 {
		t.Errorf("Expected all 4 labels, got %d", len(all))
	}
}
