// Package summary computes catalog statistics.
package summary

import (
	"sort"

	"github.com/lehigh-university-libraries/snapcatalog/internal/prediction"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

// Summary aggregates a catalog snapshot.
type Summary struct {
	Total        int
	Fallback     int
	MissingBlobs int
	PendingSync  int
	FailedSync   int
	LabelCounts  map[string]int
	Value        ValueStats
}

// ValueStats describes the first label's value across labelled entries.
type ValueStats struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// LabelCount is one row of TopLabels.
type LabelCount struct {
	Name  string
	Count int
}

// Calculate summarizes items. Fallback entries are counted but excluded
// from value statistics.
func Calculate(items []storage.Item) Summary {
	s := Summary{
		Total:       len(items),
		LabelCounts: make(map[string]int),
	}

	var values []float64
	for _, item := range items {
		if !item.BlobStored {
			s.MissingBlobs++
		}
		switch item.Sync {
		case storage.SyncPending:
			s.PendingSync++
		case storage.SyncFailed:
			s.FailedSync++
		}

		if prediction.IsFallback(item.Entry.Labels) {
			s.Fallback++
			continue
		}
		for _, label := range item.Entry.Labels {
			s.LabelCounts[label.Name]++
		}
		if len(item.Entry.Labels) > 0 {
			values = append(values, item.Entry.Labels[0].Value)
		}
	}

	s.Value = calculateValueStats(values)
	return s
}

func calculateValueStats(values []float64) ValueStats {
	if len(values) == 0 {
		return ValueStats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return ValueStats{
		Count:  n,
		Mean:   sum / float64(n),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

// TopLabels returns up to n labels by descending count, ties by name.
// n <= 0 returns all labels.
func (s Summary) TopLabels(n int) []LabelCount {
	out := make([]LabelCount, 0, len(s.LabelCounts))
	for name, count := range s.LabelCounts {
		out = append(out, LabelCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
