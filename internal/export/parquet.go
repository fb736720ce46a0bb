package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

// Row is the Parquet schema: one row per catalog entry.
type Row struct {
	Key         string    `parquet:"key"`
	ID          string    `parquet:"id"`
	LabelNames  []string  `parquet:"label_names"`
	LabelValues []float64 `parquet:"label_values"`
}

func toRow(entry models.CatalogEntry) Row {
	row := Row{
		Key:         entry.Key,
		ID:          entry.ID,
		LabelNames:  make([]string, len(entry.Labels)),
		LabelValues: make([]float64, len(entry.Labels)),
	}
	for i, label := range entry.Labels {
		row.LabelNames[i] = label.Name
		row.LabelValues[i] = label.Value
	}
	return row
}

func fromRow(row Row) (models.CatalogEntry, error) {
	if len(row.LabelNames) != len(row.LabelValues) {
		return models.CatalogEntry{}, fmt.Errorf("row %s has %d label names but %d values", row.Key, len(row.LabelNames), len(row.LabelValues))
	}
	entry := models.CatalogEntry{ID: row.ID, Key: row.Key, Labels: make([]models.Label, len(row.LabelNames))}
	for i := range row.LabelNames {
		entry.Labels[i] = models.Label{Name: row.LabelNames[i], Value: row.LabelValues[i]}
	}
	return entry, nil
}

// WriteParquet encodes entries as Parquet rows.
func WriteParquet(w io.Writer, entries []models.CatalogEntry) error {
	rows := make([]Row, len(entries))
	for i, entry := range entries {
		rows[i] = toRow(entry)
	}

	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// SaveParquet writes entries to path.
func SaveParquet(path string, entries []models.CatalogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	if err := WriteParquet(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

// LoadParquet reads entries written by SaveParquet.
func LoadParquet(path string) ([]models.CatalogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var entries []models.CatalogEntry
	rows := make([]Row, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			entry, convErr := fromRow(row)
			if convErr != nil {
				return nil, convErr
			}
			entries = append(entries, entry)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return entries, nil
}

// Creator receives imported entries.
type Creator interface {
	CreateImage(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error)
}

// ImportResult counts what Import did.
type ImportResult struct {
	Created int
	Skipped int
}

// Import creates every entry in dst. Entries rejected by dst, such as
// duplicate keys, are skipped and logged.
func Import(ctx context.Context, dst Creator, entries []models.CatalogEntry) (ImportResult, error) {
	var result ImportResult
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.Key == "" || len(entry.Labels) == 0 {
			slog.Warn("Skipping incomplete entry", "key", entry.Key)
			result.Skipped++
			continue
		}
		if _, err := dst.CreateImage(ctx, entry); err != nil {
			slog.Warn("Skipping entry", "key", entry.Key, "error", err)
			result.Skipped++
			continue
		}
		result.Created++
	}
	return result, nil
}
