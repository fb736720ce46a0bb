// Package export writes the catalog to YAML and Parquet and reads it back
// from Parquet.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

// Entry is one exported catalog entry.
type Entry struct {
	ID         string         `yaml:"id,omitempty"`
	Key        string         `yaml:"key"`
	Labels     []models.Label `yaml:"labels"`
	Sync       string         `yaml:"sync"`
	BlobStored bool           `yaml:"blob_stored"`
}

// Document is the YAML export format.
type Document struct {
	GeneratedAt string  `yaml:"generated_at"`
	Entries     []Entry `yaml:"entries"`
}

// NewDocument builds a document from catalog items.
func NewDocument(items []storage.Item, generatedAt time.Time) Document {
	doc := Document{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Entries:     make([]Entry, 0, len(items)),
	}
	for _, item := range items {
		doc.Entries = append(doc.Entries, Entry{
			ID:         item.Entry.ID,
			Key:        item.Entry.Key,
			Labels:     item.Entry.Labels,
			Sync:       string(item.Sync),
			BlobStored: item.BlobStored,
		})
	}
	return doc
}

// WriteYAML encodes items as a Document.
func WriteYAML(w io.Writer, items []storage.Item, generatedAt time.Time) error {
	doc := NewDocument(items, generatedAt)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes items to path, creating parent directories.
func SaveYAML(path string, items []storage.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create YAML file: %w", err)
	}
	if err := WriteYAML(f, items, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
