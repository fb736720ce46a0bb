package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// keyLayout keeps keys lexically sortable and filesystem safe.
const keyLayout = "2006-01-02T15-04-05.000000000Z"

// Capability identifies a device permission the pipeline depends on.
type Capability string

const (
	CapabilityCamera       Capability = "camera"
	CapabilityMediaLibrary Capability = "media_library"
)

// PermissionState is the resolved state of a single capability.
type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionState) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// CaptureOptions mirrors the knobs exposed by the capture subsystem.
type CaptureOptions struct {
	Quality         float64 `json:"quality" yaml:"quality"`
	IncludeRawBytes bool    `json:"include_raw_bytes" yaml:"include_raw_bytes"`
}

// Label is a food name with its associated numeric value (calories).
type Label struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// UnmarshalJSON accepts both {"name":..,"value":..} and a bare string.
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*l = Label{Name: name}
		return nil
	}

	var raw struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode label: %w", err)
	}
	*l = Label{Name: raw.Name, Value: raw.Value}
	return nil
}

// CatalogEntry is one captured image's metadata.
type CatalogEntry struct {
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Key    string  `json:"key" yaml:"key"`
	Labels []Label `json:"labels" yaml:"labels"`
}

// Clone returns a deep copy so callers cannot mutate shared label slices.
func (e CatalogEntry) Clone() CatalogEntry {
	e.Labels = append([]Label(nil), e.Labels...)
	return e
}

// PhotoArtifact is an in-memory captured photo. It is immutable once
// returned by the capture controller.
type PhotoArtifact struct {
	LocalURI   string
	CapturedAt time.Time

	once     sync.Once
	rawBytes []byte
	err      error
}

// NewPhotoArtifact builds an artifact. rawBytes may be nil, in which case
// Bytes reads LocalURI on first use.
func NewPhotoArtifact(localURI string, rawBytes []byte, capturedAt time.Time) *PhotoArtifact {
	p := &PhotoArtifact{
		LocalURI:   localURI,
		CapturedAt: capturedAt,
		rawBytes:   rawBytes,
	}
	if rawBytes != nil {
		p.once.Do(func() {})
	}
	return p
}

// Bytes materializes the image bytes, reading LocalURI at most once.
func (p *PhotoArtifact) Bytes() ([]byte, error) {
	p.once.Do(func() {
		p.rawBytes, p.err = os.ReadFile(p.LocalURI)
		if p.err != nil {
			p.err = fmt.Errorf("failed to read photo %s: %w", p.LocalURI, p.err)
		}
	})
	return p.rawBytes, p.err
}

// Key is the canonical blob and catalog key for this photo.
func (p *PhotoArtifact) Key() string {
	return KeyFor(p.CapturedAt)
}

// KeyFor derives the catalog/blob key from a capture timestamp.
func KeyFor(t time.Time) string {
	return t.UTC().Format(keyLayout) + ".jpg"
}
