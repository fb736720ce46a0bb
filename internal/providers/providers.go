package providers

import (
	"context"
)

// Config represents one labelling request to a provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MimeType    string
	Filename    string
}

// Provider describes an image and returns the raw response body, which
// is expected to hold {"name": ..., "calories": ...} JSON
type Provider interface {
	Describe(ctx context.Context, config Config) (string, error)
}
