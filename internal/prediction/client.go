package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/snapcatalog/internal/gemini"
	"github.com/lehigh-university-libraries/snapcatalog/internal/inference"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/ollama"
	"github.com/lehigh-university-libraries/snapcatalog/internal/openai"
	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
)

// ErrPrediction wraps every prediction failure. Labels returned alongside it
// are the fallback labels.
var ErrPrediction = errors.New("prediction failed")

// fallbackLabels is substituted whenever prediction is unavailable.
var fallbackLabels = []models.Label{{Name: "cat"}, {Name: "animal"}}

// FallbackLabels returns a copy of the fixed fallback label pair.
func FallbackLabels() []models.Label {
	return append([]models.Label(nil), fallbackLabels...)
}

// IsFallback reports whether labels equal the fallback pair.
func IsFallback(labels []models.Label) bool {
	if len(labels) != len(fallbackLabels) {
		return false
	}
	for i := range labels {
		if labels[i] != fallbackLabels[i] {
			return false
		}
	}
	return true
}

// Client labels photos through a provider.
type Client struct {
	Provider     providers.Provider
	ProviderName string
	Model        string
	Timeout      time.Duration
}

// NewClient builds a client for the named provider.
func NewClient(providerName, endpoint, model string, timeout time.Duration) (*Client, error) {
	var provider providers.Provider
	switch providerName {
	case "inference":
		provider = inference.New(endpoint)
	case "ollama":
		provider = ollama.New(endpoint)
	case "openai":
		provider = openai.New()
	case "gemini":
		provider = gemini.New()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}

	if model == "" {
		model = defaultModel(providerName)
	}

	return &Client{
		Provider:     provider,
		ProviderName: providerName,
		Model:        model,
		Timeout:      timeout,
	}, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "llava:13b"
		}
		return model
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return ""
	}
}

// Predict labels photo. It always returns usable labels: on any failure it
// returns the fallback pair together with an error wrapping ErrPrediction.
func (c *Client) Predict(ctx context.Context, photo *models.PhotoArtifact) ([]models.Label, error) {
	labels, err := c.predict(ctx, photo)
	if err != nil {
		return FallbackLabels(), fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	return labels, nil
}

func (c *Client) predict(ctx context.Context, photo *models.PhotoArtifact) ([]models.Label, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	image, err := photo.Bytes()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := c.Provider.Describe(ctx, providers.Config{
		Model:       c.Model,
		Temperature: 0.1,
		Prompt:      buildLabelPrompt(),
		Image:       image,
		MimeType:    "image/jpeg",
		Filename:    photo.Key(),
	})
	if err != nil {
		return nil, err
	}

	labels, err := ParseLabels(raw)
	if err != nil {
		return nil, err
	}

	slog.Info("Photo labelled", "provider", c.ProviderName, "model", c.Model, "key", photo.Key(), "labels", len(labels), "duration", time.Since(start))
	return labels, nil
}
