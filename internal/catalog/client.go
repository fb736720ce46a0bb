package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

// ErrConflict is returned by CreateImage when the key already exists remotely.
var ErrConflict = errors.New("catalog entry already exists")

// Client talks to the catalog API served by `snapcatalog serve`.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// ListResponse is the body of GET /api/images.
type ListResponse struct {
	Items []models.CatalogEntry `json:"items"`
}

// NewClient creates a new catalog client
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListImages fetches every catalog entry in insertion order.
func (c *Client) ListImages(ctx context.Context) ([]models.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/images", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, string(body))
	}

	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if list.Items == nil {
		list.Items = []models.CatalogEntry{}
	}
	return list.Items, nil
}

// CreateImage creates entry remotely and returns the stored entry.
func (c *Client) CreateImage(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error) {
	payload, err := json.Marshal(struct {
		Key    string         `json:"key"`
		Labels []models.Label `json:"labels"`
	}{Key: entry.Key, Labels: entry.Labels})
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("failed to marshal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/images", bytes.NewReader(payload))
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("failed to create catalog entry: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return models.CatalogEntry{}, fmt.Errorf("%w: %s", ErrConflict, entry.Key)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.CatalogEntry{}, fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, string(body))
	}

	var created models.CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return models.CatalogEntry{}, fmt.Errorf("failed to decode created entry: %w", err)
	}
	return created, nil
}
