package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// VisibilityHeader carries PutOptions.Visibility over HTTP.
const VisibilityHeader = "X-Blob-Visibility"

// HTTPStore puts blobs on a `snapcatalog serve` instance.
type HTTPStore struct {
	BaseURL    string
	httpClient *http.Client
}

// NewHTTPStore creates an HTTP blob store client.
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Put implements Store.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	endpoint := s.BaseURL + "/api/blobs/" + strings.Join(segments, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create blob request: %w", err)
	}
	req.Header.Set("Content-Type", opts.ContentType)
	req.Header.Set(VisibilityHeader, opts.Visibility)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("blob store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
