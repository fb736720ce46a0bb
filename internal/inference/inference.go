package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Inference posts the photo as multipart field "file" to a prediction endpoint
type Inference struct {
	Endpoint   string
	httpClient *http.Client
}

// New returns a new Inference provider
func New(endpoint string) *Inference {
	return &Inference{
		Endpoint:   endpoint,
		httpClient: &http.Client{},
	}
}

// Describe uploads the image and returns the response body
func (i *Inference) Describe(ctx context.Context, config providers.Config) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	filename := config.Filename
	if filename == "" {
		filename = "photo.jpg"
	}
	mimeType := config.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(config.Image); err != nil {
		return "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("received non-2xx status code: %d - %s", resp.StatusCode, string(data))
	}

	return string(data), nil
}
