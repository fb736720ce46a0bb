package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// minSnapshotBytes rejects placeholder frames some cameras return while warming up.
const minSnapshotBytes = 1000

// FileDevice "captures" an existing image file, e.g. one handed to the CLI.
type FileDevice struct {
	Path string
}

// TakePicture implements Device.
func (d *FileDevice) TakePicture(ctx context.Context, _ float64, includeBase64 bool) (Shot, error) {
	if err := ctx.Err(); err != nil {
		return Shot{}, err
	}
	info, err := os.Stat(d.Path)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return Shot{}, fmt.Errorf("%s is a directory", d.Path)
	}

	shot := Shot{URI: d.Path}
	if includeBase64 {
		data, err := os.ReadFile(d.Path)
		if err != nil {
			return Shot{}, fmt.Errorf("failed to read image: %w", err)
		}
		shot.Base64 = base64.StdEncoding.EncodeToString(data)
	}
	return shot, nil
}

// SnapshotDevice grabs a still from a network camera's snapshot endpoint
// and spools it to disk.
type SnapshotDevice struct {
	URL        string
	SpoolDir   string
	HTTPClient *http.Client
}

// NewSnapshotDevice creates a snapshot device with a bounded HTTP client.
func NewSnapshotDevice(url, spoolDir string) *SnapshotDevice {
	return &SnapshotDevice{
		URL:      url,
		SpoolDir: spoolDir,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TakePicture implements Device. quality is forwarded as a query hint
// that cameras are free to ignore.
func (d *SnapshotDevice) TakePicture(ctx context.Context, quality float64, includeBase64 bool) (Shot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to create snapshot request: %w", err)
	}
	q := req.URL.Query()
	q.Set("quality", fmt.Sprintf("%d", int(quality*100)))
	req.URL.RawQuery = q.Encode()

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Shot{}, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return Shot{}, fmt.Errorf("failed to read snapshot data: %w", err)
	}
	if len(imageData) < minSnapshotBytes {
		return Shot{}, fmt.Errorf("snapshot too small (likely placeholder), size: %d bytes", len(imageData))
	}

	if err := os.MkdirAll(d.SpoolDir, 0755); err != nil {
		return Shot{}, fmt.Errorf("failed to create spool directory: %w", err)
	}
	path := filepath.Join(d.SpoolDir, fmt.Sprintf("snapshot-%d.jpg", time.Now().UnixNano()))
	if err := os.WriteFile(path, imageData, 0644); err != nil {
		return Shot{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	slog.Debug("Snapshot spooled", "path", path, "size", len(imageData))

	shot := Shot{URI: path}
	if includeBase64 {
		shot.Base64 = base64.StdEncoding.EncodeToString(imageData)
	}
	return shot, nil
}
