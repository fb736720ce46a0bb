// Package share hands captured photos to the user's library or a share
// outbox directory.
package share

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Library copies photos into a save directory (the media library) or a
// share directory picked up by whatever the user shares with.
type Library struct {
	SaveDir  string
	ShareDir string
}

func New(saveDir, shareDir string) *Library {
	return &Library{SaveDir: saveDir, ShareDir: shareDir}
}

// Share places a copy of the file at uri in the share directory.
func (l *Library) Share(ctx context.Context, uri string) error {
	dst, err := copyInto(ctx, l.ShareDir, uri)
	if err != nil {
		return fmt.Errorf("failed to share %s: %w", uri, err)
	}
	slog.Info("Photo shared", "uri", uri, "path", dst)
	return nil
}

// SaveToLibrary places a copy of the file at uri in the save directory.
func (l *Library) SaveToLibrary(ctx context.Context, uri string) error {
	dst, err := copyInto(ctx, l.SaveDir, uri)
	if err != nil {
		return fmt.Errorf("failed to save %s to library: %w", uri, err)
	}
	slog.Info("Photo saved to library", "uri", uri, "path", dst)
	return nil
}

func copyInto(ctx context.Context, dir, uri string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("destination directory not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	src, err := os.Open(uri)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := filepath.Join(dir, filepath.Base(uri))
	tmp, err := os.CreateTemp(dir, ".share-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("failed to move into place: %w", err)
	}
	return dst, nil
}
