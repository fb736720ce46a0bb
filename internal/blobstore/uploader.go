package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"
)

const lockRetryDelay = 50 * time.Millisecond

// ErrUpload wraps every upload failure, including timeouts.
var ErrUpload = errors.New("upload failed")

// UploadResult identifies where the blob landed.
type UploadResult struct {
	RemoteKey string
}

// Uploader pushes photo bytes to a Store under an owner-scoped key.
// It does not retry and does not deduplicate concurrent puts of one key.
type Uploader struct {
	Store      Store
	Owner      string
	Visibility string
	Timeout    time.Duration
}

// NewUploader returns an uploader with the default 30s timeout.
func NewUploader(store Store, owner, visibility string) *Uploader {
	return &Uploader{
		Store:      store,
		Owner:      owner,
		Visibility: visibility,
		Timeout:    30 * time.Second,
	}
}

// RemoteKey scopes key by visibility and owner.
func (u *Uploader) RemoteKey(key string) string {
	return path.Join(u.visibility(), u.Owner, key)
}

// Upload stores data as a JPEG.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte) (UploadResult, error) {
	if key == "" {
		return UploadResult{}, fmt.Errorf("%w: empty key", ErrUpload)
	}
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	remoteKey := u.RemoteKey(key)
	start := time.Now()
	err := u.Store.Put(ctx, remoteKey, data, PutOptions{
		Visibility:  u.visibility(),
		ContentType: "image/jpeg",
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %s: %w", ErrUpload, remoteKey, err)
	}

	slog.Info("Photo uploaded", "key", key, "remote_key", remoteKey, "size", len(data), "duration", time.Since(start))
	return UploadResult{RemoteKey: remoteKey}, nil
}

func (u *Uploader) visibility() string {
	if u.Visibility == "" {
		return VisibilityPrivate
	}
	return u.Visibility
}
