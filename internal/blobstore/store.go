package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Visibility values accepted by stores.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("blob not found")

// PutOptions describes how a blob is stored.
type PutOptions struct {
	Visibility  string `json:"visibility"`
	ContentType string `json:"content_type"`
}

// Store is a key/value blob store.
type Store interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
}

// FileStore keeps blobs under a directory. Writes are atomic and serialized
// across processes with a lock file.
type FileStore struct {
	root string
	// flock only excludes other processes; mu excludes other goroutines.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FileStore{
		root: root,
		lock: flock.New(filepath.Join(root, ".snapcatalog.lock")),
	}, nil
}

// Put writes data to key, overwriting any previous blob.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	target, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock blob store: %w", err)
	}
	if !locked {
		return errors.New("failed to lock blob store")
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := writeAtomic(target, data); err != nil {
		return err
	}

	meta, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal blob metadata: %w", err)
	}
	return writeAtomic(target+metaSuffix, meta)
}

// Get returns the blob stored at key with its metadata.
func (s *FileStore) Get(key string) ([]byte, PutOptions, error) {
	target, err := s.pathFor(key)
	if err != nil {
		return nil, PutOptions{}, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, PutOptions{}, ErrNotFound
		}
		return nil, PutOptions{}, fmt.Errorf("failed to read blob: %w", err)
	}

	var opts PutOptions
	if meta, err := os.ReadFile(target + metaSuffix); err == nil {
		_ = json.Unmarshal(meta, &opts)
	}
	return data, opts, nil
}

const metaSuffix = ".meta.json"

// pathFor maps a slash-separated key into root, refusing escapes.
func (s *FileStore) pathFor(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move blob into place: %w", err)
	}
	return nil
}
