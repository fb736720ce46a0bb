package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

var (
	ErrLoad         = errors.New("catalog load failed")
	ErrCommit       = errors.New("catalog commit failed")
	ErrDuplicateKey = errors.New("duplicate catalog key")
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// Remote is the system of record the local projection converges to.
type Remote interface {
	ListImages(ctx context.Context) ([]models.CatalogEntry, error)
	CreateImage(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error)
}

// SyncState tracks whether an item has reached the remote catalog.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// Item is one entry of the local projection.
type Item struct {
	Entry      models.CatalogEntry `json:"entry" yaml:"entry"`
	Sync       SyncState           `json:"sync" yaml:"sync"`
	BlobStored bool                `json:"blob_stored" yaml:"blob_stored"`
}

// CatalogStore is the optimistic local projection of the remote catalog.
// All writes go through its methods and are serialized.
type CatalogStore struct {
	remote Remote

	mu    sync.RWMutex
	items []Item
	index map[string]int

	subMu       sync.Mutex
	subscribers []chan []Item
}

func New(remote Remote) *CatalogStore {
	return &CatalogStore{
		remote: remote,
		index:  make(map[string]int),
	}
}

// Load replaces the projection with the remote catalog. On error the
// projection is left unchanged.
func (s *CatalogStore) Load(ctx context.Context) error {
	entries, err := s.remote.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	items := make([]Item, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		if _, dup := index[entry.Key]; dup {
			slog.Warn("Remote catalog contains duplicate key", "key", entry.Key)
			continue
		}
		index[entry.Key] = len(items)
		items = append(items, Item{Entry: entry.Clone(), Sync: SyncSynced, BlobStored: true})
	}

	s.mu.Lock()
	s.items = items
	s.index = index
	s.mu.Unlock()

	slog.Debug("Catalog loaded", "entries", len(items))
	s.publish()
	return nil
}

// AppendOptimistic appends entry at the tail before remote confirmation.
func (s *CatalogStore) AppendOptimistic(entry models.CatalogEntry, blobStored bool) error {
	if strings.TrimSpace(entry.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidEntry)
	}
	if len(entry.Labels) == 0 {
		return fmt.Errorf("%w: labels are required", ErrInvalidEntry)
	}

	s.mu.Lock()
	if _, exists := s.index[entry.Key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateKey, entry.Key)
	}
	s.index[entry.Key] = len(s.items)
	s.items = append(s.items, Item{Entry: entry.Clone(), Sync: SyncPending, BlobStored: blobStored})
	s.mu.Unlock()

	s.publish()
	return nil
}

// Commit creates entry remotely. A failure marks the item failed but never
// removes it from the projection.
func (s *CatalogStore) Commit(ctx context.Context, entry models.CatalogEntry) error {
	created, err := s.remote.CreateImage(ctx, entry.Clone())
	if err != nil {
		s.setSync(entry.Key, SyncFailed, "")
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	s.setSync(entry.Key, SyncSynced, created.ID)
	return nil
}

func (s *CatalogStore) setSync(key string, state SyncState, id string) {
	s.mu.Lock()
	i, ok := s.index[key]
	if ok {
		s.items[i].Sync = state
		if id != "" {
			s.items[i].Entry.ID = id
		}
	}
	s.mu.Unlock()

	if ok {
		s.publish()
	}
}

// Snapshot returns a copy of the projection in display order.
func (s *CatalogStore) Snapshot() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *CatalogStore) snapshotLocked() []Item {
	out := make([]Item, len(s.items))
	for i, item := range s.items {
		item.Entry = item.Entry.Clone()
		out[i] = item
	}
	return out
}

// Entries returns just the catalog entries in display order.
func (s *CatalogStore) Entries() []models.CatalogEntry {
	items := s.Snapshot()
	entries := make([]models.CatalogEntry, len(items))
	for i, item := range items {
		entries[i] = item.Entry
	}
	return entries
}

// Get returns the item stored under key.
func (s *CatalogStore) Get(key string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return Item{}, false
	}
	item := s.items[i]
	item.Entry = item.Entry.Clone()
	return item, true
}

func (s *CatalogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Subscribe returns a channel that receives a snapshot after every
// mutation. Slow readers only see the latest snapshot. The returned func
// unsubscribes and closes the channel.
func (s *CatalogStore) Subscribe() (<-chan []Item, func()) {
	ch := make(chan []Item, 1)

	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subscribers {
				if sub == ch {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (s *CatalogStore) publish() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.subscribers) == 0 {
		return
	}

	snapshot := s.Snapshot()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
