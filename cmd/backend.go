package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/snapcatalog/internal/blobstore"
	"github.com/lehigh-university-libraries/snapcatalog/internal/catalog"
	"github.com/lehigh-university-libraries/snapcatalog/internal/catalogdb"
	"github.com/lehigh-university-libraries/snapcatalog/internal/storage"
)

// openCatalog returns the catalog API client when a URL is configured and
// the local database otherwise.
func (a *appContext) openCatalog() (storage.Remote, func() error, error) {
	if a.cfg.Client.CatalogURL != "" {
		return catalog.NewClient(a.cfg.Client.CatalogURL), func() error { return nil }, nil
	}
	db, err := catalogdb.Open(a.cfg.Server.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return db, db.Close, nil
}

// openBlobStore mirrors openCatalog for blobs.
func (a *appContext) openBlobStore() (blobstore.Store, error) {
	if a.cfg.Client.BlobURL != "" {
		return blobstore.NewHTTPStore(a.cfg.Client.BlobURL), nil
	}
	return blobstore.NewFileStore(a.cfg.Server.BlobDir)
}

func (a *appContext) newUploader(store blobstore.Store) *blobstore.Uploader {
	uploader := blobstore.NewUploader(store, a.cfg.Client.Owner, a.cfg.Client.Visibility)
	uploader.Timeout = a.cfg.UploadTimeout
	return uploader
}

// loadCatalog loads the catalog into a local projection. With a local blob
// directory, entries whose blob is absent are flagged.
func (a *appContext) loadCatalog(ctx context.Context) ([]storage.Item, error) {
	remote, closeRemote, err := a.openCatalog()
	if err != nil {
		return nil, err
	}
	defer closeRemote()

	store := storage.New(remote)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	items := store.Snapshot()

	if a.cfg.Client.BlobURL == "" {
		blobs, err := blobstore.NewFileStore(a.cfg.Server.BlobDir)
		if err != nil {
			return nil, err
		}
		uploader := a.newUploader(blobs)
		for i := range items {
			_, _, err := blobs.Get(uploader.RemoteKey(items[i].Entry.Key))
			if errors.Is(err, blobstore.ErrNotFound) {
				items[i].BlobStored = false
			}
		}
	}
	return items, nil
}
