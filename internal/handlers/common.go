package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lehigh-university-libraries/snapcatalog/internal/blobstore"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

const maxBlobBytes = 32 << 20

// ImageStore is the catalog system of record.
type ImageStore interface {
	ListImages(ctx context.Context) ([]models.CatalogEntry, error)
	CreateImage(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error)
}

// BlobStore stores and serves photo bytes.
type BlobStore interface {
	blobstore.Store
	Get(key string) ([]byte, blobstore.PutOptions, error)
}

type Handler struct {
	images ImageStore
	blobs  BlobStore
}

func New(images ImageStore, blobs BlobStore) *Handler {
	return &Handler{
		images: images,
		blobs:  blobs,
	}
}

// NewRouter wires every route served by `snapcatalog serve`.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/images", h.HandleListImages).Methods(http.MethodGet)
	r.HandleFunc("/api/images", h.HandleCreateImage).Methods(http.MethodPost)
	r.HandleFunc("/api/blobs/{key:.+}", h.HandlePutBlob).Methods(http.MethodPut)
	r.HandleFunc("/api/blobs/{key:.+}", h.HandleGetBlob).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	r.Use(logRequests)
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// Response helpers
func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}
