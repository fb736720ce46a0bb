package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lehigh-university-libraries/snapcatalog/internal/blobstore"
)

func (h *Handler) HandlePutBlob(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	visibility := r.Header.Get(blobstore.VisibilityHeader)
	if visibility == "" {
		visibility = blobstore.VisibilityPrivate
	}
	if visibility != blobstore.VisibilityPrivate && visibility != blobstore.VisibilityPublic {
		writeError(w, "Invalid visibility: "+visibility, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBlobBytes))
	if err != nil {
		writeError(w, "Failed to read blob: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		writeError(w, "Empty blob", http.StatusBadRequest)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	err = h.blobs.Put(r.Context(), key, data, blobstore.PutOptions{
		Visibility:  visibility,
		ContentType: contentType,
	})
	if err != nil {
		writeError(w, "Failed to store blob: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Blob stored", "key", key, "size", len(data), "visibility", visibility)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetBlob(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	data, opts, err := h.blobs.Get(key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			writeError(w, "Blob not found", http.StatusNotFound)
			return
		}
		writeError(w, "Failed to read blob: "+err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if opts.Visibility != "" {
		w.Header().Set(blobstore.VisibilityHeader, opts.Visibility)
	}
	if _, err := w.Write(data); err != nil {
		slog.Error("Unable to write blob", "key", key, "err", err)
	}
}
