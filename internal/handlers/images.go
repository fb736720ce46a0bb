package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/snapcatalog/internal/catalog"
	"github.com/lehigh-university-libraries/snapcatalog/internal/catalogdb"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

func (h *Handler) HandleListImages(w http.ResponseWriter, r *http.Request) {
	entries, err := h.images.ListImages(r.Context())
	if err != nil {
		writeError(w, "Failed to list images: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, catalog.ListResponse{Items: entries})
}

func (h *Handler) HandleCreateImage(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Key    string         `json:"key"`
		Labels []models.Label `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(request.Key) == "" {
		writeError(w, "key is required", http.StatusBadRequest)
		return
	}
	if len(request.Labels) == 0 {
		writeError(w, "labels are required", http.StatusBadRequest)
		return
	}

	created, err := h.images.CreateImage(r.Context(), models.CatalogEntry{Key: request.Key, Labels: request.Labels})
	if err != nil {
		if errors.Is(err, catalogdb.ErrDuplicateKey) {
			writeError(w, "Image already exists: "+request.Key, http.StatusConflict)
			return
		}
		writeError(w, "Failed to create image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Catalog entry created", "key", created.Key, "id", created.ID, "labels", len(created.Labels))
	writeJSON(w, http.StatusCreated, created)
}
