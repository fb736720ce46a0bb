package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

func TestListImages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected []string
		wantErr  bool
	}{
		{
			name:     "string labels from older entries",
			status:   http.StatusOK,
			body:     `{"items":[{"key":"a","labels":["x"]},{"key":"b","labels":["y"]}]}`,
			expected: []string{"a", "b"},
		},
		{
			name:     "empty catalog",
			status:   http.StatusOK,
			body:     `{"items":null}`,
			expected: []string{},
		},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: true},
		{name: "malformed", status: http.StatusOK, body: "{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/images" {
					t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			entries, err := NewClient(server.URL + "/").ListImages(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(entries) != len(tt.expected) {
				t.Fatalf("Expected %d entries, got %d", len(tt.expected), len(entries))
			}
			for i, key := range tt.expected {
				if entries[i].Key != key {
					t.Errorf("Expected key %s at %d, got %s", key, i, entries[i].Key)
				}
			}
			if len(entries) > 0 && entries[0].Labels[0].Name != "x" {
				t.Errorf("Expected label x, got %+v", entries[0].Labels)
			}
		})
	}
}

func TestCreateImage(t *testing.T) {
	var received struct {
		Key    string         `json:"key"`
		Labels []models.Label `json:"labels"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode body: %v", err)
			return
		}
		if received.Key == "dup" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.CatalogEntry{ID: "id-1", Key: received.Key, Labels: received.Labels})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	entry := models.CatalogEntry{Key: "k1", Labels: []models.Label{{Name: "pizza", Value: 285}}}
	created, err := client.CreateImage(context.Background(), entry)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if created.ID != "id-1" || created.Key != "k1" {
		t.Errorf("Unexpected created entry %+v", created)
	}
	if received.Labels[0] != (models.Label{Name: "pizza", Value: 285}) {
		t.Errorf("Unexpected payload labels %+v", received.Labels)
	}

	_, err = client.CreateImage(context.Background(), models.CatalogEntry{Key: "dup", Labels: entry.Labels})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
}

func TestCreateImageTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).CreateImage(context.Background(), models.CatalogEntry{Key: "k"})
	if err == nil {
		t.Error("Expected transport error, got nil")
	}
}
