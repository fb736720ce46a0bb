package inference

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
)

func TestDescribeSendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected multipart field file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "jpeg-bytes" {
			t.Errorf("Expected image bytes, got %q", data)
		}
		if header.Filename != "k.jpg" {
			t.Errorf("Expected filename k.jpg, got %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Expected image/jpeg part, got %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"pizza","calories":285}`))
	}))
	defer server.Close()

	body, err := New(server.URL).Describe(context.Background(), providers.Config{
		Image:    []byte("jpeg-bytes"),
		Filename: "k.jpg",
	})
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
		return
	}
	if body != `{"name":"pizza","calories":285}` {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestDescribeNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Describe(context.Background(), providers.Config{Image: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected 503 error, got %v", err)
	}
}
