package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
)

func TestDescribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected bearer token, got %s", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if req["model"] != "gpt-4o" {
			t.Errorf("Expected model gpt-4o, got %v", req["model"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"name\":\"taco\",\"calories\":170}"}}]}`))
	}))
	defer server.Close()

	o := New()
	o.URL = server.URL
	o.APIKey = "sk-test"
	out, err := o.Describe(context.Background(), providers.Config{Model: "gpt-4o", Image: []byte("img")})
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
		return
	}
	if out != `{"name":"taco","calories":170}` {
		t.Errorf("Unexpected content %s", out)
	}
}

func TestDescribeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	o := New()
	o.URL = server.URL
	o.APIKey = ""
	if _, err := o.Describe(context.Background(), providers.Config{}); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("Expected missing key error, got %v", err)
	}

	o.APIKey = "sk-test"
	if _, err := o.Describe(context.Background(), providers.Config{}); err == nil {
		t.Error("Expected error for empty choices")
	}
}
