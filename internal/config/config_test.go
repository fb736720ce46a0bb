package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Capture.Quality != 0.5 {
		t.Errorf("Expected default quality 0.5, got %v", cfg.Capture.Quality)
	}
	if cfg.Prediction.Timeout != 30*time.Second {
		t.Errorf("Expected default prediction timeout 30s, got %v", cfg.Prediction.Timeout)
	}
	if cfg.Client.Visibility != "private" {
		t.Errorf("Expected private visibility, got %s", cfg.Client.Visibility)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapcatalog.yaml")
	content := `
client:
  catalog_url: http://catalog.local/
  owner: alice
prediction:
  provider: Ollama
  model: llava
  timeout: 5s
upload_timeout: 10s
policy:
  upload_error: surface
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Client.CatalogURL != "http://catalog.local" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.Client.CatalogURL)
	}
	if cfg.Client.Owner != "alice" {
		t.Errorf("Expected owner alice, got %s", cfg.Client.Owner)
	}
	if cfg.Prediction.Provider != "ollama" {
		t.Errorf("Expected provider ollama, got %s", cfg.Prediction.Provider)
	}
	if cfg.Prediction.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Prediction.Timeout)
	}
	if cfg.UploadTimeout != 10*time.Second {
		t.Errorf("Expected 10s upload timeout, got %v", cfg.UploadTimeout)
	}
	if cfg.Policy["upload_error"] != "surface" {
		t.Errorf("Expected upload_error policy surface, got %q", cfg.Policy["upload_error"])
	}
	// untouched sections keep defaults
	if cfg.Server.Addr != ":8888" {
		t.Errorf("Expected default addr, got %s", cfg.Server.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SNAPCATALOG_OWNER", "bob")
	t.Setenv("SNAPCATALOG_PREDICTION_PROVIDER", "gemini")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Client.Owner != "bob" {
		t.Errorf("Expected owner bob, got %s", cfg.Client.Owner)
	}
	if cfg.Prediction.Provider != "gemini" {
		t.Errorf("Expected provider gemini, got %s", cfg.Prediction.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "quality out of range",
			mutate:  func(c *Config) { c.Capture.Quality = 1.5 },
			wantErr: "capture.quality",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Prediction.Provider = "clippy" },
			wantErr: "prediction.provider",
		},
		{
			name:    "inference needs endpoint",
			mutate:  func(c *Config) { c.Prediction.Endpoint = "" },
			wantErr: "prediction.endpoint",
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.UploadTimeout = 0 },
			wantErr: "upload_timeout",
		},
		{
			name:    "bad permission mode",
			mutate:  func(c *Config) { c.Permissions.Camera = "maybe" },
			wantErr: "permissions.camera",
		},
		{
			name:    "bad visibility",
			mutate:  func(c *Config) { c.Client.Visibility = "protected" },
			wantErr: "client.visibility",
		},
		{
			name:    "bad policy action",
			mutate:  func(c *Config) { c.Policy["upload_error"] = "retry" },
			wantErr: "policy.upload_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
