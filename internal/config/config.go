package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "snapcatalog.yaml"

// Server configures `snapcatalog serve`.
type Server struct {
	Addr    string `yaml:"addr"`
	DBPath  string `yaml:"db_path"`
	BlobDir string `yaml:"blob_dir"`
}

// Client configures how the capture pipeline reaches the catalog and blob store.
// Empty URLs mean the local database and blob directory are used directly.
type Client struct {
	CatalogURL string `yaml:"catalog_url"`
	BlobURL    string `yaml:"blob_url"`
	Owner      string `yaml:"owner"`
	Visibility string `yaml:"visibility"`
}

// Capture configures the capture device.
type Capture struct {
	Quality         float64 `yaml:"quality"`
	IncludeRawBytes bool    `yaml:"include_raw_bytes"`
	SnapshotURL     string  `yaml:"snapshot_url"`
	SpoolDir        string  `yaml:"spool_dir"`
}

// Permissions configures how each capability is resolved: prompt, granted or denied.
type Permissions struct {
	Camera       string `yaml:"camera"`
	MediaLibrary string `yaml:"media_library"`
}

// Prediction configures the label backend.
type Prediction struct {
	Provider string        `yaml:"provider"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Library configures where shared and saved photos are copied.
type Library struct {
	SaveDir  string `yaml:"save_dir"`
	ShareDir string `yaml:"share_dir"`
}

// Logging configures the default slog logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full snapcatalog configuration.
type Config struct {
	Server        Server            `yaml:"server"`
	Client        Client            `yaml:"client"`
	Capture       Capture           `yaml:"capture"`
	Permissions   Permissions       `yaml:"permissions"`
	Prediction    Prediction        `yaml:"prediction"`
	UploadTimeout time.Duration     `yaml:"upload_timeout"`
	CommitTimeout time.Duration     `yaml:"commit_timeout"`
	Library       Library           `yaml:"library"`
	Policy        map[string]string `yaml:"policy"`
	Logging       Logging           `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:    ":8888",
			DBPath:  "snapcatalog.db",
			BlobDir: "blobs",
		},
		Client: Client{
			Owner:      "default",
			Visibility: "private",
		},
		Capture: Capture{
			Quality:         0.5,
			IncludeRawBytes: true,
			SpoolDir:        "spool",
		},
		Permissions: Permissions{
			Camera:       PermissionPrompt,
			MediaLibrary: PermissionPrompt,
		},
		Prediction: Prediction{
			Provider: "inference",
			Endpoint: "http://localhost:8000/predict",
			Timeout:  30 * time.Second,
		},
		UploadTimeout: 30 * time.Second,
		CommitTimeout: 30 * time.Second,
		Library: Library{
			SaveDir:  "library",
			ShareDir: "shared",
		},
		Policy: map[string]string{},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and validates.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Client.CatalogURL, "SNAPCATALOG_CATALOG_URL")
	setFromEnv(&c.Client.BlobURL, "SNAPCATALOG_BLOB_URL")
	setFromEnv(&c.Client.Owner, "SNAPCATALOG_OWNER")
	setFromEnv(&c.Prediction.Provider, "SNAPCATALOG_PREDICTION_PROVIDER")
	setFromEnv(&c.Prediction.Endpoint, "SNAPCATALOG_PREDICTION_ENDPOINT")
	setFromEnv(&c.Logging.Level, "SNAPCATALOG_LOG_LEVEL")
}

func setFromEnv(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func (c *Config) normalize() {
	c.Prediction.Provider = strings.ToLower(strings.TrimSpace(c.Prediction.Provider))
	c.Permissions.Camera = strings.ToLower(strings.TrimSpace(c.Permissions.Camera))
	c.Permissions.MediaLibrary = strings.ToLower(strings.TrimSpace(c.Permissions.MediaLibrary))
	c.Client.Visibility = strings.ToLower(strings.TrimSpace(c.Client.Visibility))
	c.Client.CatalogURL = strings.TrimRight(c.Client.CatalogURL, "/")
	c.Client.BlobURL = strings.TrimRight(c.Client.BlobURL, "/")
	if c.Policy == nil {
		c.Policy = map[string]string{}
	}
}
