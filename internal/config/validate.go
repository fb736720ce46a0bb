package config

import (
	"errors"
	"fmt"
	"strings"
)

// Permission modes.
const (
	PermissionPrompt  = "prompt"
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

var providers = map[string]struct{}{
	"inference": {},
	"ollama":    {},
	"openai":    {},
	"gemini":    {},
}

var visibilities = map[string]struct{}{
	"private": {},
	"public":  {},
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Capture.Quality < 0 || c.Capture.Quality > 1 {
		errs = append(errs, fmt.Errorf("capture.quality must be between 0 and 1, got %v", c.Capture.Quality))
	}
	if c.Prediction.Timeout <= 0 {
		errs = append(errs, errors.New("prediction.timeout must be positive"))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, errors.New("upload_timeout must be positive"))
	}
	if c.CommitTimeout <= 0 {
		errs = append(errs, errors.New("commit_timeout must be positive"))
	}
	if _, ok := providers[c.Prediction.Provider]; !ok {
		errs = append(errs, fmt.Errorf("prediction.provider: unsupported value %q", c.Prediction.Provider))
	}
	if c.Prediction.Provider == "inference" && strings.TrimSpace(c.Prediction.Endpoint) == "" {
		errs = append(errs, errors.New("prediction.endpoint is required for the inference provider"))
	}
	if _, ok := visibilities[c.Client.Visibility]; !ok {
		errs = append(errs, fmt.Errorf("client.visibility: unsupported value %q", c.Client.Visibility))
	}
	if strings.TrimSpace(c.Client.Owner) == "" {
		errs = append(errs, errors.New("client.owner is required"))
	}
	for name, mode := range map[string]string{
		"permissions.camera":        c.Permissions.Camera,
		"permissions.media_library": c.Permissions.MediaLibrary,
	} {
		switch mode {
		case PermissionPrompt, PermissionGranted, PermissionDenied:
		default:
			errs = append(errs, fmt.Errorf("%s: unsupported value %q", name, mode))
		}
	}
	for kind, action := range c.Policy {
		switch strings.ToLower(strings.TrimSpace(action)) {
		case "surface", "degrade":
		default:
			errs = append(errs, fmt.Errorf("policy.%s: unsupported action %q", kind, action))
		}
	}

	return errors.Join(errs...)
}
