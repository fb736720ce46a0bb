package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

var (
	// ErrAlreadyInProgress is returned when a capture is requested while another is pending.
	ErrAlreadyInProgress = errors.New("capture already in progress")
	// ErrPermissionNotGranted is returned when camera permission is not granted.
	ErrPermissionNotGranted = errors.New("camera permission not granted")
	// ErrDevice wraps failures reported by the capture device.
	ErrDevice = errors.New("capture device error")
)

// Shot is what a device returns for one picture.
type Shot struct {
	URI    string
	Base64 string
}

// Device is the capture subsystem.
type Device interface {
	TakePicture(ctx context.Context, quality float64, includeBase64 bool) (Shot, error)
}

// PermissionFunc reports the current camera permission.
type PermissionFunc func() models.PermissionState

// Controller drives a Device, allowing one capture in flight at a time.
type Controller struct {
	device     Device
	permission PermissionFunc
	now        func() time.Time

	mu       sync.Mutex
	inFlight bool
	last     time.Time
}

// NewController returns a controller for device. permission is consulted on
// every capture.
func NewController(device Device, permission PermissionFunc) *Controller {
	return &Controller{
		device:     device,
		permission: permission,
		now:        time.Now,
	}
}

// Capture takes one picture. A second call while one is pending fails fast
// with ErrAlreadyInProgress.
func (c *Controller) Capture(ctx context.Context, opts models.CaptureOptions) (*models.PhotoArtifact, error) {
	if opts.Quality < 0 || opts.Quality > 1 {
		return nil, fmt.Errorf("invalid capture quality %v: must be between 0 and 1", opts.Quality)
	}
	if c.permission == nil || c.permission() != models.PermissionGranted {
		return nil, ErrPermissionNotGranted
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	shot, err := c.device.TakePicture(ctx, opts.Quality, opts.IncludeRawBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	var raw []byte
	if opts.IncludeRawBytes && shot.Base64 != "" {
		raw, err = base64.StdEncoding.DecodeString(shot.Base64)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode picture: %w", ErrDevice, err)
		}
	}

	photo := models.NewPhotoArtifact(shot.URI, raw, c.stamp())
	slog.Debug("Picture taken", "uri", shot.URI, "key", photo.Key(), "raw_bytes", len(raw))
	return photo, nil
}

// stamp returns a capture time strictly after the previous one so keys
// derived from it never collide within a process.
func (c *Controller) stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
