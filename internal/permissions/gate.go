package permissions

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"golang.org/x/sync/errgroup"
)

// Requester asks the device permission subsystem for one capability.
type Requester interface {
	Request(ctx context.Context, capability models.Capability) (models.PermissionState, error)
}

// Result holds the resolved state of every capability.
type Result struct {
	Camera       models.PermissionState
	MediaLibrary models.PermissionState
}

// Gate resolves permissions once per process. States never revert.
type Gate struct {
	requester Requester

	mu       sync.Mutex
	resolved bool
	result   Result
}

// NewGate returns a gate backed by requester.
func NewGate(requester Requester) *Gate {
	return &Gate{requester: requester}
}

// Resolve requests camera and media-library permission concurrently and
// caches the outcome. A failed request resolves as denied.
func (g *Gate) Resolve(ctx context.Context) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved {
		return g.result, nil
	}

	var result Result
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result.Camera = g.request(gctx, models.CapabilityCamera)
		return nil
	})
	group.Go(func() error {
		result.MediaLibrary = g.request(gctx, models.CapabilityMediaLibrary)
		return nil
	})
	_ = group.Wait()

	// A cancelled resolve is retried on the next call.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	g.result = result
	g.resolved = true
	slog.Info("Permissions resolved", "camera", result.Camera.String(), "media_library", result.MediaLibrary.String())
	return result, nil
}

// Current returns the cached result; capabilities are Unknown until Resolve completes.
func (g *Gate) Current() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

func (g *Gate) request(ctx context.Context, capability models.Capability) models.PermissionState {
	state, err := g.requester.Request(ctx, capability)
	if err != nil {
		slog.Warn("Permission request failed", "capability", capability, "error", err)
		return models.PermissionDenied
	}
	if state != models.PermissionGranted {
		return models.PermissionDenied
	}
	return models.PermissionGranted
}
