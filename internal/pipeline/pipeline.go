// Package pipeline orchestrates permission, capture, upload, prediction and
// catalog persistence for one photo at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/snapcatalog/internal/blobstore"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
	"github.com/lehigh-university-libraries/snapcatalog/internal/permissions"
	"github.com/lehigh-university-libraries/snapcatalog/internal/prediction"
)

var (
	// ErrNotReady is returned when an operation is not valid in the current state.
	ErrNotReady = errors.New("pipeline not ready")
	// ErrPermissionDenied is returned while camera permission is not granted.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrMediaPermissionDenied is returned by Save without media-library permission.
	ErrMediaPermissionDenied = errors.New("media library permission denied")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline closed")
)

// PermissionResolver resolves device permissions once.
type PermissionResolver interface {
	Resolve(ctx context.Context) (permissions.Result, error)
}

// Camera produces photos.
type Camera interface {
	Capture(ctx context.Context, opts models.CaptureOptions) (*models.PhotoArtifact, error)
}

// Uploader stores photo bytes under a key.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (blobstore.UploadResult, error)
}

// Predictor labels a photo. It must return usable labels even on error.
type Predictor interface {
	Predict(ctx context.Context, photo *models.PhotoArtifact) ([]models.Label, error)
}

// Catalog is the optimistic local catalog.
type Catalog interface {
	Load(ctx context.Context) error
	AppendOptimistic(entry models.CatalogEntry, blobStored bool) error
	Commit(ctx context.Context, entry models.CatalogEntry) error
}

// Library shares or saves a photo file.
type Library interface {
	Share(ctx context.Context, uri string) error
	SaveToLibrary(ctx context.Context, uri string) error
}

// Deps are the pipeline's collaborators. Library may be nil.
type Deps struct {
	Permissions PermissionResolver
	Camera      Camera
	Uploader    Uploader
	Predictor   Predictor
	Catalog     Catalog
	Library     Library
}

// Options tune a pipeline.
type Options struct {
	Capture       models.CaptureOptions
	CommitTimeout time.Duration
	Policy        Policy
	Observer      Observer
}

// Transition is reported to the Observer for every state change.
type Transition struct {
	From      Status
	To        Status
	Event     Event
	CaptureID string
}

// Observer is notified of transitions and surfaced errors, in order.
type Observer interface {
	OnTransition(Transition)
	OnError(kind ErrorKind, err error)
}

// Dismissal ends the capture UI.
type Dismissal int

const (
	Discard Dismissal = iota
	Share
	Save
)

func (d Dismissal) String() string {
	switch d {
	case Discard:
		return "discard"
	case Share:
		return "share"
	case Save:
		return "save"
	default:
		return fmt.Sprintf("dismissal(%d)", int(d))
	}
}

// session is one capture's in-flight work.
type session struct {
	id         string
	gen        uint64
	photo      *models.PhotoArtifact
	cancel     context.CancelFunc
	labels     []models.Label
	blobStored bool
}

// Pipeline is the capture-to-catalog state machine.
type Pipeline struct {
	deps Deps
	opts Options

	rootCtx    context.Context
	rootCancel context.CancelFunc
	bg         sync.WaitGroup

	mu         sync.Mutex
	status     Status
	changed    chan struct{}
	perms      permissions.Result
	cur        *session
	generation uint64
	closed     bool
	pending    []func(Observer)

	notifyMu sync.Mutex
}

// New returns an Idle pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Permissions == nil:
		return nil, errors.New("pipeline: permissions resolver is required")
	case deps.Camera == nil:
		return nil, errors.New("pipeline: camera is required")
	case deps.Uploader == nil:
		return nil, errors.New("pipeline: uploader is required")
	case deps.Predictor == nil:
		return nil, errors.New("pipeline: predictor is required")
	case deps.Catalog == nil:
		return nil, errors.New("pipeline: catalog is required")
	}
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy()
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		deps:       deps,
		opts:       opts,
		rootCtx:    ctx,
		rootCancel: cancel,
		changed:    make(chan struct{}),
	}, nil
}

// Status returns the current status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Permissions returns the resolved permissions.
func (p *Pipeline) Permissions() permissions.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perms
}

// Start resolves permissions and loads the catalog concurrently. It enters
// Ready only once both are done, so a late load never replaces entries
// appended by a capture. It returns ErrPermissionDenied when the pipeline
// ends up Blocked.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if !p.transitionLocked(EventStart, "") {
		state := p.status.State
		p.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrNotReady, state)
	}
	p.mu.Unlock()
	p.flush()

	var (
		perms   permissions.Result
		loadErr error
		group   errgroup.Group
	)
	group.Go(func() error {
		var err error
		perms, err = p.deps.Permissions.Resolve(ctx)
		return err
	})
	group.Go(func() error {
		loadErr = p.deps.Catalog.Load(ctx)
		return nil
	})

	if err := group.Wait(); err != nil {
		p.mu.Lock()
		p.transitionLocked(EventStartAborted, "")
		p.mu.Unlock()
		p.flush()
		return fmt.Errorf("failed to resolve permissions: %w", err)
	}

	if loadErr != nil {
		p.handle(KindCatalogLoad, "", loadErr)
	}

	event := EventPermissionsGranted
	if perms.Camera != models.PermissionGranted {
		event = EventPermissionsDenied
	}

	p.mu.Lock()
	p.perms = perms
	p.transitionLocked(event, "")
	p.mu.Unlock()
	p.flush()

	if event == EventPermissionsDenied {
		p.handle(KindPermissionDenied, "", ErrPermissionDenied)
		return ErrPermissionDenied
	}
	return nil
}

// Capture takes a photo and starts upload and prediction in the
// background. It returns once the photo is taken.
func (p *Pipeline) Capture(ctx context.Context) (*models.PhotoArtifact, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if !p.transitionLocked(EventCaptureRequested, "") {
		state := p.status.State
		p.mu.Unlock()
		if state == Blocked {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("%w: capture rejected in %s", ErrNotReady, state)
	}
	p.mu.Unlock()
	p.flush()

	photo, err := p.deps.Camera.Capture(ctx, p.opts.Capture)
	if err != nil {
		p.mu.Lock()
		p.transitionLocked(EventCaptureFailed, "")
		p.mu.Unlock()
		p.flush()
		p.handle(KindCapture, "", err)
		return nil, fmt.Errorf("failed to capture photo: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	sctx, cancel := context.WithCancel(p.rootCtx)
	p.generation++
	s := &session{
		id:     uuid.NewString(),
		gen:    p.generation,
		photo:  photo,
		cancel: cancel,
	}
	p.cur = s
	p.transitionLocked(EventCaptureSucceeded, s.id)
	// Registered under mu so Close either rejects this capture or waits for it.
	p.bg.Add(2)
	p.mu.Unlock()
	p.flush()

	slog.Info("Photo captured", "capture_id", s.id, "key", photo.Key(), "uri", photo.LocalURI)

	go p.upload(sctx, s)
	go p.predict(sctx, s)
	return photo, nil
}

func (p *Pipeline) upload(ctx context.Context, s *session) {
	defer p.bg.Done()

	key := s.photo.Key()
	data, err := s.photo.Bytes()
	if err == nil {
		_, err = p.deps.Uploader.Upload(ctx, key, data)
	}

	if err != nil && p.isCurrent(s) {
		p.handle(KindUpload, s.id, err)
	}
	p.settle(s, EventUploadSettled, func() {
		s.blobStored = err == nil
	})
}

func (p *Pipeline) predict(ctx context.Context, s *session) {
	defer p.bg.Done()

	labels, err := p.deps.Predictor.Predict(ctx, s.photo)
	if len(labels) == 0 {
		labels = prediction.FallbackLabels()
		if err == nil {
			err = fmt.Errorf("%w: no labels returned", prediction.ErrPrediction)
		}
	}

	if err != nil && p.isCurrent(s) {
		p.handle(KindPrediction, s.id, err)
	}
	p.settle(s, EventPredictionSettled, func() {
		s.labels = labels
	})
}

func (p *Pipeline) isCurrent(s *session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur == s && s.gen == p.generation
}

// settle records one branch's outcome. The branch that completes the join
// persists the entry. Results of a discarded capture are dropped.
func (p *Pipeline) settle(s *session, ev Event, apply func()) {
	p.mu.Lock()
	if p.cur != s || s.gen != p.generation {
		p.mu.Unlock()
		slog.Debug("Dropping result of discarded capture", "capture_id", s.id, "event", ev.String())
		return
	}
	apply()
	ok := p.transitionLocked(ev, s.id)
	persist := ok && p.status.State == Persisting
	p.mu.Unlock()
	p.flush()

	if persist {
		p.persist(s)
	}
}

func (p *Pipeline) persist(s *session) {
	entry := models.CatalogEntry{
		Key:    s.photo.Key(),
		Labels: append([]models.Label(nil), s.labels...),
	}

	appendErr := p.deps.Catalog.AppendOptimistic(entry, s.blobStored)
	if appendErr != nil {
		p.handle(KindCatalogCommit, s.id, appendErr)
	}

	p.mu.Lock()
	p.transitionLocked(EventPersisted, s.id)
	s.cancel()
	p.mu.Unlock()
	p.flush()

	slog.Info("Catalog entry appended", "capture_id", s.id, "key", entry.Key, "labels", len(entry.Labels), "blob_stored", s.blobStored)

	if appendErr != nil {
		return
	}

	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		ctx, cancel := context.WithTimeout(p.rootCtx, p.opts.CommitTimeout)
		defer cancel()
		if err := p.deps.Catalog.Commit(ctx, entry); err != nil {
			p.handle(KindCatalogCommit, s.id, err)
			return
		}
		slog.Info("Catalog entry committed", "capture_id", s.id, "key", entry.Key)
	}()
}

// Dismiss closes the capture UI. Discard is valid while Captured, which
// cancels in-flight upload and prediction, or once Committed. Share and
// Save are valid once Committed and run in the background.
func (p *Pipeline) Dismiss(d Dismissal) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	s := p.cur
	if d == Save && p.status.State == Committed && p.perms.MediaLibrary != models.PermissionGranted {
		p.mu.Unlock()
		return ErrMediaPermissionDenied
	}
	if (d == Share || d == Save) && p.deps.Library == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: no library configured for %s", ErrNotReady, d)
	}

	event := EventDismissed
	if d == Discard {
		event = EventDiscarded
	}
	id := ""
	if s != nil {
		id = s.id
	}
	if s == nil || !p.transitionLocked(event, id) {
		state := p.status.State
		p.mu.Unlock()
		return fmt.Errorf("%w: cannot %s in %s", ErrNotReady, d, state)
	}

	s.cancel()
	p.cur = nil
	p.generation++
	if d != Discard {
		p.bg.Add(1)
	}
	p.mu.Unlock()
	p.flush()

	slog.Info("Capture dismissed", "capture_id", s.id, "action", d.String())

	if d == Discard {
		return nil
	}

	uri := s.photo.LocalURI
	go func() {
		defer p.bg.Done()
		var err error
		if d == Share {
			err = p.deps.Library.Share(p.rootCtx, uri)
		} else {
			err = p.deps.Library.SaveToLibrary(p.rootCtx, uri)
		}
		if err != nil {
			slog.Warn("Photo hand-off failed", "capture_id", s.id, "action", d.String(), "error", err)
		}
	}()
	return nil
}

// Await blocks until the pipeline is in state or ctx is done.
func (p *Pipeline) Await(ctx context.Context, state State) error {
	for {
		p.mu.Lock()
		current := p.status.State
		changed := p.changed
		p.mu.Unlock()

		if current == state {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s (currently %s): %w", state, current, ctx.Err())
		}
	}
}

// Wait blocks until background uploads, predictions, commits and hand-offs
// have finished.
func (p *Pipeline) Wait() {
	p.bg.Wait()
}

// Close cancels all background work and waits for it to stop.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.rootCancel()
	p.bg.Wait()
	return nil
}

// transitionLocked applies ev. Callers must hold p.mu and call flush after
// releasing it.
func (p *Pipeline) transitionLocked(ev Event, captureID string) bool {
	to, ok := next(p.status, ev)
	if !ok {
		return false
	}
	t := Transition{From: p.status, To: to, Event: ev, CaptureID: captureID}
	p.status = to
	close(p.changed)
	p.changed = make(chan struct{})

	slog.Debug("Pipeline transition", "from", t.From.String(), "to", t.To.String(), "event", ev.String(), "capture_id", captureID)
	p.pending = append(p.pending, func(o Observer) { o.OnTransition(t) })
	return true
}

// handle applies the error policy to err.
func (p *Pipeline) handle(kind ErrorKind, captureID string, err error) {
	action := p.opts.Policy.Action(kind)
	attrs := []any{"kind", string(kind), "action", string(action), "error", err}
	if captureID != "" {
		attrs = append(attrs, "capture_id", captureID)
	}

	if action == ActionDegrade {
		slog.Warn("Degraded pipeline failure", attrs...)
		return
	}

	slog.Error("Pipeline failure", attrs...)
	p.mu.Lock()
	p.pending = append(p.pending, func(o Observer) { o.OnError(kind, err) })
	p.mu.Unlock()
	p.flush()
}

// flush delivers queued notifications in the order they were queued.
func (p *Pipeline) flush() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if p.opts.Observer == nil {
		return
	}
	for _, notify := range batch {
		notify(p.opts.Observer)
	}
}
