package permissions

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/snapcatalog/internal/config"
	"github.com/lehigh-university-libraries/snapcatalog/internal/logging"
	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

// Static answers from a fixed table, e.g. the permissions config section.
type Static map[models.Capability]models.PermissionState

// Request implements Requester.
func (s Static) Request(_ context.Context, capability models.Capability) (models.PermissionState, error) {
	state, ok := s[capability]
	if !ok {
		return models.PermissionDenied, nil
	}
	return state, nil
}

// Prompt asks the user on a terminal. Input that is not a terminal denies.
type Prompt struct {
	In  io.Reader
	Out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// Request implements Requester. Prompts are serialized so the two
// concurrent requests from the gate do not interleave on the terminal.
func (p *Prompt) Request(ctx context.Context, capability models.Capability) (models.PermissionState, error) {
	if !logging.IsTerminal(p.In) {
		return models.PermissionDenied, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return models.PermissionUnknown, err
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}

	fmt.Fprintf(p.Out, "Allow snapcatalog to access the %s? [y/N] ", strings.ReplaceAll(string(capability), "_", " "))
	answer, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return models.PermissionUnknown, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return models.PermissionGranted, nil
	default:
		return models.PermissionDenied, nil
	}
}

// FromConfig builds a requester for the permissions config section. Modes
// set to prompt fall through to the terminal.
func FromConfig(cfg config.Permissions, in io.Reader, out io.Writer) Requester {
	return &configRequester{
		modes: map[models.Capability]string{
			models.CapabilityCamera:       cfg.Camera,
			models.CapabilityMediaLibrary: cfg.MediaLibrary,
		},
		prompt: &Prompt{In: in, Out: out},
	}
}

type configRequester struct {
	modes  map[models.Capability]string
	prompt *Prompt
}

func (r *configRequester) Request(ctx context.Context, capability models.Capability) (models.PermissionState, error) {
	switch r.modes[capability] {
	case config.PermissionGranted:
		return models.PermissionGranted, nil
	case config.PermissionPrompt:
		return r.prompt.Request(ctx, capability)
	default:
		return models.PermissionDenied, nil
	}
}
