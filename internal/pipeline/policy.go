package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindCapture          ErrorKind = "capture_error"
	KindUpload           ErrorKind = "upload_error"
	KindPrediction       ErrorKind = "prediction_error"
	KindCatalogLoad      ErrorKind = "catalog_load_error"
	KindCatalogCommit    ErrorKind = "catalog_commit_error"
)

var kinds = []ErrorKind{
	KindPermissionDenied,
	KindCapture,
	KindUpload,
	KindPrediction,
	KindCatalogLoad,
	KindCatalogCommit,
}

// Action says what happens to an error of a given kind.
type Action string

const (
	// ActionSurface delivers the error to the Observer.
	ActionSurface Action = "surface"
	// ActionDegrade logs the error and carries on with a degraded result.
	ActionDegrade Action = "degrade"
)

// Policy maps every error kind to an action.
type Policy map[ErrorKind]Action

// DefaultPolicy surfaces permission and capture errors and degrades the rest.
func DefaultPolicy() Policy {
	return Policy{
		KindPermissionDenied: ActionSurface,
		KindCapture:          ActionSurface,
		KindUpload:           ActionDegrade,
		KindPrediction:       ActionDegrade,
		KindCatalogLoad:      ActionDegrade,
		KindCatalogCommit:    ActionDegrade,
	}
}

// ParsePolicy overlays overrides on the default policy. Kinds may be
// written as upload_error or UploadError.
func ParsePolicy(overrides map[string]string) (Policy, error) {
	policy := DefaultPolicy()
	var errs []error

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := parseKind(name)
		if !ok {
			errs = append(errs, fmt.Errorf("policy: unknown error kind %q", name))
			continue
		}
		action := Action(strings.ToLower(strings.TrimSpace(overrides[name])))
		switch action {
		case ActionSurface, ActionDegrade:
		default:
			errs = append(errs, fmt.Errorf("policy.%s: unsupported action %q", name, overrides[name]))
			continue
		}
		if action == ActionDegrade && (kind == KindPermissionDenied || kind == KindCapture) {
			errs = append(errs, fmt.Errorf("policy.%s: %s errors are always surfaced", name, kind))
			continue
		}
		policy[kind] = action
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return policy, nil
}

func parseKind(name string) (ErrorKind, bool) {
	flat := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	}
	want := flat(name)
	for _, kind := range kinds {
		if flat(string(kind)) == want {
			return kind, true
		}
	}
	return "", false
}

// Action returns the configured action for kind, degrading unknown kinds.
func (p Policy) Action(kind ErrorKind) Action {
	if action, ok := p[kind]; ok {
		return action
	}
	if kind == KindPermissionDenied || kind == KindCapture {
		return ActionSurface
	}
	return ActionDegrade
}
