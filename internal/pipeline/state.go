package pipeline

import "fmt"

// State is the pipeline's top-level state.
type State int

const (
	Idle State = iota
	PermissionPending
	Blocked
	Ready
	Capturing
	Captured
	Persisting
	Committed
)

var stateNames = map[State]string{
	Idle:              "idle",
	PermissionPending: "permission_pending",
	Blocked:           "blocked",
	Ready:             "ready",
	Capturing:         "capturing",
	Captured:          "captured",
	Persisting:        "persisting",
	Committed:         "committed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the full pipeline status. Uploading and Predicting are the two
// concurrent sub-states of Captured.
type Status struct {
	State      State
	Uploading  bool
	Predicting bool
}

func (s Status) String() string {
	if s.State != Captured {
		return s.State.String()
	}
	return fmt.Sprintf("captured(uploading=%t,predicting=%t)", s.Uploading, s.Predicting)
}

// Event drives a transition.
type Event int

const (
	EventStart Event = iota
	EventStartAborted
	EventPermissionsGranted
	EventPermissionsDenied
	EventCaptureRequested
	EventCaptureSucceeded
	EventCaptureFailed
	EventUploadSettled
	EventPredictionSettled
	EventPersisted
	EventDiscarded
	EventDismissed
)

var eventNames = map[Event]string{
	EventStart:              "start",
	EventStartAborted:       "start_aborted",
	EventPermissionsGranted: "permissions_granted",
	EventPermissionsDenied:  "permissions_denied",
	EventCaptureRequested:   "capture_requested",
	EventCaptureSucceeded:   "capture_succeeded",
	EventCaptureFailed:      "capture_failed",
	EventUploadSettled:      "upload_settled",
	EventPredictionSettled:  "prediction_settled",
	EventPersisted:          "persisted",
	EventDiscarded:          "discarded",
	EventDismissed:          "dismissed",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// next is the only place transitions are defined. It reports false, and
// returns s unchanged, when ev is not valid in s.
func next(s Status, ev Event) (Status, bool) {
	switch ev {
	case EventStart:
		if s.State == Idle {
			return Status{State: PermissionPending}, true
		}
	case EventStartAborted:
		if s.State == PermissionPending {
			return Status{State: Idle}, true
		}
	case EventPermissionsGranted:
		if s.State == PermissionPending {
			return Status{State: Ready}, true
		}
	case EventPermissionsDenied:
		if s.State == PermissionPending {
			return Status{State: Blocked}, true
		}
	case EventCaptureRequested:
		if s.State == Ready {
			return Status{State: Capturing}, true
		}
	case EventCaptureSucceeded:
		if s.State == Capturing {
			return Status{State: Captured, Uploading: true, Predicting: true}, true
		}
	case EventCaptureFailed:
		if s.State == Capturing {
			return Status{State: Ready}, true
		}
	case EventUploadSettled:
		if s.State == Captured && s.Uploading {
			s.Uploading = false
			return join(s), true
		}
	case EventPredictionSettled:
		if s.State == Captured && s.Predicting {
			s.Predicting = false
			return join(s), true
		}
	case EventPersisted:
		if s.State == Persisting {
			return Status{State: Committed}, true
		}
	case EventDiscarded:
		if s.State == Captured || s.State == Committed {
			return Status{State: Ready}, true
		}
	case EventDismissed:
		if s.State == Committed {
			return Status{State: Ready}, true
		}
	}
	return s, false
}

func join(s Status) Status {
	if !s.Uploading && !s.Predicting {
		return Status{State: Persisting}
	}
	return s
}
