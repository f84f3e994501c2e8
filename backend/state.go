package backend

import "strings"

// TaskState is the lifecycle state of a remote task as observed at poll time.
type TaskState string

const (
	// StateReady marks a task that is queued but has not started.
	StateReady TaskState = "READY"

	// StateRunning marks a task that is currently executing.
	StateRunning TaskState = "RUNNING"

	// StateFailed marks a task that ended without producing its output.
	StateFailed TaskState = "FAILED"

	// StateCompleted marks a task that produced its output.
	StateCompleted TaskState = "COMPLETED"
)

// States lists every task state in reporting order.
var States = []TaskState{StateReady, StateRunning, StateFailed, StateCompleted}

// Terminal returns true for states that no longer change.
func (s TaskState) Terminal() bool {
	return s == StateFailed || s == StateCompleted
}

// ParseState maps a state string reported by the remote backend to one of
// the four task states. Every input maps to exactly one state: cancelled
// variants count as failed and any other unrecognised value is treated as
// not yet started.
func ParseState(raw string) TaskState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RUNNING":
		return StateRunning
	case "COMPLETED", "SUCCEEDED":
		return StateCompleted
	case "FAILED", "CANCELLED", "CANCEL_REQUESTED":
		return StateFailed
	default:
		return StateReady
	}
}

// UnmarshalText allows task states to be decoded from any remote spelling.
func (s *TaskState) UnmarshalText(text []byte) error {
	*s = ParseState(string(text))
	return nil
}
