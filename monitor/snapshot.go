package monitor

import (
	"time"

	"github.com/tnc-ca-geo/SAGE/backend"
)

// Snapshot is the classification of every task visible to one credential
// at a single point in time.
type Snapshot struct {
	Credential string                                `json:"credential"`
	TakenAt    time.Time                             `json:"taken_at"`
	ByState    map[backend.TaskState][]*backend.Task `json:"tasks"`
	Total      int                                   `json:"total"`
}

func newSnapshot(credential string, takenAt time.Time, tasks []*backend.Task) *Snapshot {
	snap := &Snapshot{
		Credential: credential,
		TakenAt:    takenAt,
		ByState:    make(map[backend.TaskState][]*backend.Task, len(backend.States)),
		Total:      len(tasks),
	}
	for _, state := range backend.States {
		snap.ByState[state] = []*backend.Task{}
	}
	for _, task := range tasks {
		// Normalize anything the backend did not classify for us.
		state := backend.ParseState(string(task.State))
		snap.ByState[state] = append(snap.ByState[state], task)
	}
	return snap
}

// Count returns the number of tasks in the given state.
func (s *Snapshot) Count(state backend.TaskState) int {
	return len(s.ByState[state])
}

// AllTerminal returns true if no task is READY or RUNNING.
func (s *Snapshot) AllTerminal() bool {
	return s.Count(backend.StateReady) == 0 && s.Count(backend.StateRunning) == 0
}

// StopCondition decides whether a monitoring loop should end after
// observing snap.
type StopCondition func(snap *Snapshot) bool

// UntilAllTerminal stops once every visible task is COMPLETED or FAILED.
func UntilAllTerminal(snap *Snapshot) bool { return snap.AllTerminal() }

// Forever never stops; the loop runs until its context is cancelled.
func Forever(*Snapshot) bool { return false }

// UntilTasksTerminal stops once every task in ids has been observed in a
// terminal state. Tasks that are not visible yet keep the loop running.
func UntilTasksTerminal(ids ...string) StopCondition {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	return func(snap *Snapshot) bool {
		remaining := len(pending)
		for _, state := range []backend.TaskState{backend.StateFailed, backend.StateCompleted} {
			for _, task := range snap.ByState[state] {
				if pending[task.ID] {
					remaining--
				}
			}
		}
		return remaining == 0
	}
}
