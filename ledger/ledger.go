package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Ledger keeps a manifest of submitted work items so that an interrupted
// dispatch can be resumed without resubmitting items that already have a
// remote task.
type Ledger interface {
	// Upsert a stage.
	UpsertStage(stage *Stage) error

	// Returns an iterator for all the stages.
	Stages() (StageIterator, error)

	// Record upserts a submission.
	// On conflict of (stage, item), the existing record is replaced.
	Record(sub *Submission) error

	// Submitted returns true if item has been recorded for stage.
	Submitted(stage, item string) (bool, error)

	// Submissions returns an iterator for the submissions of a stage,
	// ordered by submission time.
	Submissions(stage string) (SubmissionIterator, error)
}

// Stage identifies a processing stage whose submissions are tracked.
type Stage struct {
	Name string
}

// Submission records the remote task created for one work item.
type Submission struct {
	// The dispatcher run that created the task.
	Run uuid.UUID

	Stage       string
	Item        string
	Credential  string
	TaskID      string
	Description string
	SubmittedAt time.Time
}

// SubmissionIterator is implemented by objects that can iterate
// submissions.
type SubmissionIterator interface {
	// Close the iterator and release any allocated resources.
	Close() error

	// Next loads the next submission.
	// It returns false if no more submissions are available.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Submission returns the current submission.
	Submission() *Submission

	// TotalCount returns the number of submissions in the result set.
	TotalCount() uint64
}

// StageIterator is implemented by objects that can iterate stages.
type StageIterator interface {
	// Close the iterator and release any allocated resources.
	Close() error

	// Next loads the next stage.
	// It returns false if no more stages are available.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Stage returns the current stage.
	Stage() *Stage
}
