package memory

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/ledger"
)

// Compile-time check for ensuring InMemoryLedger implements Ledger.
var _ ledger.Ledger = (*InMemoryLedger)(nil)

// [<item key>] --> <submission of the item>
type itemSubmissionMap map[string]*ledger.Submission

// InMemoryLedger implements an in-memory ledger that can be concurrently
// accessed by multiple clients.
type InMemoryLedger struct {
	mu sync.RWMutex

	// [<stage name>] --> Stage
	stages map[string]*ledger.Stage

	// [<stage name>] --> itemSubmissionMap
	submissions map[string]itemSubmissionMap
}

// NewInMemoryLedger returns an in-memory implementation of the ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		stages:      make(map[string]*ledger.Stage),
		submissions: make(map[string]itemSubmissionMap),
	}
}

// UpsertStage inserts a stage if it is not known yet.
func (l *InMemoryLedger) UpsertStage(stage *ledger.Stage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.stages[stage.Name]; exists {
		return nil
	}

	sCopy := new(ledger.Stage)
	*sCopy = *stage
	l.stages[sCopy.Name] = sCopy
	l.submissions[sCopy.Name] = make(itemSubmissionMap)
	return nil
}

// Stages returns an iterator for all stages sorted by name.
func (l *InMemoryLedger) Stages() (ledger.StageIterator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := make([]*ledger.Stage, 0, len(l.stages))
	for _, stage := range l.stages {
		list = append(list, stage)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return &stageIterator{l: l, stages: list}, nil
}

// Record upserts a submission.
// On conflict of (stage, item), the existing record is replaced.
func (l *InMemoryLedger) Record(sub *ledger.Submission) error {
	if sub.Stage == "" || sub.Item == "" {
		return xerrors.Errorf("record: %w", ledger.ErrMissingField)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items, exists := l.submissions[sub.Stage]
	if !exists {
		return xerrors.Errorf("record %s: %w", sub.Stage, ledger.ErrUnknownStage)
	}

	sCopy := new(ledger.Submission)
	*sCopy = *sub
	items[sCopy.Item] = sCopy
	return nil
}

// Submitted returns true if item has been recorded for stage.
func (l *InMemoryLedger) Submitted(stage, item string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items, exists := l.submissions[stage]
	if !exists {
		return false, xerrors.Errorf("submitted %s: %w", stage, ledger.ErrUnknownStage)
	}
	_, found := items[item]
	return found, nil
}

// Submissions returns an iterator for the submissions of a stage, ordered
// by submission time and then by item.
func (l *InMemoryLedger) Submissions(stage string) (ledger.SubmissionIterator, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items, exists := l.submissions[stage]
	if !exists {
		return nil, xerrors.Errorf("submissions %s: %w", stage, ledger.ErrUnknownStage)
	}

	list := make([]*ledger.Submission, 0, len(items))
	for _, sub := range items {
		list = append(list, sub)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].SubmittedAt.Before(list[j].SubmittedAt)
		}
		return list[i].Item < list[j].Item
	})
	return &submissionIterator{l: l, subs: list}, nil
}
