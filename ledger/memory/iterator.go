package memory

import (
	"github.com/tnc-ca-geo/SAGE/ledger"
)

// submissionIterator is a ledger.SubmissionIterator implementation for the
// in-memory ledger.
type submissionIterator struct {
	l *InMemoryLedger

	subs     []*ledger.Submission
	curIndex int
}

func (i *submissionIterator) Next() bool {
	if i.curIndex >= len(i.subs) {
		return false
	}
	i.curIndex++
	return true
}

func (i *submissionIterator) Error() error { return nil }

func (i *submissionIterator) Close() error { return nil }

func (i *submissionIterator) TotalCount() uint64 { return uint64(len(i.subs)) }

func (i *submissionIterator) Submission() *ledger.Submission {
	// The submission may be replaced by a ledger update; to avoid
	// data-races, acquire the read lock and clone it.
	i.l.mu.RLock()
	defer i.l.mu.RUnlock()
	sub := new(ledger.Submission)
	*sub = *i.subs[i.curIndex-1]
	return sub
}

// stageIterator is a ledger.StageIterator implementation for the in-memory
// ledger.
type stageIterator struct {
	l *InMemoryLedger

	stages   []*ledger.Stage
	curIndex int
}

func (i *stageIterator) Next() bool {
	if i.curIndex >= len(i.stages) {
		return false
	}
	i.curIndex++
	return true
}

func (i *stageIterator) Error() error { return nil }

func (i *stageIterator) Close() error { return nil }

func (i *stageIterator) Stage() *ledger.Stage {
	i.l.mu.RLock()
	defer i.l.mu.RUnlock()
	stage := new(ledger.Stage)
	*stage = *i.stages[i.curIndex-1]
	return stage
}
