package cdb

import (
	"database/sql"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/ledger"
)

// submissionIterator is a ledger.SubmissionIterator implementation for the
// cdb ledger.
type submissionIterator struct {
	rows          *sql.Rows
	lastErr       error
	totalRows     uint64
	latchedRecord *ledger.Submission
}

func (i *submissionIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	sub := new(ledger.Submission)
	i.lastErr = i.rows.Scan(
		&sub.Stage,
		&sub.Item,
		&sub.Run,
		&sub.Credential,
		&sub.TaskID,
		&sub.Description,
		&sub.SubmittedAt,
	)
	if i.lastErr != nil {
		return false
	}

	sub.SubmittedAt = sub.SubmittedAt.UTC()
	i.latchedRecord = sub
	return true
}

func (i *submissionIterator) Error() error {
	return i.lastErr
}

func (i *submissionIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return xerrors.Errorf("submission iterator: %w", err)
	}
	return nil
}

func (i *submissionIterator) Submission() *ledger.Submission {
	return i.latchedRecord
}

func (i *submissionIterator) TotalCount() uint64 {
	return i.totalRows
}

// stageIterator is a ledger.StageIterator implementation for the cdb
// ledger.
type stageIterator struct {
	rows         *sql.Rows
	lastErr      error
	latchedStage *ledger.Stage
}

func (i *stageIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	stage := new(ledger.Stage)
	if i.lastErr = i.rows.Scan(&stage.Name); i.lastErr != nil {
		return false
	}
	i.latchedStage = stage
	return true
}

func (i *stageIterator) Error() error {
	return i.lastErr
}

func (i *stageIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return xerrors.Errorf("stage iterator: %w", err)
	}
	return nil
}

func (i *stageIterator) Stage() *ledger.Stage {
	return i.latchedStage
}
