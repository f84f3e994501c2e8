package cdb

import (
	"database/sql"

	"github.com/lib/pq"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/ledger"
)

var (
	schemaQueries = []string{
		`create table if not exists stage (
			name text primary key
		)`,
		`create table if not exists submission (
			stage text not null references stage(name),
			item text not null,
			run_id uuid not null,
			credential text not null,
			task_id text not null,
			description text not null,
			submitted_at timestamptz not null,
			primary key (stage, item)
		)`,
	}

	upsertStageQuery = `insert into stage(name) values ($1) on conflict (name) do nothing`

	stagesQuery = `select name from stage order by name`

	recordQuery = `
insert into submission(stage, item, run_id, credential, task_id, description, submitted_at)
values ($1, $2, $3, $4, $5, $6, $7)
on conflict (stage, item) do update set
	run_id=excluded.run_id, credential=excluded.credential, task_id=excluded.task_id,
	description=excluded.description, submitted_at=excluded.submitted_at`

	stageExistsQuery = `select count(*) from stage where name=$1`

	submittedQuery = `select count(*) from submission where stage=$1 and item=$2`

	submissionsQuery = `
select stage, item, run_id, credential, task_id, description, submitted_at
from submission where stage=$1 order by submitted_at, item`

	totalSubmissionsQuery = `select count(*) from submission where stage=$1`

	// Compile-time check for ensuring CDBLedger implements Ledger.
	_ ledger.Ledger = (*CDBLedger)(nil)
)

// CDBLedger implements a ledger that persists submissions to a cockroachdb
// (or postgres) instance.
type CDBLedger struct {
	db *sql.DB
}

// NewCDBLedger returns a CDBLedger instance that connects to the
// cockroachdb instance specified by dsn.
func NewCDBLedger(dsn string) (*CDBLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &CDBLedger{db: db}, nil
}

// Close terminates the connection to the backing cockroachdb instance.
func (l *CDBLedger) Close() error {
	return l.db.Close()
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (l *CDBLedger) EnsureSchema() error {
	for _, q := range schemaQueries {
		if _, err := l.db.Exec(q); err != nil {
			return xerrors.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertStage inserts a stage if it is not known yet.
func (l *CDBLedger) UpsertStage(stage *ledger.Stage) error {
	if _, err := l.db.Exec(upsertStageQuery, stage.Name); err != nil {
		return xerrors.Errorf("upsert stage: %w", err)
	}
	return nil
}

// Stages returns an iterator for all stages sorted by name.
func (l *CDBLedger) Stages() (ledger.StageIterator, error) {
	rows, err := l.db.Query(stagesQuery)
	if err != nil {
		return nil, xerrors.Errorf("stages: %w", err)
	}
	return &stageIterator{rows: rows}, nil
}

// Record upserts a submission.
// On conflict of (stage, item), the existing record is replaced.
func (l *CDBLedger) Record(sub *ledger.Submission) error {
	if sub.Stage == "" || sub.Item == "" {
		return xerrors.Errorf("record: %w", ledger.ErrMissingField)
	}

	_, err := l.db.Exec(
		recordQuery,
		sub.Stage,
		sub.Item,
		sub.Run,
		sub.Credential,
		sub.TaskID,
		sub.Description,
		sub.SubmittedAt.UTC(),
	)
	if isForeignKeyViolationError(err) {
		return xerrors.Errorf("record %s: %w", sub.Stage, ledger.ErrUnknownStage)
	} else if err != nil {
		return xerrors.Errorf("record: %w", err)
	}
	return nil
}

// Submitted returns true if item has been recorded for stage.
func (l *CDBLedger) Submitted(stage, item string) (bool, error) {
	if err := l.checkStage(stage); err != nil {
		return false, xerrors.Errorf("submitted %s: %w", stage, err)
	}

	var count int
	if err := l.db.QueryRow(submittedQuery, stage, item).Scan(&count); err != nil {
		return false, xerrors.Errorf("submitted: %w", err)
	}
	return count != 0, nil
}

// Submissions returns an iterator for the submissions of a stage, ordered
// by submission time and then by item.
func (l *CDBLedger) Submissions(stage string) (ledger.SubmissionIterator, error) {
	if err := l.checkStage(stage); err != nil {
		return nil, xerrors.Errorf("submissions %s: %w", stage, err)
	}

	var totalRows uint64
	if err := l.db.QueryRow(totalSubmissionsQuery, stage).Scan(&totalRows); err != nil {
		return nil, xerrors.Errorf("total submissions of stage %s: %w", stage, err)
	}

	rows, err := l.db.Query(submissionsQuery, stage)
	if err != nil {
		return nil, xerrors.Errorf("submissions of stage %s: %w", stage, err)
	}
	return &submissionIterator{rows: rows, totalRows: totalRows}, nil
}

func (l *CDBLedger) checkStage(stage string) error {
	var count int
	if err := l.db.QueryRow(stageExistsQuery, stage).Scan(&count); err != nil {
		return err
	} else if count == 0 {
		return ledger.ErrUnknownStage
	}
	return nil
}

// Returns true if err indicates a foreign key constraint violation.
func isForeignKeyViolationError(err error) bool {
	var pqErr *pq.Error
	if !xerrors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Name() == "foreign_key_violation"
}
