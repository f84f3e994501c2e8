package ledger

import "golang.org/x/xerrors"

var (
	// ErrUnknownStage is returned when a submission refers to a stage that
	// is not known to the ledger.
	ErrUnknownStage = xerrors.New("unknown stage")

	// ErrMissingField is returned when a submission lacks its stage or item.
	ErrMissingField = xerrors.New("missing submission field")
)
