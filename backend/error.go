package backend

import "golang.org/x/xerrors"

var (
	// ErrNameCollision is returned when a submission targets a destination
	// that another live task already writes to.
	ErrNameCollision = xerrors.New("destination name collision")

	// ErrAlreadyExists is returned when creating a container whose path is
	// already taken.
	ErrAlreadyExists = xerrors.New("container already exists")

	// ErrNotFound is returned when a container lookup fails.
	ErrNotFound = xerrors.New("not found")

	// ErrMalformedSpec is returned for job specifications the backend
	// cannot execute.
	ErrMalformedSpec = xerrors.New("malformed job spec")

	// ErrUnauthenticated is returned when the caller's identity is rejected.
	ErrUnauthenticated = xerrors.New("unauthenticated")
)
