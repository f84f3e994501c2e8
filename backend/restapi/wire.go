package restapi

import (
	"net/http"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

const (
	tasksEndpoint     = "/v1/tasks"
	assetsEndpoint    = "/v1/assets"
	assetACLEndpoint  = "/v1/assets/acl"
	tokenEndpoint     = "/oauth2/token"
	defaultTokenTTL   = 3600
	bearerTokenPrefix = "Bearer "
)

// Error codes carried in error responses so that clients can map failures
// back to backend errors.
const (
	codeNameCollision   = "name_collision"
	codeAlreadyExists   = "already_exists"
	codeMalformedSpec   = "malformed_spec"
	codeUnauthenticated = "unauthenticated"
	codeNotFound        = "not_found"
	codeInternal        = "internal"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listTasksResponse struct {
	Tasks []*backend.Task `json:"tasks"`
}

type containerRequest struct {
	Path string                `json:"path"`
	Kind backend.ContainerKind `json:"kind"`
}

type accessPolicyRequest struct {
	Path   string               `json:"path"`
	Policy backend.AccessPolicy `json:"policy"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// errorCode maps a backend error to its HTTP status and wire code.
func errorCode(err error) (int, string) {
	switch {
	case xerrors.Is(err, backend.ErrNameCollision):
		return http.StatusConflict, codeNameCollision
	case xerrors.Is(err, backend.ErrAlreadyExists):
		return http.StatusConflict, codeAlreadyExists
	case xerrors.Is(err, backend.ErrMalformedSpec):
		return http.StatusBadRequest, codeMalformedSpec
	case xerrors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized, codeUnauthenticated
	case xerrors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// sentinelFor is the inverse of errorCode. The status is consulted when a
// response carries no recognizable code.
func sentinelFor(status int, code string) error {
	switch code {
	case codeNameCollision:
		return backend.ErrNameCollision
	case codeAlreadyExists:
		return backend.ErrAlreadyExists
	case codeMalformedSpec:
		return backend.ErrMalformedSpec
	case codeUnauthenticated:
		return backend.ErrUnauthenticated
	case codeNotFound:
		return backend.ErrNotFound
	}

	switch status {
	case http.StatusBadRequest:
		return backend.ErrMalformedSpec
	case http.StatusUnauthorized, http.StatusForbidden:
		return backend.ErrUnauthenticated
	case http.StatusNotFound:
		return backend.ErrNotFound
	}
	return nil
}

// RemoteError describes a failed backend call. It unwraps to the matching
// backend error, if any.
type RemoteError struct {
	Status  int
	Message string
	kind    error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// Unwrap returns the backend error that corresponds to the response.
func (e *RemoteError) Unwrap() error { return e.kind }
