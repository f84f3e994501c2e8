package restapi

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

// AccountResolver maps a bearer token to the backend view of the identity
// that owns it.
type AccountResolver interface {
	Resolve(token string) (backend.Backend, error)
}

// AccountResolverFunc adapts a function to the AccountResolver interface.
type AccountResolverFunc func(token string) (backend.Backend, error)

// Resolve implements AccountResolver.
func (f AccountResolverFunc) Resolve(token string) (backend.Backend, error) { return f(token) }

// ServerConfig encapsulates the settings for configuring the REST server.
type ServerConfig struct {
	// Resolves bearer tokens into backend accounts.
	Accounts AccountResolver

	// If set, the server also exposes an OAuth2 token endpoint that
	// exchanges refresh tokens for access tokens of the same value.
	IssueTokens bool

	// The address to listen for incoming requests when Serve is invoked.
	ListenAddr string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *ServerConfig) validate() error {
	var err error
	if cfg.Accounts == nil {
		err = multierror.Append(err, xerrors.Errorf("account resolver has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Server exposes a backend.Backend over HTTP/JSON.
type Server struct {
	cfg    ServerConfig
	router *mux.Router
}

// NewServer creates a new server instance with the specified config.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("rest server: config validation failed: %w", err)
	}

	s := &Server{cfg: cfg, router: mux.NewRouter()}
	s.router.HandleFunc(tasksEndpoint, s.authenticated(s.submit)).Methods("POST")
	s.router.HandleFunc(tasksEndpoint, s.authenticated(s.listTasks)).Methods("GET")
	s.router.HandleFunc(assetsEndpoint, s.authenticated(s.getAsset)).Methods("GET").Queries("path", "{path}")
	s.router.HandleFunc(assetsEndpoint, s.authenticated(s.createAsset)).Methods("POST")
	s.router.HandleFunc(assetACLEndpoint, s.authenticated(s.setAccessPolicy)).Methods("PUT")
	if cfg.IssueTokens {
		s.router.HandleFunc(tokenEndpoint, s.issueToken).Methods("POST")
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on the configured address until ctx expires.
func (s *Server) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.router}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	s.cfg.Logger.WithField("addr", l.Addr().String()).Info("serving backend API")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}
	return err
}

type accountHandler func(w http.ResponseWriter, r *http.Request, account backend.Backend)

func (s *Server) authenticated(h accountHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerTokenPrefix) {
			s.writeError(w, xerrors.Errorf("missing bearer token: %w", backend.ErrUnauthenticated))
			return
		}

		account, err := s.cfg.Accounts.Resolve(strings.TrimPrefix(header, bearerTokenPrefix))
		if err != nil {
			s.writeError(w, err)
			return
		}
		h(w, r, account)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, account backend.Backend) {
	var spec backend.JobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeError(w, xerrors.Errorf("decode request: %v: %w", err, backend.ErrMalformedSpec))
		return
	}

	receipt, err := account.Submit(r.Context(), &spec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request, account backend.Backend) {
	tasks, err := account.ListTasks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*backend.Task{}
	}
	s.writeJSON(w, http.StatusOK, listTasksResponse{Tasks: tasks})
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request, account backend.Backend) {
	path := mux.Vars(r)["path"]
	exists, err := account.ContainerExists(r.Context(), path)
	if err != nil {
		s.writeError(w, err)
		return
	} else if !exists {
		s.writeError(w, xerrors.Errorf("asset %s: %w", path, backend.ErrNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, containerRequest{Path: path})
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request, account backend.Backend) {
	var req containerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, xerrors.Errorf("decode request: %v: %w", err, backend.ErrMalformedSpec))
		return
	}
	if err := account.CreateContainer(r.Context(), req.Path, req.Kind); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, req)
}

func (s *Server) setAccessPolicy(w http.ResponseWriter, r *http.Request, account backend.Backend) {
	var req accessPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, xerrors.Errorf("decode request: %v: %w", err, backend.ErrMalformedSpec))
		return
	}
	if err := account.SetAccessPolicy(r.Context(), req.Path, req.Policy); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	refreshToken := r.PostForm.Get("refresh_token")
	if refreshToken == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	if _, err := s.cfg.Accounts.Resolve(refreshToken); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: refreshToken,
		TokenType:   "Bearer",
		ExpiresIn:   defaultTokenTTL,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	if status == http.StatusInternalServerError {
		s.cfg.Logger.WithField("err", err).Error("backend call failed")
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.cfg.Logger.WithField("err", err).Warn("unable to encode response")
	}
}
