package status

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/monitor"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/tnc-ca-geo/SAGE/status SnapshotSource

const (
	overviewEndpoint = "/"
	statusEndpoint   = "/status"
	metricsEndpoint  = "/metrics"
)

// SnapshotSource is implemented by objects that keep the latest task
// snapshot of every credential.
type SnapshotSource interface {
	Snapshots() []*monitor.Snapshot
	Latest(credential string) (*monitor.Snapshot, bool)
}

// Server exposes the most recent task snapshots over HTTP.
type Server struct {
	cfg    Config
	router *mux.Router

	// A template executor hook which tests can override.
	tplExecutor func(tpl *template.Template, w io.Writer, data map[string]interface{}) error
}

// NewServer creates a new status server with the specified config.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("status server: config validation failed: %w", err)
	}

	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		tplExecutor: func(tpl *template.Template, w io.Writer, data map[string]interface{}) error {
			return tpl.Execute(w, data)
		},
	}

	s.router.HandleFunc(overviewEndpoint, s.renderOverviewPage).Methods("GET")
	s.router.HandleFunc(statusEndpoint, s.listSnapshots).Methods("GET")
	s.router.HandleFunc(statusEndpoint+"/{credential}", s.getSnapshot).Methods("GET")
	s.router.Handle(metricsEndpoint, promhttp.Handler()).Methods("GET")
	s.router.NotFoundHandler = http.HandlerFunc(s.render404Page)
	return s, nil
}

// Logger returns the logger of the server.
func (s *Server) Logger() *logrus.Entry { return s.cfg.Logger }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}

	return err
}

func (s *Server) listSnapshots(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Source.Snapshots())
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["credential"]
	snap, found := s.cfg.Source.Latest(name)
	if !found {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no snapshot recorded for " + name,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.cfg.Logger.WithField("err", err).Warn("encode status response")
	}
}

// stateCount is a single row of the overview table.
type stateCount struct {
	State backend.TaskState
	Count int
}

// snapshotView wraps a snapshot with rows in canonical state order.
type snapshotView struct {
	*monitor.Snapshot
	States []stateCount
}

func (s *Server) renderOverviewPage(w http.ResponseWriter, _ *http.Request) {
	snaps := s.cfg.Source.Snapshots()
	views := make([]snapshotView, 0, len(snaps))
	for _, snap := range snaps {
		view := snapshotView{Snapshot: snap}
		for _, state := range backend.States {
			view.States = append(view.States, stateCount{State: state, Count: snap.Count(state)})
		}
		views = append(views, view)
	}

	if err := s.tplExecutor(overviewPageTemplate, w, map[string]interface{}{
		"statusEndpoint":  statusEndpoint,
		"metricsEndpoint": metricsEndpoint,
		"snapshots":       views,
	}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Server) render404Page(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	_ = s.tplExecutor(msgPageTemplate, w, map[string]interface{}{
		"overviewEndpoint": overviewEndpoint,
		"messageTitle":     "Page not found",
		"messageContent":   "Page not found.",
	})
}
