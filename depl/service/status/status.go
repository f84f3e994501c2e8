package status

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/status"
)

// Config encapsulates the settings for configuring the status service. It
// carries the settings of the underlying status server.
type Config struct {
	status.Config
}

// Service exposes task snapshots and metrics over HTTP.
type Service struct {
	cfg    Config
	server *status.Server
}

// NewService creates a new status service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	server, err := status.NewServer(cfg.Config)
	if err != nil {
		return nil, xerrors.Errorf("status service: %w", err)
	}

	return &Service{cfg: cfg, server: server}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "status" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	svc.server.Logger().WithField("addr", svc.cfg.ListenAddr).Info("starting status server")
	return svc.server.Serve(ctx)
}
