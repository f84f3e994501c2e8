package provision

import (
	"context"
	"io/ioutil"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/tnc-ca-geo/SAGE/provision ContainerAPI

// ContainerAPI defines the backend calls needed for provisioning asset
// containers.
type ContainerAPI interface {
	ContainerExists(ctx context.Context, path string) (bool, error)
	CreateContainer(ctx context.Context, path string, kind backend.ContainerKind) error
	SetAccessPolicy(ctx context.Context, path string, policy backend.AccessPolicy) error
}

// DefaultPolicy is applied to newly created containers that do not specify
// their own policy.
var DefaultPolicy = backend.AccessPolicy{AllUsersCanRead: true}

// Container describes an asset container that must exist before any job
// exports into it.
type Container struct {
	Path string
	Kind backend.ContainerKind

	// The access policy to apply after creation. If nil, DefaultPolicy
	// is used.
	Policy *backend.AccessPolicy
}

// Config encapsulates the settings for configuring a Provisioner.
type Config struct {
	// The API used for checking, creating and sharing containers.
	API ContainerAPI

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.API == nil {
		err = multierror.Append(err, xerrors.Errorf("container API has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Provisioner idempotently ensures that destination containers exist. A
// Provisioner remembers which paths it has already ensured and never
// checks or creates them again.
type Provisioner struct {
	cfg Config

	mu      sync.Mutex
	ensured map[string]bool
}

// NewProvisioner returns a new Provisioner with the specified config.
func NewProvisioner(cfg Config) (*Provisioner, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("provisioner: config validation failed: %w", err)
	}
	return &Provisioner{cfg: cfg, ensured: make(map[string]bool)}, nil
}

// EnsureContainer makes sure a container of the given kind exists at path.
// Newly created containers get DefaultPolicy.
func (p *Provisioner) EnsureContainer(ctx context.Context, path string, kind backend.ContainerKind) error {
	return p.Ensure(ctx, Container{Path: path, Kind: kind})
}

// Ensure makes sure c exists. If it is missing it is created and its access
// policy is set. Losing a creation race to another process counts as
// success.
func (p *Provisioner) Ensure(ctx context.Context, c Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ensured[c.Path] {
		return nil
	}

	logger := p.cfg.Logger.WithField("container", c.Path)
	exists, err := p.cfg.API.ContainerExists(ctx, c.Path)
	if err != nil {
		return xerrors.Errorf("ensure container %s: %w", c.Path, err)
	} else if exists {
		p.ensured[c.Path] = true
		return nil
	}

	err = p.cfg.API.CreateContainer(ctx, c.Path, c.Kind)
	if xerrors.Is(err, backend.ErrAlreadyExists) {
		logger.Debug("container created concurrently")
	} else if err != nil {
		return xerrors.Errorf("ensure container %s: %w", c.Path, err)
	} else {
		logger.WithField("kind", c.Kind).Info("created container")
	}

	policy := DefaultPolicy
	if c.Policy != nil {
		policy = *c.Policy
	}
	if err = p.cfg.API.SetAccessPolicy(ctx, c.Path, policy); err != nil {
		return xerrors.Errorf("ensure container %s: set access policy: %w", c.Path, err)
	}

	p.ensured[c.Path] = true
	return nil
}

// EnsureAll ensures every container in order. Parents must precede their
// children. Provisioning stops at the first failure.
func (p *Provisioner) EnsureAll(ctx context.Context, containers []Container) error {
	for _, c := range containers {
		if err := p.Ensure(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Ensured returns true if path has already been ensured.
func (p *Provisioner) Ensured(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensured[path]
}
