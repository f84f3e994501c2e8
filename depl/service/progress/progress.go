package progress

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Stepper is implemented by emulated backends that can move their tasks
// one state forward.
type Stepper interface {
	Progress() int
}

// Config encapsulates the settings for configuring the progress service.
type Config struct {
	// The backend whose tasks are advanced.
	Stepper Stepper

	// The time between subsequent steps.
	StepInterval time.Duration

	// A clock instance for generating time-related events. If not
	// specified, the wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Stepper == nil {
		err = multierror.Append(err, xerrors.Errorf("stepper has not been provided"))
	}
	if cfg.StepInterval <= 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for step interval"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service periodically advances the tasks of an emulated backend so that
// they eventually complete.
type Service struct {
	cfg Config
}

// NewService creates a new progress service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("progress service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "progress" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	defer svc.cfg.Logger.Info("stopped service")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.StepInterval):
			if changed := svc.cfg.Stepper.Progress(); changed != 0 {
				svc.cfg.Logger.WithField("changed", changed).Info("advanced tasks")
			}
		}
	}
}
