package watch

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/credential"
	"github.com/tnc-ca-geo/SAGE/monitor"
)

// ErrNothingObserved is returned when a pass could not observe the tasks
// of any credential.
var ErrNothingObserved = xerrors.New("no credential could be observed")

// Session is implemented by objects that switch the active credential.
type Session interface {
	Activate(ctx context.Context, cred *credential.Credential) error
}

// Tracker polls and reports the tasks of the active credential.
type Tracker interface {
	Once(ctx context.Context) (*monitor.Snapshot, error)
}

// Config encapsulates the settings for configuring the watch service.
type Config struct {
	// The credentials to observe, in order.
	Credentials []credential.Ref

	// Loads a referenced credential. Defaults to credential.LoadRef.
	Loader func(credential.Ref) (*credential.Credential, error)

	// The session whose active identity is switched before each poll.
	Session Session

	// The tracker that polls and reports under the active identity.
	Tracker Tracker

	// The time between subsequent passes over all credentials.
	Interval time.Duration

	// Decides, per credential, whether observation is finished. The
	// service exits once it holds for every credential in the same pass;
	// credentials that cannot be activated keep the service running.
	// Defaults to monitor.UntilAllTerminal.
	Stop monitor.StopCondition

	// A clock instance for generating time-related events. If not
	// specified, the wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if len(cfg.Credentials) == 0 {
		err = multierror.Append(err, xerrors.Errorf("no credentials have been provided"))
	}
	if cfg.Session == nil {
		err = multierror.Append(err, xerrors.Errorf("session has not been provided"))
	}
	if cfg.Tracker == nil {
		err = multierror.Append(err, xerrors.Errorf("tracker has not been provided"))
	}
	if cfg.Interval <= 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for poll interval"))
	}
	if cfg.Loader == nil {
		cfg.Loader = credential.LoadRef
	}
	if cfg.Stop == nil {
		cfg.Stop = monitor.UntilAllTerminal
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service observes the tasks of several credentials, one after the other,
// until all of them are done.
type Service struct {
	cfg Config
}

// NewService creates a new watch service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("watch service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "watch" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	defer svc.cfg.Logger.Info("stopped service")

	for pass := 1; ; pass++ {
		done, observed := svc.pass(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if observed == 0 {
			return xerrors.Errorf("watch pass %d: %w", pass, ErrNothingObserved)
		}
		if done {
			svc.cfg.Logger.WithField("pass", pass).Info("all observed tasks are done")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.Interval):
		}
	}
}

// pass activates and polls every credential once. It reports whether the
// stop condition held for every credential; a credential that could not be
// observed is never done.
func (svc *Service) pass(ctx context.Context) (done bool, observed int) {
	done = true
	for _, ref := range svc.cfg.Credentials {
		if ctx.Err() != nil {
			return false, observed
		}

		logger := svc.cfg.Logger.WithField("credential", ref.Name)
		cred, err := svc.cfg.Loader(ref)
		if err != nil {
			logger.WithField("err", err).Warn("skipping credential")
			done = false
			continue
		}
		if err = svc.cfg.Session.Activate(ctx, cred); err != nil {
			logger.WithField("err", err).Warn("skipping credential")
			done = false
			continue
		}

		snap, err := svc.cfg.Tracker.Once(ctx)
		if err != nil {
			logger.WithField("err", err).Warn("unable to poll task status")
			done = false
			continue
		}
		observed++
		if !svc.cfg.Stop(snap) {
			done = false
		}
	}
	return done, observed
}
