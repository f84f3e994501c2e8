package submit

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/workload"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/tnc-ca-geo/SAGE/submit Session,SpecBuilder

// Submission outcomes reported by the sage_submissions_total counter.
const (
	OutcomeQueued    = "queued"
	OutcomeRejected  = "rejected"
	OutcomeCollision = "collision"
	OutcomeFailed    = "failed"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sage_submissions_total",
	Help: "The total number of job submissions by credential and outcome",
}, []string{"credential", "outcome"})

// Session is implemented by objects that submit jobs on behalf of the
// currently active credential.
type Session interface {
	Submit(ctx context.Context, spec *backend.JobSpec) (*backend.Receipt, error)
	ActiveName() string
}

// SpecBuilder translates a work item into a backend job spec.
type SpecBuilder interface {
	BuildSpec(item workload.Item) (*backend.JobSpec, error)
}

// SpecBuilderFunc adapts a function to the SpecBuilder interface.
type SpecBuilderFunc func(item workload.Item) (*backend.JobSpec, error)

// BuildSpec implements SpecBuilder.
func (f SpecBuilderFunc) BuildSpec(item workload.Item) (*backend.JobSpec, error) { return f(item) }

// Handle pairs a submitted work item with the remote task created for it.
type Handle struct {
	Item        workload.Item
	TaskID      string
	Description string
	Destination string
	Credential  string
	SubmittedAt time.Time
}

// Error is returned when a work item could not be submitted. It unwraps to
// the underlying cause, typically one of the backend errors.
type Error struct {
	Item       workload.Item
	Credential string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("submit %s as %s: %v", e.Item.Key(), e.Credential, e.Err)
}

// Unwrap returns the cause of the submission failure.
func (e *Error) Unwrap() error { return e.Err }

// Config encapsulates the settings for configuring a Submitter.
type Config struct {
	// The session through which jobs are submitted.
	Session Session

	// A clock instance for stamping handles. If not specified, the
	// wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Session == nil {
		err = multierror.Append(err, xerrors.Errorf("session has not been provided"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Submitter creates exactly one remote task per submitted work item.
type Submitter struct {
	cfg Config
}

// NewSubmitter returns a new Submitter with the specified config.
func NewSubmitter(cfg Config) (*Submitter, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("submitter: config validation failed: %w", err)
	}
	return &Submitter{cfg: cfg}, nil
}

// Submit builds the job spec for item, validates it locally and submits it
// once under the active credential. It returns as soon as the backend has
// acknowledged the job. Duplicate destinations are not detected locally;
// they surface as backend.ErrNameCollision. Every failure is returned as a
// *Error.
func (s *Submitter) Submit(ctx context.Context, item workload.Item, builder SpecBuilder) (*Handle, error) {
	credName := s.cfg.Session.ActiveName()
	fail := func(outcome string, err error) (*Handle, error) {
		submissionsTotal.WithLabelValues(credName, outcome).Inc()
		return nil, &Error{Item: item, Credential: credName, Err: err}
	}

	spec, err := builder.BuildSpec(item)
	if err != nil {
		return fail(OutcomeRejected, err)
	} else if spec == nil {
		return fail(OutcomeRejected, xerrors.Errorf("builder returned no spec: %w", backend.ErrMalformedSpec))
	} else if err = spec.Validate(); err != nil {
		return fail(OutcomeRejected, err)
	}

	receipt, err := s.cfg.Session.Submit(ctx, spec)
	if xerrors.Is(err, backend.ErrNameCollision) {
		return fail(OutcomeCollision, err)
	} else if err != nil {
		return fail(OutcomeFailed, err)
	}

	submissionsTotal.WithLabelValues(credName, OutcomeQueued).Inc()
	s.cfg.Logger.WithFields(logrus.Fields{
		"item":       item.Key(),
		"task_id":    receipt.TaskID,
		"credential": credName,
	}).Info("submitted job")

	return &Handle{
		Item:        item,
		TaskID:      receipt.TaskID,
		Description: receipt.Description,
		Destination: spec.Destination,
		Credential:  credName,
		SubmittedAt: s.cfg.Clock.Now(),
	}, nil
}
