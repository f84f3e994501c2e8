package dispatch

import (
	"context"
	"io/ioutil"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/credential"
	"github.com/tnc-ca-geo/SAGE/ledger"
	"github.com/tnc-ca-geo/SAGE/monitor"
	"github.com/tnc-ca-geo/SAGE/partition"
	"github.com/tnc-ca-geo/SAGE/provision"
	"github.com/tnc-ca-geo/SAGE/submit"
	"github.com/tnc-ca-geo/SAGE/workload"
)

// Session is implemented by objects that switch the active credential.
type Session interface {
	Activate(ctx context.Context, cred *credential.Credential) error
	Verify(ctx context.Context) error
}

// Submitter submits a single work item under the active credential.
type Submitter interface {
	Submit(ctx context.Context, item workload.Item, builder submit.SpecBuilder) (*submit.Handle, error)
}

// Provisioner ensures destination containers exist.
type Provisioner interface {
	EnsureAll(ctx context.Context, containers []provision.Container) error
}

// Tracker reports interim task status between partitions.
type Tracker interface {
	Once(ctx context.Context) (*monitor.Snapshot, error)
}

// Config encapsulates the settings for configuring a Dispatcher.
type Config struct {
	// The credentials available for dispatching, in partition order.
	Credentials []credential.Ref

	// Loads a referenced credential. Defaults to credential.LoadRef.
	Loader func(credential.Ref) (*credential.Credential, error)

	// The session whose active identity is switched per partition.
	Session Session

	// The submitter used for every work item.
	Submitter Submitter

	// Translates work items into job specs.
	Builder submit.SpecBuilder

	// If set, work is spread across every credential. Otherwise all
	// items are submitted under the first credential.
	UseMultipleCredentials bool

	// Optional provisioner and the containers it must ensure before the
	// first submission.
	Provisioner Provisioner
	Containers  []provision.Container

	// If set, Tracker.Once runs after each partition.
	TrackBetweenPartitions bool
	Tracker                Tracker

	// Optional submission ledger. Stage names the manifest records
	// belong to. With SkipRecorded, items already recorded for the stage
	// are not submitted again.
	Ledger       ledger.Ledger
	Stage        string
	SkipRecorded bool

	// A clock instance for timestamping ledger records. If not
	// specified, the wall-clock will be used instead.
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
	if cfg.Submitter == nil {
		err = multierror.Append(err, xerrors.Errorf("submitter has not been provided"))
	}
	if cfg.Builder == nil {
		err = multierror.Append(err, xerrors.Errorf("spec builder has not been provided"))
	}
	if cfg.Provisioner == nil && len(cfg.Containers) != 0 {
		err = multierror.Append(err, xerrors.Errorf("containers were specified without a provisioner"))
	}
	if cfg.TrackBetweenPartitions && cfg.Tracker == nil {
		err = multierror.Append(err, xerrors.Errorf("tracking between partitions requires a tracker"))
	}
	if cfg.Ledger != nil && cfg.Stage == "" {
		err = multierror.Append(err, xerrors.Errorf("a stage name is required when using a ledger"))
	}
	if cfg.SkipRecorded && cfg.Ledger == nil {
		err = multierror.Append(err, xerrors.Errorf("skipping recorded items requires a ledger"))
	}
	if cfg.Loader == nil {
		cfg.Loader = credential.LoadRef
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Result summarizes a dispatcher run.
type Result struct {
	Run uuid.UUID

	// Handles of every successfully submitted item in submission order.
	Handles []*submit.Handle

	// Per-item submission failures.
	Failures []*submit.Error

	// Items skipped because the ledger already had them.
	Skipped []workload.Item

	// The number of partitions that were fully processed.
	PartitionsCompleted int
}

// Dispatcher spreads work items across credentials and submits them one
// partition at a time. Partitions are never interleaved under one active
// credential.
type Dispatcher struct {
	cfg Config
}

// NewDispatcher returns a new Dispatcher with the specified config.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("dispatcher: config validation failed: %w", err)
	}
	return &Dispatcher{cfg: cfg}, nil
}

// Run partitions items round-robin across the configured credentials and
// submits each partition under its own credential, in order. A credential
// that cannot be loaded or activated halts the run; per-item submission
// failures are collected and the run continues with the next item.
func (d *Dispatcher) Run(ctx context.Context, items []workload.Item) (*Result, error) {
	res := &Result{Run: uuid.New()}
	logger := d.cfg.Logger.WithField("run", res.Run.String())

	creds := d.cfg.Credentials
	if !d.cfg.UseMultipleCredentials && len(creds) > 1 {
		creds = creds[:1]
	}
	parts, err := partition.RoundRobin(items, len(creds))
	if err != nil {
		return res, xerrors.Errorf("dispatch: %w", credentialsErr(err))
	}

	if d.cfg.Ledger != nil {
		if err = d.cfg.Ledger.UpsertStage(&ledger.Stage{Name: d.cfg.Stage}); err != nil {
			return res, xerrors.Errorf("dispatch: %w", err)
		}
	}

	provisioned := d.cfg.Provisioner == nil
	for p, part := range parts {
		if len(part) == 0 {
			res.PartitionsCompleted++
			continue
		}

		ref := creds[p]
		plogger := logger.WithFields(logrus.Fields{"partition": p, "credential": ref.Name})
		if err = d.activate(ctx, ref); err != nil {
			return res, xerrors.Errorf("dispatch partition %d: %w", p, err)
		}
		plogger.WithField("items", len(part)).Info("activated credential")

		if !provisioned {
			if err = d.cfg.Provisioner.EnsureAll(ctx, d.cfg.Containers); err != nil {
				return res, xerrors.Errorf("dispatch: provision containers: %w", err)
			}
			provisioned = true
		}

		for _, item := range part {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			d.submitItem(ctx, plogger, res, item)
		}
		res.PartitionsCompleted++

		if d.cfg.TrackBetweenPartitions {
			if _, err = d.cfg.Tracker.Once(ctx); err != nil {
				plogger.WithField("err", err).Warn("unable to poll task status")
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"submitted": len(res.Handles),
		"failed":    len(res.Failures),
		"skipped":   len(res.Skipped),
	}).Info("dispatch complete")
	return res, nil
}

func (d *Dispatcher) activate(ctx context.Context, ref credential.Ref) error {
	cred, err := d.cfg.Loader(ref)
	if err != nil {
		return err
	}
	if err = d.cfg.Session.Activate(ctx, cred); err != nil {
		return err
	}
	return d.cfg.Session.Verify(ctx)
}

func (d *Dispatcher) submitItem(ctx context.Context, logger *logrus.Entry, res *Result, item workload.Item) {
	ilogger := logger.WithField("item", item.Key())

	if d.cfg.SkipRecorded {
		recorded, err := d.cfg.Ledger.Submitted(d.cfg.Stage, item.Key())
		if err != nil {
			ilogger.WithField("err", err).Warn("unable to consult ledger; submitting anyway")
		} else if recorded {
			ilogger.Info("skipping item already present in the ledger")
			res.Skipped = append(res.Skipped, item)
			return
		}
	}

	handle, err := d.cfg.Submitter.Submit(ctx, item, d.cfg.Builder)
	if err != nil {
		var subErr *submit.Error
		if !xerrors.As(err, &subErr) {
			subErr = &submit.Error{Item: item, Err: err}
		}
		ilogger.WithField("err", err).Error("submission failed")
		res.Failures = append(res.Failures, subErr)
		return
	}
	res.Handles = append(res.Handles, handle)

	if d.cfg.Ledger == nil {
		return
	}
	err = d.cfg.Ledger.Record(&ledger.Submission{
		Run:         res.Run,
		Stage:       d.cfg.Stage,
		Item:        item.Key(),
		Credential:  handle.Credential,
		TaskID:      handle.TaskID,
		Description: handle.Description,
		SubmittedAt: d.cfg.Clock.Now(),
	})
	if err != nil {
		ilogger.WithField("err", err).Warn("unable to record submission")
	}
}

func credentialsErr(err error) error {
	if xerrors.Is(err, partition.ErrInvalidPartitionCount) {
		return xerrors.Errorf("%v: %w", credential.ErrNoCredentials, err)
	}
	return err
}
