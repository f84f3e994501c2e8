package monitor

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/tnc-ca-geo/SAGE/monitor TaskLister

// TaskLister is implemented by objects that list the tasks visible to the
// currently active credential.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]*backend.Task, error)
	ActiveName() string
}

// Config encapsulates the settings for configuring a Monitor.
type Config struct {
	// The source of task listings.
	Lister TaskLister

	// A clock instance for timestamping snapshots and pacing loops. If
	// not specified, the wall-clock will be used instead.
	Clock clock.Clock

	// The writer that receives status reports. If not specified, reports
	// are written to os.Stdout.
	Out io.Writer

	// If set, reports also list the names of COMPLETED tasks.
	ListCompleted bool

	// An optional recorder that receives every snapshot.
	Recorder *Recorder

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Lister == nil {
		err = multierror.Append(err, xerrors.Errorf("task lister has not been provided"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Monitor observes the remote tasks of the active credential. It never
// changes task state; stopping a monitor stops observation only.
type Monitor struct {
	cfg Config
}

// NewMonitor returns a new Monitor with the specified config.
func NewMonitor(cfg Config) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("task monitor: config validation failed: %w", err)
	}
	return &Monitor{cfg: cfg}, nil
}

// Poll lists every task visible to the active credential and classifies
// it by state. Listing errors are returned as-is.
func (m *Monitor) Poll(ctx context.Context) (*Snapshot, error) {
	tasks, err := m.cfg.Lister.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	snap := newSnapshot(m.cfg.Lister.ActiveName(), m.cfg.Clock.Now(), tasks)
	exportGauges(snap)
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.Record(snap)
	}
	return snap, nil
}

// Report writes snap to the configured output.
func (m *Monitor) Report(snap *Snapshot) error {
	return WriteReport(m.cfg.Out, snap, m.cfg.ListCompleted)
}

// Once polls and reports a single time.
func (m *Monitor) Once(ctx context.Context) (*Snapshot, error) {
	snap, err := m.Poll(ctx)
	if err != nil {
		return nil, err
	}
	if err = m.Report(snap); err != nil {
		return nil, xerrors.Errorf("write report: %w", err)
	}
	return snap, nil
}

// Loop polls and reports every interval until stop holds for a snapshot or
// ctx is cancelled. Cancellation is not an error.
func (m *Monitor) Loop(ctx context.Context, interval time.Duration, stop StopCondition) error {
	for {
		snap, err := m.Once(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if stop(snap) {
			m.cfg.Logger.WithField("credential", snap.Credential).Info("stop condition reached")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.cfg.Clock.After(interval):
		}
	}
}
