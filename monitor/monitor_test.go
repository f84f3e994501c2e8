package monitor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/monitor/mocks"
)

var _ = gc.Suite(new(ConfigTestSuite))
var _ = gc.Suite(new(MonitorTestSuite))
var _ = gc.Suite(new(ReportTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

var now = time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)

type ConfigTestSuite struct{}

func (s *ConfigTestSuite) TestConfigValidation(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	cfg := Config{Lister: mocks.NewMockTaskLister(ctrl)}
	c.Assert(cfg.validate(), gc.IsNil)
	c.Assert(cfg.Clock, gc.Not(gc.IsNil), gc.Commentf("default clock was not assigned"))
	c.Assert(cfg.Out, gc.Not(gc.IsNil), gc.Commentf("default output was not assigned"))
	c.Assert(cfg.Logger, gc.Not(gc.IsNil), gc.Commentf("default logger was not assigned"))

	cfg = Config{}
	c.Assert(cfg.validate(), gc.ErrorMatches, "(?ms).*task lister has not been provided.*")
}

type MonitorTestSuite struct{}

func (s *MonitorTestSuite) TestPollClassifiesEveryTask(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	lister := mocks.NewMockTaskLister(ctrl)

	tasks := mixedTasks()
	tasks = append(tasks,
		&backend.Task{ID: "c1", Description: "cancelled", State: "CANCELLED"},
		&backend.Task{ID: "u1", Description: "unsubmitted", State: "UNSUBMITTED"},
	)
	lister.EXPECT().ListTasks(gomock.Any()).Return(tasks, nil)
	lister.EXPECT().ActiveName().Return("credentialsLC")

	rec := NewRecorder()
	m := s.monitor(c, lister, testclock.NewClock(now), new(bytes.Buffer), rec)
	snap, err := m.Poll(context.TODO())
	c.Assert(err, gc.IsNil)

	c.Assert(snap.Credential, gc.Equals, "credentialsLC")
	c.Assert(snap.TakenAt, gc.Equals, now)
	c.Assert(snap.Total, gc.Equals, 12)
	c.Assert(snap.Count(backend.StateReady), gc.Equals, 2)
	c.Assert(snap.Count(backend.StateRunning), gc.Equals, 3)
	c.Assert(snap.Count(backend.StateFailed), gc.Equals, 2)
	c.Assert(snap.Count(backend.StateCompleted), gc.Equals, 5)

	var sum int
	for _, state := range backend.States {
		sum += snap.Count(state)
	}
	c.Assert(sum, gc.Equals, snap.Total)

	latest, found := rec.Latest("credentialsLC")
	c.Assert(found, gc.Equals, true)
	c.Assert(latest, gc.Equals, snap)
	c.Assert(testutil.ToFloat64(tasksGauge.WithLabelValues("credentialsLC", "RUNNING")), gc.Equals, float64(3))
}

func (s *MonitorTestSuite) TestPollErrorsAreReturnedUnchanged(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	lister := mocks.NewMockTaskLister(ctrl)

	listErr := xerrors.New("connection reset by peer")
	lister.EXPECT().ListTasks(gomock.Any()).Return(nil, listErr)

	m := s.monitor(c, lister, testclock.NewClock(now), new(bytes.Buffer), nil)
	_, err := m.Poll(context.TODO())
	c.Assert(err, gc.Equals, listErr)

	lister.EXPECT().ListTasks(gomock.Any()).Return(nil, listErr)
	err = m.Loop(context.TODO(), time.Minute, Forever)
	c.Assert(err, gc.Equals, listErr)
}

func (s *MonitorTestSuite) TestLoopUntilAllTerminal(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	lister := mocks.NewMockTaskLister(ctrl)
	clk := testclock.NewClock(now)

	lister.EXPECT().ActiveName().Return("credentialsLC").AnyTimes()
	gomock.InOrder(
		lister.EXPECT().ListTasks(gomock.Any()).Return(mixedTasks(), nil),
		lister.EXPECT().ListTasks(gomock.Any()).Return([]*backend.Task{
			{ID: "r1", Description: "LT_Stack_NBR_1985_2021", State: backend.StateCompleted},
			{ID: "f1", Description: "LT_Stack_B5_1985_2021", State: backend.StateFailed, ErrorMessage: "Internal error"},
		}, nil),
	)

	var out bytes.Buffer
	m := s.monitor(c, lister, clk, &out, nil)

	go func() {
		// Wait until the loop calls time.After and advance the time to
		// trigger the second poll.
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), gc.IsNil)
	}()

	c.Assert(m.Loop(context.TODO(), time.Minute, UntilAllTerminal), gc.IsNil)
	c.Assert(strings.Count(out.String(), "credential credentialsLC\n"), gc.Equals, 2)
	c.Assert(out.String(), gc.Matches, "(?s).*0 tasks running 2022-06-01 12:01:00.*")
}

func (s *MonitorTestSuite) TestLoopStopsOnCancellation(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	lister := mocks.NewMockTaskLister(ctrl)
	clk := testclock.NewClock(now)

	lister.EXPECT().ActiveName().Return("credentialsLC").AnyTimes()
	lister.EXPECT().ListTasks(gomock.Any()).Return(mixedTasks(), nil).Times(2)

	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	m := s.monitor(c, lister, clk, new(bytes.Buffer), nil)
	go func() {
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), gc.IsNil)
		c.Assert(clk.WaitAdvance(time.Millisecond, 10*time.Second, 1), gc.IsNil)
		cancelFn()
	}()

	c.Assert(m.Loop(ctx, time.Minute, Forever), gc.IsNil)
}

func (s *MonitorTestSuite) TestUntilTasksTerminal(c *gc.C) {
	stop := UntilTasksTerminal("r1", "f1")

	c.Assert(stop(newSnapshot("lc", now, mixedTasks())), gc.Equals, false)
	c.Assert(stop(newSnapshot("lc", now, []*backend.Task{
		{ID: "r1", State: backend.StateCompleted},
	})), gc.Equals, false)
	c.Assert(stop(newSnapshot("lc", now, []*backend.Task{
		{ID: "r1", State: backend.StateCompleted},
		{ID: "f1", State: backend.StateFailed},
		{ID: "other", State: backend.StateRunning},
	})), gc.Equals, true)
}

func (s *MonitorTestSuite) TestRecorderOrdersByCredential(c *gc.C) {
	rec := NewRecorder()
	rec.Record(newSnapshot("credentialsRCR1", now, nil))
	rec.Record(newSnapshot("credentialsLC", now, nil))
	rec.Record(newSnapshot("credentialsLC", now.Add(time.Minute), nil))

	snaps := rec.Snapshots()
	c.Assert(snaps, gc.HasLen, 2)
	c.Assert(snaps[0].Credential, gc.Equals, "credentialsLC")
	c.Assert(snaps[0].TakenAt, gc.Equals, now.Add(time.Minute))
	c.Assert(snaps[1].Credential, gc.Equals, "credentialsRCR1")
}

func (s *MonitorTestSuite) monitor(c *gc.C, lister TaskLister, clk *testclock.Clock, out *bytes.Buffer, rec *Recorder) *Monitor {
	m, err := NewMonitor(Config{
		Lister:   lister,
		Clock:    clk,
		Out:      out,
		Recorder: rec,
	})
	c.Assert(err, gc.IsNil)
	return m
}

type ReportTestSuite struct{}

func (s *ReportTestSuite) TestReport(c *gc.C) {
	var out bytes.Buffer
	c.Assert(WriteReport(&out, newSnapshot("credentialsLC", now, mixedTasks()), false), gc.IsNil)

	c.Assert(out.String(), gc.Equals, strings.Join([]string{
		"credential credentialsLC",
		"1 tasks ready 2022-06-01 12:00:00",
		"3 tasks running 2022-06-01 12:00:00",
		"1 tasks failed 2022-06-01 12:00:00",
		"5 tasks completed 2022-06-01 12:00:00",
		"Running names:",
		"  LT_Stack_NBR_1985_2021 0:00:59",
		"  LT_Stack_NDVI_1985_2021 1:01:01",
		"  LT_Stack_NDSI_1985_2021 27:46:40",
		"Failed names:",
		"  LT_Stack_B5_1985_2021: Internal error",
		"",
		"",
	}, "\n"))
}

func (s *ReportTestSuite) TestReportListsCompletedWhenAsked(c *gc.C) {
	var out bytes.Buffer
	c.Assert(WriteReport(&out, newSnapshot("", now, mixedTasks()), true), gc.IsNil)

	c.Assert(strings.HasPrefix(out.String(), "1 tasks ready"), gc.Equals, true)
	c.Assert(out.String(), gc.Matches, "(?s).*Completed names:\n  Done_0\n  Done_1\n  Done_2\n  Done_3\n  Done_4\n\n")
}

func (s *ReportTestSuite) TestFormatElapsed(c *gc.C) {
	specs := []struct {
		in  time.Duration
		exp string
	}{
		{0, "0:00:00"},
		{-time.Minute, "0:00:00"},
		{59*time.Second + 999*time.Millisecond, "0:00:59"},
		{time.Hour + time.Minute + time.Second, "1:01:01"},
		{100000 * time.Second, "27:46:40"},
	}
	for i, spec := range specs {
		c.Assert(FormatElapsed(spec.in), gc.Equals, spec.exp, gc.Commentf("spec %d", i))
	}
}

func mixedTasks() []*backend.Task {
	tasks := []*backend.Task{
		{ID: "q1", Description: "LT_Stack_TCB_1985_2021", State: backend.StateReady},
		{ID: "r1", Description: "LT_Stack_NBR_1985_2021", State: backend.StateRunning, StartedAt: now.Add(-59 * time.Second)},
		{ID: "r2", Description: "LT_Stack_NDVI_1985_2021", State: backend.StateRunning, StartedAt: now.Add(-(time.Hour + time.Minute + time.Second))},
		{ID: "r3", Description: "LT_Stack_NDSI_1985_2021", State: backend.StateRunning, StartedAt: now.Add(-100000 * time.Second)},
		{ID: "f1", Description: "LT_Stack_B5_1985_2021", State: backend.StateFailed, ErrorMessage: "Internal error"},
	}
	for i := 0; i < 5; i++ {
		tasks = append(tasks, &backend.Task{
			ID:          fmt.Sprintf("d%d", i),
			Description: fmt.Sprintf("Done_%d", i),
			State:       backend.StateCompleted,
		})
	}
	return tasks
}
