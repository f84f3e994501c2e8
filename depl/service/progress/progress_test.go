package progress

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/backend/memory"
)

var _ = gc.Suite(new(ProgressTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type ProgressTestSuite struct{}

func (s *ProgressTestSuite) TestTasksCompleteAfterTwoSteps(c *gc.C) {
	clk := testclock.NewClock(time.Now())
	mem := memory.NewInMemoryBackend(clk)
	receipt, err := mem.Account("credentialsLC").Submit(context.TODO(), &backend.JobSpec{
		Description: "Apply_Table_2004",
		Kind:        backend.ExportTable,
		Destination: "projects/sage/Tables/Apply_Table_2004",
		Computation: backend.Computation{Ref: "zonal-means"},
	})
	c.Assert(err, gc.IsNil)

	svc, err := NewService(Config{Stepper: mem, StepInterval: time.Minute, Clock: clk})
	c.Assert(err, gc.IsNil)

	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	go func() {
		// Two steps take the task from READY to COMPLETED. Wait for the
		// third timer before cancelling.
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), gc.IsNil)
		c.Assert(clk.WaitAdvance(time.Minute, 10*time.Second, 1), gc.IsNil)
		c.Assert(clk.WaitAdvance(time.Millisecond, 10*time.Second, 1), gc.IsNil)
		cancelFn()
	}()

	c.Assert(svc.Run(ctx), gc.IsNil)
	tasks := mem.AccountTasks("credentialsLC")
	c.Assert(tasks, gc.HasLen, 1)
	c.Assert(tasks[0].ID, gc.Equals, receipt.TaskID)
	c.Assert(tasks[0].State, gc.Equals, backend.StateCompleted)
}

func (s *ProgressTestSuite) TestConfigValidation(c *gc.C) {
	cfg := Config{}
	err := cfg.validate()
	c.Assert(err, gc.ErrorMatches, "(?ms).*stepper has not been provided.*")
	c.Assert(err, gc.ErrorMatches, "(?ms).*invalid value for step interval.*")
	c.Assert(cfg.Clock, gc.NotNil)
	c.Assert(cfg.Logger, gc.NotNil)
}
