package test

import (
	"context"
	"fmt"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
)

// StateDriver is implemented by backends whose task states can be
// transitioned from tests.
type StateDriver interface {
	SetTaskState(id string, state backend.TaskState, errMsg string) error
}

// SuiteBase defines a re-usable set of backend related tests that can be
// executed against any type that implements backend.Backend.
type SuiteBase struct {
	b      backend.Backend
	driver StateDriver
}

// SetBackend configures the test-suite to run all tests against b, using
// driver to move tasks between states.
func (s *SuiteBase) SetBackend(b backend.Backend, driver StateDriver) {
	s.b = b
	s.driver = driver
}

func (s *SuiteBase) TestSubmitAndList(c *gc.C) {
	ctx := context.TODO()

	var ids []string
	for i := 0; i < 3; i++ {
		receipt, err := s.b.Submit(ctx, imageSpec(fmt.Sprintf("LT_Stack_NBR_%d", 1985+i)))
		c.Assert(err, gc.IsNil)
		c.Assert(receipt.TaskID, gc.Not(gc.Equals), "")
		c.Assert(receipt.Description, gc.Equals, fmt.Sprintf("LT_Stack_NBR_%d", 1985+i))
		ids = append(ids, receipt.TaskID)
	}

	tasks, err := s.b.ListTasks(ctx)
	c.Assert(err, gc.IsNil)
	c.Assert(tasks, gc.HasLen, 3)

	seen := make(map[string]bool)
	for _, task := range tasks {
		seen[task.ID] = true
		c.Assert(task.State, gc.Equals, backend.StateReady)
	}
	for _, id := range ids {
		c.Assert(seen[id], gc.Equals, true, gc.Commentf("task %s not listed", id))
	}
}

func (s *SuiteBase) TestTaskTransitions(c *gc.C) {
	ctx := context.TODO()

	running, err := s.b.Submit(ctx, imageSpec("running"))
	c.Assert(err, gc.IsNil)
	failed, err := s.b.Submit(ctx, imageSpec("failed"))
	c.Assert(err, gc.IsNil)

	c.Assert(s.driver.SetTaskState(running.TaskID, backend.StateRunning, ""), gc.IsNil)
	c.Assert(s.driver.SetTaskState(failed.TaskID, backend.StateFailed, "Internal error"), gc.IsNil)

	tasks, err := s.b.ListTasks(ctx)
	c.Assert(err, gc.IsNil)
	c.Assert(tasks, gc.HasLen, 2)
	for _, task := range tasks {
		switch task.ID {
		case running.TaskID:
			c.Assert(task.State, gc.Equals, backend.StateRunning)
			c.Assert(task.StartedAt.IsZero(), gc.Equals, false)
		case failed.TaskID:
			c.Assert(task.State, gc.Equals, backend.StateFailed)
			c.Assert(task.ErrorMessage, gc.Equals, "Internal error")
		default:
			c.Fatalf("unexpected task %s", task.ID)
		}
	}
}

func (s *SuiteBase) TestSubmitNameCollision(c *gc.C) {
	ctx := context.TODO()

	first, err := s.b.Submit(ctx, imageSpec("LT_Stack_NDVI_1985_2021"))
	c.Assert(err, gc.IsNil)

	_, err = s.b.Submit(ctx, imageSpec("LT_Stack_NDVI_1985_2021"))
	c.Assert(xerrors.Is(err, backend.ErrNameCollision), gc.Equals, true, gc.Commentf("got %v", err))

	// A failed task no longer holds on to its destination.
	c.Assert(s.driver.SetTaskState(first.TaskID, backend.StateFailed, "Internal error"), gc.IsNil)
	_, err = s.b.Submit(ctx, imageSpec("LT_Stack_NDVI_1985_2021"))
	c.Assert(err, gc.IsNil)
}

func (s *SuiteBase) TestSubmitMalformedSpec(c *gc.C) {
	spec := imageSpec("no-crs")
	spec.CRS = ""

	_, err := s.b.Submit(context.TODO(), spec)
	c.Assert(xerrors.Is(err, backend.ErrMalformedSpec), gc.Equals, true, gc.Commentf("got %v", err))

	_, err = s.b.Submit(context.TODO(), nil)
	c.Assert(xerrors.Is(err, backend.ErrMalformedSpec), gc.Equals, true, gc.Commentf("got %v", err))
}

func (s *SuiteBase) TestContainers(c *gc.C) {
	ctx := context.TODO()
	path := "projects/sage/Raster-Data"

	exists, err := s.b.ContainerExists(ctx, path)
	c.Assert(err, gc.IsNil)
	c.Assert(exists, gc.Equals, false)

	err = s.b.SetAccessPolicy(ctx, path, backend.AccessPolicy{AllUsersCanRead: true})
	c.Assert(xerrors.Is(err, backend.ErrNotFound), gc.Equals, true, gc.Commentf("got %v", err))

	c.Assert(s.b.CreateContainer(ctx, path, backend.ContainerFolder), gc.IsNil)
	exists, err = s.b.ContainerExists(ctx, path)
	c.Assert(err, gc.IsNil)
	c.Assert(exists, gc.Equals, true)

	err = s.b.CreateContainer(ctx, path, backend.ContainerFolder)
	c.Assert(xerrors.Is(err, backend.ErrAlreadyExists), gc.Equals, true, gc.Commentf("got %v", err))

	c.Assert(s.b.SetAccessPolicy(ctx, path, backend.AccessPolicy{AllUsersCanRead: true}), gc.IsNil)
}

func imageSpec(name string) *backend.JobSpec {
	return &backend.JobSpec{
		Description: name,
		Kind:        backend.ExportImage,
		Destination: "projects/sage/LandTrendr-Collection/" + name,
		Computation: backend.Computation{Ref: "landtrendr"},
		CRS:         "EPSG:5070",
		Transform:   []float64{30, 0, -2361915.0, 0, -30, 3177735.0},
	}
}
