package session

import (
	"context"
	"testing"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/backend/memory"
	"github.com/tnc-ca-geo/SAGE/credential"
)

var _ = gc.Suite(new(SessionTestSuite))

type SessionTestSuite struct {
	mem *memory.InMemoryBackend
	lc  *credential.Credential
	rcr *credential.Credential
}

func (s *SessionTestSuite) SetUpTest(c *gc.C) {
	s.mem = memory.NewInMemoryBackend(nil)
	s.lc = &credential.Credential{Name: "credentialsLC", RefreshToken: "lc"}
	s.rcr = &credential.Credential{Name: "credentialsRCR1", RefreshToken: "rcr1"}
}

func (s *SessionTestSuite) TestCallsBeforeActivationFail(c *gc.C) {
	sess := New(s.mem, nil)

	_, err := sess.Active()
	c.Assert(err, gc.Equals, ErrNoActiveIdentity)
	c.Assert(sess.ActiveName(), gc.Equals, "")

	_, err = sess.ListTasks(context.TODO())
	c.Assert(err, gc.Equals, ErrNoActiveIdentity)
	_, err = sess.Submit(context.TODO(), &backend.JobSpec{})
	c.Assert(err, gc.Equals, ErrNoActiveIdentity)
	c.Assert(sess.Verify(context.TODO()), gc.Equals, ErrNoActiveIdentity)
}

func (s *SessionTestSuite) TestActivationScopesIdentity(c *gc.C) {
	ctx := context.TODO()
	sess := New(s.mem, nil)

	c.Assert(sess.Activate(ctx, s.lc), gc.IsNil)
	c.Assert(sess.ActiveName(), gc.Equals, "credentialsLC")
	_, err := sess.Submit(ctx, tableSpec("Apply_Table_1985"))
	c.Assert(err, gc.IsNil)

	c.Assert(sess.Activate(ctx, s.rcr), gc.IsNil)
	active, err := sess.Active()
	c.Assert(err, gc.IsNil)
	c.Assert(active, gc.Equals, s.rcr)
	_, err = sess.Submit(ctx, tableSpec("Apply_Table_1986"))
	c.Assert(err, gc.IsNil)

	c.Assert(s.mem.AccountTasks("credentialsLC"), gc.HasLen, 1)
	c.Assert(s.mem.AccountTasks("credentialsLC")[0].Description, gc.Equals, "Apply_Table_1985")
	c.Assert(s.mem.AccountTasks("credentialsRCR1"), gc.HasLen, 1)
	c.Assert(s.mem.AccountTasks("credentialsRCR1")[0].Description, gc.Equals, "Apply_Table_1986")

	tasks, err := sess.ListTasks(ctx)
	c.Assert(err, gc.IsNil)
	c.Assert(tasks, gc.HasLen, 1)
	c.Assert(tasks[0].Description, gc.Equals, "Apply_Table_1986")
}

func (s *SessionTestSuite) TestFailedActivationKeepsPreviousIdentity(c *gc.C) {
	ctx := context.TODO()
	failing := ConnectorFunc(func(ctx context.Context, cred *credential.Credential) (backend.Backend, error) {
		if cred.Name == "credentialsRCR1" {
			return nil, xerrors.New("token endpoint unreachable")
		}
		return s.mem.Connect(ctx, cred)
	})
	sess := New(failing, nil)

	c.Assert(sess.Activate(ctx, s.lc), gc.IsNil)
	err := sess.Activate(ctx, s.rcr)
	c.Assert(xerrors.Is(err, ErrActivation), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, "activate credentialsRCR1: token endpoint unreachable: unable to activate credential")
	c.Assert(sess.ActiveName(), gc.Equals, "credentialsLC")

	c.Assert(xerrors.Is(sess.Activate(ctx, nil), ErrActivation), gc.Equals, true)
}

func (s *SessionTestSuite) TestVerify(c *gc.C) {
	ctx := context.TODO()
	sess := New(s.mem, nil)

	c.Assert(sess.Activate(ctx, s.lc), gc.IsNil)
	c.Assert(sess.Verify(ctx), gc.IsNil)

	s.mem.Revoke("credentialsLC")
	err := sess.Verify(ctx)
	c.Assert(xerrors.Is(err, ErrActivation), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, "verify credentialsLC: .*unauthenticated: unable to activate credential")
}

func (s *SessionTestSuite) TestContainerCallsUseActiveIdentity(c *gc.C) {
	ctx := context.TODO()
	sess := New(s.mem, nil)
	c.Assert(sess.Activate(ctx, s.lc), gc.IsNil)

	c.Assert(sess.CreateContainer(ctx, "projects/sage", backend.ContainerFolder), gc.IsNil)
	exists, err := sess.ContainerExists(ctx, "projects/sage")
	c.Assert(err, gc.IsNil)
	c.Assert(exists, gc.Equals, true)
	c.Assert(sess.SetAccessPolicy(ctx, "projects/sage", backend.AccessPolicy{AllUsersCanRead: true}), gc.IsNil)
}

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

func tableSpec(name string) *backend.JobSpec {
	return &backend.JobSpec{
		Description: name,
		Kind:        backend.ExportTable,
		Destination: "projects/sage/Tables/" + name,
		Computation: backend.Computation{Ref: "zonal-means"},
	}
}
