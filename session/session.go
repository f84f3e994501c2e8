package session

import (
	"context"
	"io/ioutil"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/credential"
)

var (
	// ErrNoActiveIdentity is returned by remote calls made before any
	// credential has been activated.
	ErrNoActiveIdentity = xerrors.New("no active identity")

	// ErrActivation is returned when a credential cannot be bound to the
	// session or fails verification.
	ErrActivation = xerrors.New("unable to activate credential")

	// Compile-time check for ensuring Session implements backend.Backend.
	_ backend.Backend = (*Session)(nil)
)

// Connector is implemented by objects that can open a backend client
// authenticated with a credential.
type Connector interface {
	Connect(ctx context.Context, cred *credential.Credential) (backend.Backend, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, cred *credential.Credential) (backend.Backend, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context, cred *credential.Credential) (backend.Backend, error) {
	return f(ctx, cred)
}

// Session owns the process' current remote identity. All remote calls made
// through a Session are attributed to the credential passed to the most
// recent Activate call. Exactly one identity is active at a time.
type Session struct {
	connector Connector
	logger    *logrus.Entry

	mu     sync.RWMutex
	active *credential.Credential
	client backend.Backend
}

// New returns a session without an active identity. A nil logger discards
// all output.
func New(connector Connector, logger *logrus.Entry) *Session {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return &Session{connector: connector, logger: logger}
}

// Activate binds cred as the current identity. On failure the previously
// active identity, if any, remains bound.
func (s *Session) Activate(ctx context.Context, cred *credential.Credential) error {
	if cred == nil {
		return xerrors.Errorf("activate: nil credential: %w", ErrActivation)
	}

	client, err := s.connector.Connect(ctx, cred)
	if err != nil {
		return xerrors.Errorf("activate %s: %v: %w", cred.Name, err, ErrActivation)
	}

	s.mu.Lock()
	s.active, s.client = cred, client
	s.mu.Unlock()

	s.logger.WithField("credential", cred.Name).Info("initialized remote session")
	return nil
}

// Verify issues a cheap authenticated call to confirm that the active
// identity is accepted by the backend.
func (s *Session) Verify(ctx context.Context) error {
	client, cred, err := s.current()
	if err != nil {
		return err
	}
	if _, err = client.ListTasks(ctx); err != nil {
		return xerrors.Errorf("verify %s: %v: %w", cred.Name, err, ErrActivation)
	}
	return nil
}

// Active returns the currently bound credential.
func (s *Session) Active() (*credential.Credential, error) {
	_, cred, err := s.current()
	return cred, err
}

// ActiveName returns the name of the currently bound credential or an
// empty string when none is bound.
func (s *Session) ActiveName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return ""
	}
	return s.active.Name
}

// Backend returns the client bound to the active identity.
func (s *Session) Backend() (backend.Backend, error) {
	client, _, err := s.current()
	return client, err
}

func (s *Session) current() (backend.Backend, *credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, nil, ErrNoActiveIdentity
	}
	return s.client, s.active, nil
}

// Submit implements backend.Backend using the active identity.
func (s *Session) Submit(ctx context.Context, spec *backend.JobSpec) (*backend.Receipt, error) {
	client, err := s.Backend()
	if err != nil {
		return nil, err
	}
	return client.Submit(ctx, spec)
}

// ListTasks implements backend.Backend using the active identity.
func (s *Session) ListTasks(ctx context.Context) ([]*backend.Task, error) {
	client, err := s.Backend()
	if err != nil {
		return nil, err
	}
	return client.ListTasks(ctx)
}

// ContainerExists implements backend.Backend using the active identity.
func (s *Session) ContainerExists(ctx context.Context, path string) (bool, error) {
	client, err := s.Backend()
	if err != nil {
		return false, err
	}
	return client.ContainerExists(ctx, path)
}

// CreateContainer implements backend.Backend using the active identity.
func (s *Session) CreateContainer(ctx context.Context, path string, kind backend.ContainerKind) error {
	client, err := s.Backend()
	if err != nil {
		return err
	}
	return client.CreateContainer(ctx, path, kind)
}

// SetAccessPolicy implements backend.Backend using the active identity.
func (s *Session) SetAccessPolicy(ctx context.Context, path string, policy backend.AccessPolicy) error {
	client, err := s.Backend()
	if err != nil {
		return err
	}
	return client.SetAccessPolicy(ctx, path, policy)
}
