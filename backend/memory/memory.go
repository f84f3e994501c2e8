package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/credential"
)

// Compile-time check for ensuring Account implements backend.Backend.
var _ backend.Backend = (*Account)(nil)

type asset struct {
	kind   backend.ContainerKind
	policy backend.AccessPolicy
}

type task struct {
	backend.Task
	account string
}

// InMemoryBackend emulates the remote batch compute backend. Assets are
// shared between all accounts while each account only sees the tasks it
// submitted. It can be concurrently accessed by multiple clients.
type InMemoryBackend struct {
	mu  sync.RWMutex
	clk clock.Clock

	// [<asset path>] --> asset
	assets map[string]*asset

	// [<task id>] --> task
	tasks map[string]*task

	// [<account name>] --> <task ids in submission order>
	accountTasks map[string][]string

	// [<asset path>] --> <number of successful CreateContainer calls>
	creations map[string]int

	// Accounts whose credentials are rejected.
	revoked map[string]bool
}

// NewInMemoryBackend returns an in-memory backend that uses clk to
// timestamp task transitions. A nil clk selects the wall clock.
func NewInMemoryBackend(clk clock.Clock) *InMemoryBackend {
	if clk == nil {
		clk = clock.WallClock
	}
	return &InMemoryBackend{
		clk:          clk,
		assets:       make(map[string]*asset),
		tasks:        make(map[string]*task),
		accountTasks: make(map[string][]string),
		creations:    make(map[string]int),
		revoked:      make(map[string]bool),
	}
}

// Account returns a view of the backend authenticated as the named account.
func (b *InMemoryBackend) Account(name string) *Account {
	return &Account{b: b, name: name}
}

// Connect returns the account view matching the credential name.
func (b *InMemoryBackend) Connect(_ context.Context, cred *credential.Credential) (backend.Backend, error) {
	if cred == nil {
		return nil, xerrors.Errorf("connect: %w", backend.ErrUnauthenticated)
	}
	return b.Account(cred.Name), nil
}

// Revoke causes every subsequent call made by the named account to fail
// with backend.ErrUnauthenticated.
func (b *InMemoryBackend) Revoke(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[account] = true
}

// SetTaskState transitions a task. Moving a task to RUNNING records its
// start time; completing a task materialises its destination asset.
func (b *InMemoryBackend) SetTaskState(id string, state backend.TaskState, errMsg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, found := b.tasks[id]
	if !found {
		return xerrors.Errorf("set task state %s: %w", id, backend.ErrNotFound)
	}

	now := b.clk.Now()
	t.State = state
	t.UpdatedAt = now
	t.ErrorMessage = errMsg
	switch state {
	case backend.StateRunning:
		t.StartedAt = now
	case backend.StateCompleted:
		b.assets[t.Destination] = &asset{kind: "Asset"}
	}
	return nil
}

// Progress moves every READY task to RUNNING and every RUNNING task to
// COMPLETED. It returns the number of tasks that changed state.
func (b *InMemoryBackend) Progress() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()
	var changed int
	for _, t := range b.tasks {
		switch t.State {
		case backend.StateReady:
			t.State, t.StartedAt = backend.StateRunning, now
		case backend.StateRunning:
			t.State = backend.StateCompleted
			b.assets[t.Destination] = &asset{kind: "Asset"}
		default:
			continue
		}
		t.UpdatedAt = now
		changed++
	}
	return changed
}

// AccountTasks returns a copy of the tasks submitted by an account, in
// submission order.
func (b *InMemoryBackend) AccountTasks(account string) []*backend.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := b.accountTasks[account]
	list := make([]*backend.Task, 0, len(ids))
	for _, id := range ids {
		tCopy := b.tasks[id].Task
		list = append(list, &tCopy)
	}
	return list
}

// Creations returns how many times a container was created at path.
func (b *InMemoryBackend) Creations(path string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.creations[path]
}

// Policy returns the access policy of the container at path.
func (b *InMemoryBackend) Policy(path string) (backend.AccessPolicy, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, found := b.assets[normalizePath(path)]
	if !found {
		return backend.AccessPolicy{}, xerrors.Errorf("policy %s: %w", path, backend.ErrNotFound)
	}
	return a.policy, nil
}

func (b *InMemoryBackend) checkAccount(name string) error {
	if name == "" || b.revoked[name] {
		return xerrors.Errorf("account %q: %w", name, backend.ErrUnauthenticated)
	}
	return nil
}

// Account is a backend.Backend bound to a single account of an
// InMemoryBackend.
type Account struct {
	b    *InMemoryBackend
	name string
}

// Name returns the account name.
func (a *Account) Name() string { return a.name }

// Submit implements backend.Backend.
func (a *Account) Submit(_ context.Context, spec *backend.JobSpec) (*backend.Receipt, error) {
	if spec == nil {
		return nil, xerrors.Errorf("submit: %w", backend.ErrMalformedSpec)
	} else if err := spec.Validate(); err != nil {
		return nil, xerrors.Errorf("submit: %w", err)
	}

	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if err := a.b.checkAccount(a.name); err != nil {
		return nil, err
	}

	dest := normalizePath(spec.Destination)
	if _, exists := a.b.assets[dest]; exists {
		return nil, xerrors.Errorf("submit %s: %w", dest, backend.ErrNameCollision)
	}
	for _, t := range a.b.tasks {
		if t.Destination == dest && t.State != backend.StateFailed {
			return nil, xerrors.Errorf("submit %s: %w", dest, backend.ErrNameCollision)
		}
	}

	t := &task{
		account: a.name,
		Task: backend.Task{
			ID:          strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:24]),
			Description: spec.Description,
			Destination: dest,
			State:       backend.StateReady,
			UpdatedAt:   a.b.clk.Now(),
		},
	}
	a.b.tasks[t.ID] = t
	a.b.accountTasks[a.name] = append(a.b.accountTasks[a.name], t.ID)

	return &backend.Receipt{TaskID: t.ID, Description: t.Description}, nil
}

// ListTasks implements backend.Backend. Tasks are returned most recently
// submitted first, the same order the remote backend uses.
func (a *Account) ListTasks(_ context.Context) ([]*backend.Task, error) {
	a.b.mu.RLock()
	defer a.b.mu.RUnlock()
	if err := a.b.checkAccount(a.name); err != nil {
		return nil, err
	}

	ids := a.b.accountTasks[a.name]
	list := make([]*backend.Task, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		tCopy := a.b.tasks[ids[i]].Task
		list = append(list, &tCopy)
	}
	return list, nil
}

// ContainerExists implements backend.Backend.
func (a *Account) ContainerExists(_ context.Context, path string) (bool, error) {
	a.b.mu.RLock()
	defer a.b.mu.RUnlock()
	if err := a.b.checkAccount(a.name); err != nil {
		return false, err
	}

	_, exists := a.b.assets[normalizePath(path)]
	return exists, nil
}

// CreateContainer implements backend.Backend.
func (a *Account) CreateContainer(_ context.Context, path string, kind backend.ContainerKind) error {
	if !kind.Valid() {
		return xerrors.Errorf("create container %s: unsupported container kind %q", path, kind)
	}

	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if err := a.b.checkAccount(a.name); err != nil {
		return err
	}

	path = normalizePath(path)
	if path == "" {
		return xerrors.Errorf("create container: empty path")
	} else if _, exists := a.b.assets[path]; exists {
		return xerrors.Errorf("create container %s: %w", path, backend.ErrAlreadyExists)
	}
	a.b.assets[path] = &asset{kind: kind}
	a.b.creations[path]++
	return nil
}

// SetAccessPolicy implements backend.Backend.
func (a *Account) SetAccessPolicy(_ context.Context, path string, policy backend.AccessPolicy) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if err := a.b.checkAccount(a.name); err != nil {
		return err
	}

	existing, found := a.b.assets[normalizePath(path)]
	if !found {
		return xerrors.Errorf("set access policy %s: %w", path, backend.ErrNotFound)
	}

	pCopy := policy
	pCopy.Readers = append([]string(nil), policy.Readers...)
	pCopy.Writers = append([]string(nil), policy.Writers...)
	sort.Strings(pCopy.Readers)
	sort.Strings(pCopy.Writers)
	existing.policy = pCopy
	return nil
}

func normalizePath(path string) string {
	return strings.TrimRight(strings.TrimSpace(path), "/")
}
