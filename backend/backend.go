package backend

import (
	"context"
	"time"
)

// Backend is implemented by objects that expose the remote batch compute
// API under a single authenticated identity.
type Backend interface {
	// Submit queues a new task described by spec. It returns once the
	// backend has acknowledged the task; it does not wait for completion.
	Submit(ctx context.Context, spec *JobSpec) (*Receipt, error)

	// ListTasks returns every task visible to the authenticated identity.
	ListTasks(ctx context.Context) ([]*Task, error)

	// ContainerExists reports whether an asset container exists at path.
	ContainerExists(ctx context.Context, path string) (bool, error)

	// CreateContainer creates a new asset container at path. It returns
	// ErrAlreadyExists if the path is already taken.
	CreateContainer(ctx context.Context, path string, kind ContainerKind) error

	// SetAccessPolicy replaces the access policy of the container at path.
	SetAccessPolicy(ctx context.Context, path string, policy AccessPolicy) error
}

// Receipt is returned by the backend when it accepts a submission.
type Receipt struct {
	TaskID      string `json:"id"`
	Description string `json:"description"`
}

// Task describes a remote task as reported by the backend.
type Task struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Destination  string    `json:"destination,omitempty"`
	State        TaskState `json:"state"`
	StartedAt    time.Time `json:"start_timestamp"`
	UpdatedAt    time.Time `json:"update_timestamp"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ContainerKind describes the type of an asset container.
type ContainerKind string

const (
	// ContainerFolder is a plain folder that may hold any asset.
	ContainerFolder ContainerKind = "Folder"

	// ContainerImageCollection holds image exports.
	ContainerImageCollection ContainerKind = "ImageCollection"
)

// Valid returns true if k is one of the supported container kinds.
func (k ContainerKind) Valid() bool {
	return k == ContainerFolder || k == ContainerImageCollection
}

// AccessPolicy controls who may read a container.
type AccessPolicy struct {
	AllUsersCanRead bool     `json:"all_users_can_read"`
	Readers         []string `json:"readers,omitempty"`
	Writers         []string `json:"writers,omitempty"`
}
