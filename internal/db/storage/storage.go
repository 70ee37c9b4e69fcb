// Package storage declares the persistence contract shared by every
// storage backend, together with the sentinel errors the backends map
// their driver-specific failures onto.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

// ErrNotFound is returned when a record is absent or, for task mutations,
// when the task exists but belongs to another user. The two cases are
// indistinguishable to the caller.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned by CreateUser when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// UserKeeper persists credential records.
type UserKeeper interface {
	// CreateUser stores a new user and returns its ID.
	// Returns ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
}

// TaskKeeper persists task records. Every mutation is a single compound
// "match id AND owner" operation; the owner check is never performed
// separately in application code.
type TaskKeeper interface {
	CreateTask(ctx context.Context, tsk *task.Task) (string, error)

	// GetUserTasks returns the tasks owned by ownerID, newest first.
	GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error)

	// UpdateTask applies the non-nil fields of patch to the task with the
	// given id owned by ownerID and returns the updated record.
	UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error)

	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// StatsKeeper reports aggregate counts for the internal stats endpoint.
type StatsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfTasks(ctx context.Context) (int64, error)
}

// Storage is the full contract a backend must satisfy.
type Storage interface {
	UserKeeper
	TaskKeeper
	StatsKeeper

	Ping(ctx context.Context) error

	Close() error
}
