// Package memorystorage provides an ephemeral storage backend built on
// the jsondb cache without a backing file. It is the fallback when no
// persistent storage is configured, and the default backend in tests.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/todolst/internal/db/jsondb"
	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

// MemoryStorage keeps all records in memory for the lifetime of the process.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an initialized in-memory storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users:         map[string]*user.User{},
				EmailToUserID: map[string]string{},
				Tasks:         map[string]*task.Task{},
				TaskOrder:     []string{},
			},
		},
	}, nil
}

// Close is a no-op; there is nothing to flush.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Ping always succeeds.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
