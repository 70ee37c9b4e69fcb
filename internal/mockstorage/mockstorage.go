// Package mockstorage provides a testify-based mock implementation
// of the storage interface. It is used for unit testing HTTP handlers
// and services by simulating storage behavior, including failures the
// real backends only produce when the database is down.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/todolst/internal/task"
	"github.com/patric-chuzhbe/todolst/internal/user"
)

// StorageMock is a testify mock that implements the storage interface.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks storing a new user record.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// FindUserByEmail mocks the email lookup.
func (m *StorageMock) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// CreateTask mocks storing a new task record.
func (m *StorageMock) CreateTask(ctx context.Context, tsk *task.Task) (string, error) {
	args := m.Called(ctx, tsk)
	return args.String(0), args.Error(1)
}

// GetUserTasks mocks listing the owner's tasks.
func (m *StorageMock) GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error) {
	args := m.Called(ctx, ownerID)
	tasks, _ := args.Get(0).([]task.Task)
	return tasks, args.Error(1)
}

// UpdateTask mocks the compound id-and-owner update.
func (m *StorageMock) UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, ownerID, taskID, patch)
	tsk, _ := args.Get(0).(*task.Task)
	return tsk, args.Error(1)
}

// DeleteTask mocks the compound id-and-owner delete.
func (m *StorageMock) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	args := m.Called(ctx, ownerID, taskID)
	return args.Error(0)
}

// GetNumberOfUsers mocks the user count.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfTasks mocks the task count.
func (m *StorageMock) GetNumberOfTasks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the backend.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
