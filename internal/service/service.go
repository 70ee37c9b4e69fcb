// Package service implements the task operations of the application.
// Every operation is scoped to the acting user; ownership is enforced by
// the storage layer's compound id-and-owner lookups.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patric-chuzhbe/todolst/internal/models"
	"github.com/patric-chuzhbe/todolst/internal/task"
)

// ErrEmptyText is returned when the task text is empty after trimming.
var ErrEmptyText = errors.New("task text must not be empty")

// ErrEmptyPatch is returned when an update changes neither text nor
// completion state.
var ErrEmptyPatch = errors.New("update must set text or completed")

type taskKeeper interface {
	CreateTask(ctx context.Context, tsk *task.Task) (string, error)
	GetUserTasks(ctx context.Context, ownerID string) ([]task.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfTasks(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	taskKeeper
	statsKeeper
	pinger
}

// Service exposes the owner-scoped task operations.
type Service struct {
	db storage
}

// New creates a task service over the given storage.
func New(db storage) *Service {
	return &Service{db: db}
}

// List returns the user's tasks, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]task.Task, error) {
	return s.db.GetUserTasks(ctx, userID)
}

// Create stores a new uncompleted task owned by userID.
// The text is trimmed of surrounding whitespace and must not end up empty.
func (s *Service) Create(ctx context.Context, userID, text string) (*task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	now := time.Now()
	tsk := &task.Task{
		Text:      text,
		Completed: false,
		OwnerID:   userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.db.CreateTask(ctx, tsk); err != nil {
		return nil, err
	}

	return tsk, nil
}

// Update applies the non-nil fields of the patch to the user's task.
// A task owned by someone else surfaces as storage.ErrNotFound, exactly
// like a task that does not exist.
func (s *Service) Update(ctx context.Context, userID, taskID string, patch task.Patch) (*task.Task, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		if trimmed == "" {
			return nil, ErrEmptyText
		}
		patch.Text = &trimmed
	}

	return s.db.UpdateTask(ctx, userID, taskID, patch)
}

// Delete removes the user's task. Deleting an absent or foreign task
// returns storage.ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	return s.db.DeleteTask(ctx, userID, taskID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns aggregate user and task counts.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	tasks, err := s.db.GetNumberOfTasks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users: users,
		Tasks: tasks,
	}, nil
}
