// Package models contains the request and response shapes of the HTTP API
// and shared application-level constants.
package models

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterResponse is returned on successful registration.
// It deliberately carries no credential material.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// CreateTaskRequest is the body of POST /api/todos.
type CreateTaskRequest struct {
	Text string `json:"text" validate:"required"`
}

// UpdateTaskRequest is the body of PUT /api/todos/{id}.
// Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// DeleteTaskResponse is returned on successful deletion.
type DeleteTaskResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// InternalStatsResponse is returned by GET /api/internal/stats.
type InternalStatsResponse struct {
	Users int64 `json:"users"`
	Tasks int64 `json:"tasks"`
}

// Storage backend kinds selectable via configuration.
const (
	StorageTypeUnknown = iota
	StorageTypeMongo
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
