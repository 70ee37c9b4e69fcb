// Package task defines the task model and the partial-update patch
// applied by the update operation.
package task

import "time"

// Task is a single todo item. Every task belongs to exactly one user.
type Task struct {
	// ID is the unique identifier of the task, meaning a UUID.
	ID string `json:"id" bson:"_id"`

	// Text is the task description, trimmed of surrounding whitespace.
	Text string `json:"text" bson:"text"`

	// Completed marks the task as done. Defaults to false at creation.
	Completed bool `json:"completed" bson:"completed"`

	// OwnerID references the user who created the task.
	OwnerID string `json:"ownerId" bson:"owner_id"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Text      *string
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil
}
