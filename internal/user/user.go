// Package user defines the user model used throughout the application,
// particularly for authentication and task ownership.
package user

import "time"

// User represents a registered account.
// The password hash is never serialized into API responses.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id" bson:"_id"`

	// Username is the display name chosen at registration.
	Username string `json:"username" bson:"username"`

	// Email is the login identifier. Uniqueness is enforced by the storage layer.
	Email string `json:"email" bson:"email"`

	// PasswordHash is the bcrypt digest of the user's password.
	PasswordHash string `json:"-" bson:"password_hash"`

	// CreatedAt is set once at registration.
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
