// Package models defines server-side data models persisted in the database.
package models

import "time"

// Status is the lifecycle state of an identity.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusActive   Status = "Active"
	StatusDisabled Status = "Disabled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDisabled:
		return true
	}
	return false
}

// Role is carried in session claims. Authorization policy lives elsewhere.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Identity is a user account together with its credential.
// PasswordHash is hex HMAC-SHA512(Salt, password); the password itself is
// never stored.
type Identity struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Salt         string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
