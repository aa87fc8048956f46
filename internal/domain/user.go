package domain

import (
	"context"
	"time"
)

// User represents an account in the system
type User struct {
	ID           string  `json:"id" db:"id"`
	Email        string  `json:"email" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"` // Hidden in JSON
	FullName     *string `json:"full_name" db:"full_name"`
	Phone        *string `json:"phone" db:"phone"`

	// Role and scoping
	Role       string  `json:"role" db:"role"`
	HospitalID *string `json:"hospital_id" db:"hospital_id"` // set for hospital staff
	IsActive   bool    `json:"is_active" db:"is_active"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at" db:"last_login_at"`
}

// UserRepository defines operations for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// Role constants
const (
	RolePatient  = "PATIENT"
	RoleHospital = "HOSPITAL"
	RoleAdmin    = "ADMIN"
)

// IsValidRole checks if the role string is recognized
func IsValidRole(role string) bool {
	return role == RolePatient || role == RoleHospital || role == RoleAdmin
}

// CanManageQueues reports whether the role may act on hospital-side
// workflow (status changes, doctor assignment, queue inspection).
func CanManageQueues(role string) bool {
	return role == RoleHospital || role == RoleAdmin
}

// CanReadReceipt is the capability predicate for reading a receipt:
// owners always can, hospital staff and admins can for triage.
func CanReadReceipt(userID, role, ownerID string) bool {
	if userID == ownerID {
		return true
	}
	return CanManageQueues(role)
}
