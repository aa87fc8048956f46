package domain

import (
	"context"
	"time"
)

// Hospital represents a hospital in the directory
type Hospital struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Address  *string `json:"address" db:"address"`
	Phone    *string `json:"phone" db:"phone"`
	IsActive bool    `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Doctor represents a doctor attached to a hospital
type Doctor struct {
	ID         string    `json:"id" db:"id"`
	HospitalID string    `json:"hospital_id" db:"hospital_id"`
	Name       string    `json:"name" db:"name"`
	Specialty  string    `json:"specialty" db:"specialty"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HospitalRepository defines operations for the hospital directory
type HospitalRepository interface {
	Create(ctx context.Context, hospital *Hospital) error
	GetByID(ctx context.Context, id string) (*Hospital, error)
	List(ctx context.Context, activeOnly bool) ([]*Hospital, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	ListDoctors(ctx context.Context, hospitalID string) ([]*Doctor, error)
}
