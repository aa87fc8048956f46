package domain

import (
	"time"
)

// AuthClaims represents validated JWT claims
type AuthClaims struct {
	UserID    string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthService defines authentication helpers for JWT access tokens
type AuthService interface {
	GenerateAccessToken(user *User) (string, error)
	ValidateToken(token string) (*AuthClaims, error)
}
