package auth

import (
	"errors"
	"time"
)

// ErrInvalidCredentials covers unknown emails, wrong passwords and inactive
// accounts alike, so responses never leak which one it was.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CompanyID    int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
