package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Service handles credential verification.
type Service struct {
	repo Repository
}

// NewService constructs the auth service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate verifies the email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
