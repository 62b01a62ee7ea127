package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// maxParentDepth bounds the ancestor walk when checking for cycles.
const maxParentDepth = 32

// Service applies chart of accounts rules on top of the repository.
type Service struct {
	repo Repository
}

// NewService constructs the accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and inserts a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.CompanyID == 0 {
		return Account{}, fmt.Errorf("%w: company required", ErrValidation)
	}
	if in.Code == "" {
		return Account{}, fmt.Errorf("%w: code required", ErrValidation)
	}
	if in.Name == "" {
		return Account{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", ErrValidation, in.Type)
	}
	if in.ParentID != nil {
		if _, err := s.repo.Get(ctx, in.CompanyID, *in.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Account{}, ErrParentNotFound
			}
			return Account{}, err
		}
	}
	return s.repo.Create(ctx, in)
}

// Update renames an account or moves it under a new parent. Parent
// assignment walks the ancestor chain so a node can never become its own
// ancestor.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Account{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if in.ParentID != nil {
		if *in.ParentID == in.ID {
			return Account{}, ErrParentCycle
		}
		if err := s.ensureNoCycle(ctx, in.CompanyID, in.ID, *in.ParentID); err != nil {
			return Account{}, err
		}
	}
	return s.repo.Update(ctx, in)
}

func (s *Service) ensureNoCycle(ctx context.Context, companyID, id, parentID int64) error {
	current := parentID
	for depth := 0; depth < maxParentDepth; depth++ {
		parent, err := s.repo.Get(ctx, companyID, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrParentNotFound
			}
			return err
		}
		if parent.ID == id {
			return ErrParentCycle
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return ErrParentCycle
}

// Deactivate soft-disables the account. Historical entries keep referencing
// it; new postings exclude it.
func (s *Service) Deactivate(ctx context.Context, companyID, id int64) error {
	return s.repo.SetActive(ctx, companyID, id, false)
}

// Activate re-enables the account for new postings.
func (s *Service) Activate(ctx context.Context, companyID, id int64) error {
	return s.repo.SetActive(ctx, companyID, id, true)
}

// Delete removes an account that was never posted to. Accounts referenced by
// journal lines are never hard-deleted; the caller gets ErrInUse and should
// deactivate instead.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	refs, err := s.repo.CountLineRefs(ctx, companyID, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrInUse
	}
	return s.repo.Delete(ctx, companyID, id)
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Account, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error) {
	return s.repo.List(ctx, companyID, filter)
}
