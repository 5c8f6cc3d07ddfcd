package professional

import (
	"context"
	"errors"

	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Professional, error)
	// GetBookable returns the professional only if they are accepting bookings.
	GetBookable(ctx context.Context, id string) (*Professional, error)
	ListActive(ctx context.Context) ([]*Professional, error)
	Authenticate(ctx context.Context, id, password string) (*Professional, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
}

func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:   repo,
		hasher: hasher,
	}
}

func (s *service) GetByID(ctx context.Context, id string) (*Professional, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBookable(ctx context.Context, id string) (*Professional, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrInactive
	}
	return p, nil
}

func (s *service) ListActive(ctx context.Context) ([]*Professional, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Authenticate(ctx context.Context, id, password string) (*Professional, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Waste(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Professionals without a password cannot use the panel.
	if p.PasswordHash == "" || !p.Active {
		s.hasher.Waste(password)
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(p.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p, nil
}
