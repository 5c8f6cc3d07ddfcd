package availability

import (
	"context"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
)

type WindowInput struct {
	Start grid.TimeOfDay
	Open  bool
}

type BlockRequest struct {
	ProfessionalID string
	Date           time.Time
	Start          grid.TimeOfDay
	Reason         string
}

type Service interface {
	// Resolve answers the public availability query for a bookable professional.
	Resolve(ctx context.Context, professionalID string, date time.Time, durationMinutes int) ([]Slot, error)
	Windows(ctx context.Context, professionalID string, date time.Time) ([]Window, error)
	ReplaceWindows(ctx context.Context, professionalID string, date time.Time, inputs []WindowInput) ([]Window, error)
	Blocks(ctx context.Context, professionalID string, date time.Time) ([]Block, error)
	Block(ctx context.Context, req BlockRequest) (*Block, error)
	Unblock(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay) error
}

type service struct {
	repo       Repository
	resolver   *Resolver
	proService professional.Service
}

func NewService(repo Repository, resolver *Resolver, proService professional.Service) Service {
	return &service{
		repo:       repo,
		resolver:   resolver,
		proService: proService,
	}
}

func (s *service) Resolve(ctx context.Context, professionalID string, date time.Time, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if _, err := s.proService.GetBookable(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, professionalID, date, durationMinutes)
}

func (s *service) Windows(ctx context.Context, professionalID string, date time.Time) ([]Window, error) {
	return s.repo.Windows(ctx, professionalID, date)
}

func (s *service) ReplaceWindows(ctx context.Context, professionalID string, date time.Time, inputs []WindowInput) ([]Window, error) {
	g := s.resolver.Grid()
	seen := make(map[grid.TimeOfDay]struct{}, len(inputs))
	windows := make([]Window, 0, len(inputs))

	for _, in := range inputs {
		if !g.Contains(in.Start) {
			return nil, ErrNotGridPoint
		}
		if _, dup := seen[in.Start]; dup {
			return nil, ErrDuplicateStart
		}
		seen[in.Start] = struct{}{}
		windows = append(windows, Window{
			ProfessionalID: professionalID,
			Date:           date,
			Start:          in.Start,
			Open:           in.Open,
		})
	}

	if err := s.repo.ReplaceWindows(ctx, professionalID, date, windows); err != nil {
		return nil, err
	}
	return windows, nil
}

func (s *service) Blocks(ctx context.Context, professionalID string, date time.Time) ([]Block, error) {
	return s.repo.Blocks(ctx, professionalID, date)
}

func (s *service) Block(ctx context.Context, req BlockRequest) (*Block, error) {
	if !s.resolver.Grid().Contains(req.Start) {
		return nil, ErrNotGridPoint
	}
	b := &Block{
		ProfessionalID: req.ProfessionalID,
		Date:           req.Date,
		Start:          req.Start,
		Reason:         req.Reason,
	}
	if err := s.repo.Block(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Unblock(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay) error {
	return s.repo.Unblock(ctx, professionalID, date, start)
}
