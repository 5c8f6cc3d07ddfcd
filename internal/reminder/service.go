package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// Statuses that get a day-before reminder.
var Statuses = []reservation.Status{reservation.StatusPaid, reservation.StatusConfirmed}

type Lister interface {
	ListByDate(ctx context.Context, date time.Time, statuses []reservation.Status) ([]*reservation.Reservation, error)
}

type Result struct {
	Sent  int
	Total int
	Date  time.Time
}

type Service struct {
	repo     Lister
	notifier reservation.Notifier
	grid     *grid.Grid
	logger   *zap.Logger
}

func NewService(repo Lister, notifier reservation.Notifier, g *grid.Grid, logger *zap.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, grid: g, logger: logging.OrNop(logger)}
}

// SendTomorrow reminds every client whose reservation is on the studio's next calendar day.
func (s *Service) SendTomorrow(ctx context.Context) (*Result, error) {
	return s.SendFor(ctx, s.grid.Today().AddDate(0, 0, 1))
}

// SendFor sends one reminder per reservation on date. Failed sends are counted, not returned.
func (s *Service) SendFor(ctx context.Context, date time.Time) (*Result, error) {
	reservations, err := s.repo.ListByDate(ctx, date, Statuses)
	if err != nil {
		return nil, fmt.Errorf("list reservations for reminders failed: %w", err)
	}

	res := &Result{Total: len(reservations), Date: date}
	for _, r := range reservations {
		if err := s.notifier.Notify(ctx, reservation.EventReminder, r); err != nil {
			s.logger.Warn("reminder not sent", zap.String("reservation_id", r.ID), zap.Error(err))
			continue
		}
		res.Sent++
	}

	s.logger.Info("reminders sent",
		zap.String("date", date.Format(grid.DateLayout)),
		zap.Int("sent", res.Sent),
		zap.Int("total", res.Total),
	)
	return res, nil
}
