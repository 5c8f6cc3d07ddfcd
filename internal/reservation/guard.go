package reservation

import (
	"context"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

// SlotChecker re-evaluates one slot against current state.
type SlotChecker interface {
	IsBookable(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay, durationMinutes int) (bool, error)
}

type creator interface {
	Create(ctx context.Context, r *Reservation) error
}

// Guard turns a slot request into a pending reservation with at most one winner.
// The recheck only spares the store obvious losers; the insert's constraint decides.
type Guard struct {
	checker SlotChecker
	store   creator
}

func NewGuard(checker SlotChecker, store creator) *Guard {
	return &Guard{
		checker: checker,
		store:   store,
	}
}

// TryBook creates r in status pending or returns ErrSlotUnavailable.
func (g *Guard) TryBook(ctx context.Context, r *Reservation) error {
	ok, err := g.checker.IsBookable(ctx, r.ProfessionalID, r.Date, r.Start, r.DurationMinutes)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotUnavailable
	}

	r.Status = StatusPending
	return g.store.Create(ctx, r)
}
