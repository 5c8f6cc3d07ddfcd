package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

// ScheduleReader reads what a professional declared for a date.
type ScheduleReader interface {
	Windows(ctx context.Context, professionalID string, date time.Time) ([]Window, error)
	Blocks(ctx context.Context, professionalID string, date time.Time) ([]Block, error)
}

// OccupancyReader lists the intervals held by active reservations.
type OccupancyReader interface {
	ActiveIntervals(ctx context.Context, professionalID string, date time.Time) ([]Interval, error)
}

// Resolver computes bookable slots from the current stored state. It keeps no cache.
type Resolver struct {
	grid      *grid.Grid
	schedule  ScheduleReader
	occupancy OccupancyReader
	lead      int
}

func NewResolver(g *grid.Grid, schedule ScheduleReader, occupancy OccupancyReader, leadMinutes int) *Resolver {
	return &Resolver{
		grid:      g,
		schedule:  schedule,
		occupancy: occupancy,
		lead:      leadMinutes,
	}
}

func (r *Resolver) Grid() *grid.Grid {
	return r.grid
}

// Resolve returns one entry per grid point, in grid order.
func (r *Resolver) Resolve(ctx context.Context, professionalID string, date time.Time, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	day, err := r.load(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}
	return day.Slots(durationMinutes), nil
}

// IsBookable re-evaluates a single start against the current state.
func (r *Resolver) IsBookable(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, ErrInvalidDuration
	}
	if !r.grid.Contains(start) {
		return false, nil
	}
	day, err := r.load(ctx, professionalID, date)
	if err != nil {
		return false, err
	}
	return day.Bookable(start, durationMinutes), nil
}

func (r *Resolver) load(ctx context.Context, professionalID string, date time.Time) (*Day, error) {
	windows, err := r.schedule.Windows(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	blocks, err := r.schedule.Blocks(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	active, err := r.occupancy.ActiveIntervals(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("load active reservations: %w", err)
	}
	return NewDay(r.grid, date, r.lead, windows, blocks, active), nil
}
