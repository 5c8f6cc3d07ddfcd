package availability

import (
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

// Day is the availability state of one professional on one date.
// Open and occupied points are kept as sets keyed by grid point.
type Day struct {
	grid     *grid.Grid
	date     time.Time
	lead     int
	opened   map[grid.TimeOfDay]struct{}
	occupied map[grid.TimeOfDay]struct{}
}

// NewDay folds windows, blocks and active reservations into a Day.
// With no open windows every slot is unbookable.
func NewDay(g *grid.Grid, date time.Time, leadMinutes int, windows []Window, blocks []Block, active []Interval) *Day {
	d := &Day{
		grid:     g,
		date:     date,
		lead:     leadMinutes,
		opened:   make(map[grid.TimeOfDay]struct{}, len(windows)),
		occupied: make(map[grid.TimeOfDay]struct{}),
	}
	for _, w := range windows {
		if w.Open {
			d.opened[w.Start] = struct{}{}
		}
	}
	for _, iv := range active {
		for _, p := range g.Cover(iv.Start, iv.Duration) {
			d.occupied[p] = struct{}{}
		}
	}
	for _, b := range blocks {
		d.occupied[b.Start] = struct{}{}
	}
	return d
}

// Bookable reports whether a service of durationMinutes can start at h.
func (d *Day) Bookable(h grid.TimeOfDay, durationMinutes int) bool {
	if d.grid.IsPast(d.date, h, d.lead) {
		return false
	}
	if _, ok := d.opened[h]; !ok {
		return false
	}
	points, ok := d.grid.Span(h, durationMinutes)
	if !ok {
		return false
	}
	for _, p := range points {
		if _, open := d.opened[p]; !open {
			return false
		}
		if _, taken := d.occupied[p]; taken {
			return false
		}
	}
	return true
}

// Slots evaluates every grid point in grid order.
func (d *Day) Slots(durationMinutes int) []Slot {
	points := d.grid.Points()
	slots := make([]Slot, len(points))
	for i, h := range points {
		slots[i] = Slot{Start: h, Bookable: d.Bookable(h, durationMinutes)}
	}
	return slots
}
