package grid

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidTime        = errors.New("time must be in HH:MM format")
	ErrInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidGranularity = errors.New("granularity must be a positive number of minutes")
	ErrInvalidRange       = errors.New("invalid business hours range")
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return FromMinutes(int(t))
}

// Parse parses "HH:MM" (or "HH:MM:SS", seconds ignored) into a TimeOfDay.
func Parse(s string) (TimeOfDay, error) {
	m, err := ToMinutes(s)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(m), nil
}

// ToMinutes converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are validated and then dropped.
func ToMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidTime
	}
	hh, ok := twoDigits(parts[0], 23)
	if !ok {
		return 0, ErrInvalidTime
	}
	mm, ok := twoDigits(parts[1], 59)
	if !ok {
		return 0, ErrInvalidTime
	}
	if len(parts) == 3 {
		if _, ok := twoDigits(parts[2], 59); !ok {
			return 0, ErrInvalidTime
		}
	}
	return hh*60 + mm, nil
}

// twoDigits parses exactly two ASCII digits no greater than limit.
func twoDigits(s string, limit int) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	return n, n <= limit
}

// FromMinutes renders minutes since midnight as "HH:MM".
func FromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC,
// which is how DATE columns round-trip through pgx.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// DateOf returns the calendar date of t (in t's own location) as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Range is a half-open business hours interval [Start, End).
type Range struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseRanges parses a comma separated list such as "08:00-12:00,13:00-20:00".
func ParseRanges(s string) ([]Range, error) {
	var ranges []Range
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		start, err := Parse(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		end, err := Parse(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	if len(ranges) == 0 {
		return nil, ErrInvalidRange
	}
	return ranges, nil
}

// Grid is the discrete set of instants at which a service may start.
// Non-bookable hours (lunch) are simply absent from the point list.
type Grid struct {
	granularity int
	points      []TimeOfDay
	index       map[TimeOfDay]struct{}
	loc         *time.Location
	now         func() time.Time
}

type Option func(*Grid)

// WithLocation sets the studio's time zone, used to decide what "today" and "now" are.
func WithLocation(loc *time.Location) Option {
	return func(g *Grid) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Grid) {
		if now != nil {
			g.now = now
		}
	}
}

// New builds a grid from ascending, non-overlapping ranges whose bounds are
// aligned to the granularity.
func New(granularity int, ranges []Range, opts ...Option) (*Grid, error) {
	if granularity <= 0 {
		return nil, ErrInvalidGranularity
	}
	if len(ranges) == 0 {
		return nil, ErrInvalidRange
	}

	g := &Grid{
		granularity: granularity,
		index:       make(map[TimeOfDay]struct{}),
		loc:         time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	var prevEnd TimeOfDay = -1
	for _, r := range ranges {
		if r.Start >= r.End || r.End > 24*60 {
			return nil, fmt.Errorf("%w: %s-%s", ErrInvalidRange, r.Start, r.End)
		}
		if int(r.Start)%granularity != 0 || int(r.End)%granularity != 0 {
			return nil, fmt.Errorf("%w: %s-%s is not aligned to %d minutes", ErrInvalidRange, r.Start, r.End, granularity)
		}
		if r.Start < prevEnd {
			return nil, fmt.Errorf("%w: ranges must be ascending and disjoint", ErrInvalidRange)
		}
		for t := r.Start; t < r.End; t += TimeOfDay(granularity) {
			g.points = append(g.points, t)
			g.index[t] = struct{}{}
		}
		prevEnd = r.End
	}
	return g, nil
}

// Default is the studio's standard day: 08:00-11:30 and 13:00-19:30 every 30 minutes.
func Default(opts ...Option) *Grid {
	g, err := New(30, []Range{
		{Start: 8 * 60, End: 12 * 60},
		{Start: 13 * 60, End: 20 * 60},
	}, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grid) Granularity() int {
	return g.granularity
}

func (g *Grid) Location() *time.Location {
	return g.loc
}

// Points returns the grid points in ascending order.
func (g *Grid) Points() []TimeOfDay {
	out := make([]TimeOfDay, len(g.points))
	copy(out, g.points)
	return out
}

// Contains reports whether t is a grid point.
func (g *Grid) Contains(t TimeOfDay) bool {
	_, ok := g.index[t]
	return ok
}

// Steps is the number of grid points a service of the given duration occupies.
func (g *Grid) Steps(durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	return (durationMinutes + g.granularity - 1) / g.granularity
}

// Cover expands [start, start+duration) into the granularity-spaced instants it
// touches, whether or not they are grid points.
func (g *Grid) Cover(start TimeOfDay, durationMinutes int) []TimeOfDay {
	steps := g.Steps(durationMinutes)
	out := make([]TimeOfDay, 0, steps)
	for i := 0; i < steps; i++ {
		out = append(out, start+TimeOfDay(i*g.granularity))
	}
	return out
}

// Span is Cover restricted to the grid: ok is false when any instant falls
// outside business hours (past closing or inside a gap).
func (g *Grid) Span(start TimeOfDay, durationMinutes int) ([]TimeOfDay, bool) {
	points := g.Cover(start, durationMinutes)
	if len(points) == 0 {
		return nil, false
	}
	for _, p := range points {
		if !g.Contains(p) {
			return points, false
		}
	}
	return points, true
}

// Now is the current instant in the studio's time zone.
func (g *Grid) Now() time.Time {
	return g.now().In(g.loc)
}

// Today is the studio's current calendar date (midnight UTC, see DateOf).
func (g *Grid) Today() time.Time {
	return DateOf(g.Now())
}

// IsPast reports whether a slot on date at t can no longer be offered: the
// date is before today, or it is today and t is within leadMinutes of now.
func (g *Grid) IsPast(date time.Time, t TimeOfDay, leadMinutes int) bool {
	now := g.Now()
	today := DateOf(now)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case d.Before(today):
		return true
	case d.After(today):
		return false
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	return int(t) <= nowMinutes+leadMinutes
}
