package availability

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/apperror"
)

var (
	ErrInvalidDuration = apperror.New(http.StatusBadRequest, "duration must be a positive number of minutes")
	ErrNotGridPoint    = apperror.New(http.StatusBadRequest, "start must be a slot within business hours")
	ErrDuplicateStart  = apperror.New(http.StatusBadRequest, "each slot may appear only once")
	ErrBlockNotFound   = apperror.New(http.StatusNotFound, "blocked slot not found")
)

// Window declares whether a grid point is open for bookings on a date.
type Window struct {
	ProfessionalID string
	Date           time.Time
	Start          grid.TimeOfDay
	Open           bool
}

// Block withdraws a single grid point from availability regardless of its window.
type Block struct {
	ProfessionalID string
	Date           time.Time
	Start          grid.TimeOfDay
	Reason         string
	CreatedAt      time.Time
}

// Interval is the time an active reservation holds: [Start, Start+Duration).
type Interval struct {
	Start    grid.TimeOfDay
	Duration int
}

// Slot is one grid point in a resolved day.
type Slot struct {
	Start    grid.TimeOfDay
	Bookable bool
}
