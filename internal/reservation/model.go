package reservation

import (
	"context"
	"net/http"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "reservation not found")
	ErrSlotUnavailable   = apperror.New(http.StatusConflict, "SlotUnavailable")
	ErrNotCancellable    = apperror.New(http.StatusConflict, "reservation can no longer be cancelled")
	ErrNotConfirmable    = apperror.New(http.StatusConflict, "cancelled reservations cannot be confirmed")
	ErrConcurrentUpdate  = apperror.New(http.StatusConflict, "reservation was modified concurrently, try again")
	ErrServiceNotOffered = apperror.New(http.StatusBadRequest, "service is not offered by this professional")
	ErrDurationMismatch  = apperror.New(http.StatusBadRequest, "duration does not match the service")
	ErrInvalidMethod     = apperror.New(http.StatusBadRequest, "payment_method must be pix or card")
	ErrPaymentFailed     = apperror.New(http.StatusInternalServerError, "could not start payment, try again")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that hold a slot.
var ActiveStatuses = []Status{StatusPending, StatusPaid, StatusConfirmed}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusPaid || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

type PaymentMethod string

const (
	MethodPix  PaymentMethod = "pix"
	MethodCard PaymentMethod = "card"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case "", MethodPix:
		return MethodPix, nil
	case MethodCard:
		return MethodCard, nil
	}
	return "", ErrInvalidMethod
}

type Reservation struct {
	ID                  string
	ProfessionalID      string
	ProfessionalName    string
	ProfessionalContact string
	ClientName          string
	ClientContact       string
	ClientEmail         string
	Service             string
	DurationMinutes     int
	Date                time.Time
	Start               grid.TimeOfDay
	Status              Status
	PaymentMethod       PaymentMethod
	PaymentReference    string
	PaymentID           string
	PaymentStatus       string
	FeeCents            int64
	CancelReason        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Interval is the span the reservation holds on its date.
func (r *Reservation) Interval() availability.Interval {
	return availability.Interval{Start: r.Start, Duration: r.DurationMinutes}
}

// End is the wall-clock time the service finishes.
func (r *Reservation) End() grid.TimeOfDay {
	return r.Start + grid.TimeOfDay(r.DurationMinutes)
}

// Event names what happened to a reservation for notification purposes.
type Event string

const (
	EventBookingCreated   Event = "booking_created"
	EventPaymentConfirmed Event = "payment_confirmed"
	EventCancelled        Event = "cancelled"
	EventReminder         Event = "reminder"
)

// Notifier delivers reservation events to people. Implementations must not block the caller
// on slow channels; the lifecycle treats every error as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, event Event, r *Reservation) error
}

// PaymentIntent is what the gateway hands back for a new reservation.
type PaymentIntent struct {
	Reference          string
	CheckoutURL        string
	SandboxCheckoutURL string
}

// PaymentStatus is the gateway's authoritative view of one payment.
type PaymentStatus struct {
	PaymentID         string
	Status            string
	ExternalReference string
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, r *Reservation) (*PaymentIntent, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error)
}
