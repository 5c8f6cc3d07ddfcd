package http

import (
	"errors"
	"strings"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	proHttp "github.com/nekogravitycat/studio-booking-backend/internal/professional/http"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// CreateBookingRequest is the payload for POST /bookings.
type CreateBookingRequest struct {
	ProfessionalID string `json:"professional_id" binding:"required,uuid"`
	Date           string `json:"date" binding:"required"`
	Start          string `json:"start" binding:"required"`
	Duration       int    `json:"duration" binding:"required,min=1,max=1440"`
	ClientName     string `json:"client_name" binding:"required,max=120"`
	ClientContact  string `json:"client_contact" binding:"required,max=40"`
	ClientEmail    string `json:"client_email" binding:"omitempty,email"`
	Service        string `json:"service" binding:"required,max=120"`
	PaymentMethod  string `json:"payment_method" binding:"omitempty,oneof=pix card"`
}

// ToCreateRequest validates the free-form fields and converts the body for the service.
func (r *CreateBookingRequest) ToCreateRequest() (reservation.CreateRequest, error) {
	if strings.TrimSpace(r.ClientName) == "" || strings.TrimSpace(r.ClientContact) == "" {
		return reservation.CreateRequest{}, errors.New("client_name and client_contact are required")
	}
	date, err := grid.ParseDate(r.Date)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	start, err := grid.Parse(r.Start)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	method, err := reservation.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	return reservation.CreateRequest{
		ProfessionalID:  r.ProfessionalID,
		Date:            date,
		Start:           start,
		DurationMinutes: r.Duration,
		ClientName:      r.ClientName,
		ClientContact:   r.ClientContact,
		ClientEmail:     r.ClientEmail,
		Service:         r.Service,
		PaymentMethod:   method,
	}, nil
}

// CancelBookingRequest is the optional payload for POST /bookings/:id/cancel.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ReservationResponse struct {
	ID               string                  `json:"id"`
	Professional     proHttp.ProfessionalTag `json:"professional"`
	ClientName       string                  `json:"client_name"`
	ClientContact    string                  `json:"client_contact"`
	ClientEmail      string                  `json:"client_email,omitempty"`
	Service          string                  `json:"service"`
	Duration         int                     `json:"duration"`
	Date             string                  `json:"date"`
	Start            string                  `json:"start"`
	End              string                  `json:"end"`
	Status           string                  `json:"status"`
	PaymentMethod    string                  `json:"payment_method"`
	PaymentReference string                  `json:"payment_reference,omitempty"`
	PaymentStatus    string                  `json:"payment_status,omitempty"`
	FeeCents         int64                   `json:"fee_cents"`
	CancelReason     string                  `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID,
		Professional:     proHttp.ProfessionalTag{ID: r.ProfessionalID, Name: r.ProfessionalName},
		ClientName:       r.ClientName,
		ClientContact:    r.ClientContact,
		ClientEmail:      r.ClientEmail,
		Service:          r.Service,
		Duration:         r.DurationMinutes,
		Date:             r.Date.Format(grid.DateLayout),
		Start:            r.Start.String(),
		End:              r.End().String(),
		Status:           string(r.Status),
		PaymentMethod:    string(r.PaymentMethod),
		PaymentReference: r.PaymentReference,
		PaymentStatus:    r.PaymentStatus,
		FeeCents:         r.FeeCents,
		CancelReason:     r.CancelReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type PaymentResponse struct {
	Method             string `json:"method"`
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	Reference          string `json:"reference,omitempty"`
	CheckoutURL        string `json:"checkout_url,omitempty"`
	SandboxCheckoutURL string `json:"sandbox_checkout_url,omitempty"`
	PixKey             string `json:"pix_key,omitempty"`
}

type BookingResponse struct {
	Reservation ReservationResponse `json:"reservation"`
	Payment     PaymentResponse     `json:"payment"`
}

func NewBookingResponse(b *reservation.Booking) BookingResponse {
	return BookingResponse{
		Reservation: NewReservationResponse(b.Reservation),
		Payment: PaymentResponse{
			Method:             string(b.Payment.Method),
			AmountCents:        b.Payment.AmountCents,
			Currency:           b.Payment.Currency,
			Reference:          b.Payment.Reference,
			CheckoutURL:        b.Payment.CheckoutURL,
			SandboxCheckoutURL: b.Payment.SandboxCheckoutURL,
			PixKey:             b.Payment.PixKey,
		},
	}
}

type ReservationEnvelope struct {
	Reservation ReservationResponse `json:"reservation"`
}
