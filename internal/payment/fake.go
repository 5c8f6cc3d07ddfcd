package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// Fake is a gateway for development and tests. It never talks to the network:
// intents point at a local checkout URL and payments are whatever SetPayment recorded.
// It must never be enabled in production.
type Fake struct {
	publicURL string

	mu       sync.Mutex
	payments map[string]reservation.PaymentStatus
}

func NewFake(publicURL string) *Fake {
	return &Fake{
		publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/"),
		payments:  make(map[string]reservation.PaymentStatus),
	}
}

func (f *Fake) CreatePaymentIntent(_ context.Context, r *reservation.Reservation) (*reservation.PaymentIntent, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("fake gateway: reservation has no id")
	}
	checkout := fmt.Sprintf("%s/payments/fake/%s", f.publicURL, r.ID)
	return &reservation.PaymentIntent{
		Reference:          "fake:" + r.ID,
		CheckoutURL:        checkout,
		SandboxCheckoutURL: checkout,
	}, nil
}

func (f *Fake) GetPaymentStatus(_ context.Context, paymentID string) (*reservation.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

// SetPayment records the status the gateway will report for paymentID.
func (f *Fake) SetPayment(paymentID, status, reservationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.payments[paymentID] = reservation.PaymentStatus{
		PaymentID:         paymentID,
		Status:            status,
		ExternalReference: reservationID,
	}
}

var _ reservation.PaymentGateway = (*Fake)(nil)
