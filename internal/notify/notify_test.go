package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

type sentMessage struct {
	phone string
	text  string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error
}

func (s *recordingSender) SendText(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[phone]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{phone: phone, text: message})
	return nil
}

func (s *recordingSender) phones() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		out = append(out, m.phone)
	}
	return out
}

func sampleReservation() *reservation.Reservation {
	return &reservation.Reservation{
		ID:                  "res-1",
		ProfessionalName:    "Ana",
		ProfessionalContact: "11977776666",
		ClientName:          "Julia",
		ClientContact:       "11988887777",
		Service:             "Manicure",
		DurationMinutes:     60,
		Date:                time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Start:               600,
		Status:              reservation.StatusPending,
		PaymentMethod:       reservation.MethodPix,
		FeeCents:            3000,
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511988887777", NormalizePhone("(11) 98888-7777"))
	assert.Equal(t, "5511988887777", NormalizePhone("+55 11 98888-7777"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "terça-feira, 10 de março", longDate(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "R$ 30,00", formatBRL(3000))
	assert.Equal(t, "R$ 0,05", formatBRL(5))
}

func TestBookingCreatedRecipients(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{StudioWhatsApp: "11900000000"}, nil, nil)

	require.NoError(t, svc.Notify(context.Background(), reservation.EventBookingCreated, sampleReservation()))
	assert.Equal(t, []string{"11988887777", "11900000000", "11977776666"}, sender.phones())

	client := sender.sent[0].text
	assert.Contains(t, client, "Julia")
	assert.Contains(t, client, "terça-feira, 10 de março")
	assert.Contains(t, client, "10:00")
	assert.Contains(t, client, "R$ 30,00")
	assert.Contains(t, sender.sent[1].text, "PIX")
}

func TestBookingCreatedWithoutStudioNumber(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{}, nil, nil)

	r := sampleReservation()
	r.ProfessionalContact = ""
	require.NoError(t, svc.Notify(context.Background(), reservation.EventBookingCreated, r))
	assert.Equal(t, []string{"11988887777"}, sender.phones())
}

func TestClientOnlyEvents(t *testing.T) {
	tests := []struct {
		event reservation.Event
		want  string
	}{
		{event: reservation.EventPaymentConfirmed, want: "Pagamento Confirmado"},
		{event: reservation.EventCancelled, want: "Motivo: cliente desistiu"},
		{event: reservation.EventReminder, want: "amanhã"},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			sender := &recordingSender{}
			svc := NewService(sender, Config{StudioWhatsApp: "11900000000"}, nil, nil)

			r := sampleReservation()
			r.CancelReason = "cliente desistiu"
			require.NoError(t, svc.Notify(context.Background(), tt.event, r))

			require.Len(t, sender.sent, 1)
			assert.Equal(t, "11988887777", sender.sent[0].phone)
			assert.Contains(t, sender.sent[0].text, tt.want)
		})
	}
}

func TestCancelledWithoutReason(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, Config{}, nil, nil)

	require.NoError(t, svc.Notify(context.Background(), reservation.EventCancelled, sampleReservation()))
	assert.NotContains(t, sender.sent[0].text, "Motivo")
}

func TestNotifyJoinsFailuresAndKeepsSending(t *testing.T) {
	down := errors.New("instance offline")
	sender := &recordingSender{fail: map[string]error{"11988887777": down}}
	svc := NewService(sender, Config{StudioWhatsApp: "11900000000"}, nil, nil)

	err := svc.Notify(context.Background(), reservation.EventBookingCreated, sampleReservation())
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.True(t, strings.HasPrefix(err.Error(), "client:"))
	assert.Equal(t, []string{"11900000000", "11977776666"}, sender.phones())
}

func TestNotifyUnknownEvent(t *testing.T) {
	svc := NewService(&recordingSender{}, Config{}, nil, nil)
	assert.Error(t, svc.Notify(context.Background(), reservation.Event("bogus"), sampleReservation()))
}

type blockingNotifier struct {
	mu      sync.Mutex
	got     []reservation.Reservation
	ctxErrs []error
	release chan struct{}
}

func (b *blockingNotifier) Notify(ctx context.Context, _ reservation.Event, r *reservation.Reservation) error {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, *r)
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	return errors.New("ignored by the caller")
}

func TestAsyncReturnsImmediatelyAndCopies(t *testing.T) {
	next := &blockingNotifier{release: make(chan struct{})}
	async := NewAsync(next, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r := sampleReservation()
	require.NoError(t, async.Notify(ctx, reservation.EventBookingCreated, r))

	// Caller moves on: mutates its copy and cancels its request context.
	r.Status = reservation.StatusCancelled
	cancel()
	close(next.release)
	async.Wait()

	require.Len(t, next.got, 1)
	assert.Equal(t, reservation.StatusPending, next.got[0].Status)
	assert.NoError(t, next.ctxErrs[0], "send is detached from the caller's cancellation")
}
