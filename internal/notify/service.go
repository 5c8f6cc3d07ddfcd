package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

type Config struct {
	StudioName string
	// StudioWhatsApp receives a copy of every new booking. Empty disables it.
	StudioWhatsApp string
}

// Message is one rendered text for one recipient.
type Message struct {
	Recipient string
	Phone     string
	Text      string
}

// Service renders reservation events into WhatsApp messages and sends them synchronously.
type Service struct {
	sender  Sender
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(sender Sender, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	if cfg.StudioName == "" {
		cfg.StudioName = "Studio Flow"
	}
	return &Service{
		sender:  sender,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// Messages lists what event produces for r, in send order.
func (s *Service) Messages(event reservation.Event, r *reservation.Reservation) []Message {
	studio := s.cfg.StudioName
	switch event {
	case reservation.EventBookingCreated:
		msgs := []Message{{Recipient: "client", Phone: r.ClientContact, Text: bookingReceivedText(studio, r)}}
		if s.cfg.StudioWhatsApp != "" {
			msgs = append(msgs, Message{Recipient: "studio", Phone: s.cfg.StudioWhatsApp, Text: newBookingAdminText(studio, r)})
		}
		if r.ProfessionalContact != "" {
			msgs = append(msgs, Message{Recipient: "professional", Phone: r.ProfessionalContact, Text: newBookingProfessionalText(studio, r)})
		}
		return msgs
	case reservation.EventPaymentConfirmed:
		return []Message{{Recipient: "client", Phone: r.ClientContact, Text: paymentConfirmedText(studio, r)}}
	case reservation.EventCancelled:
		return []Message{{Recipient: "client", Phone: r.ClientContact, Text: cancelledText(studio, r)}}
	case reservation.EventReminder:
		return []Message{{Recipient: "client", Phone: r.ClientContact, Text: reminderText(studio, r)}}
	}
	return nil
}

// Notify sends every message for the event. One failing recipient does not stop the others;
// the returned error joins all failures.
func (s *Service) Notify(ctx context.Context, event reservation.Event, r *reservation.Reservation) error {
	msgs := s.Messages(event, r)
	if len(msgs) == 0 {
		return fmt.Errorf("unknown notification event %q", event)
	}

	var errs []error
	for _, m := range msgs {
		if err := s.sender.SendText(ctx, m.Phone, m.Text); err != nil {
			s.logger.Warn("notification not delivered",
				zap.String("event", string(event)),
				zap.String("recipient", m.Recipient),
				zap.String("reservation_id", r.ID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", m.Recipient, err))
		}
	}

	err := errors.Join(errs...)
	s.metrics.ObserveNotification(string(event), err)
	return err
}

var _ reservation.Notifier = (*Service)(nil)
