package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
)

const maxStaffAttempts = 3

// manualPaymentStatus marks payments confirmed by staff rather than by the gateway.
const manualPaymentStatus = "manual"

// transitions lists every allowed forward move. Anything absent is rejected.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusConfirmed, StatusCancelled},
}

// CanTransition reports whether from -> to is a forward edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MapGatewayStatus folds a gateway payment status into the status it asks for.
// Unknown values map to pending, which is a no-op.
func MapGatewayStatus(gatewayStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case "approved":
		return StatusPaid
	case "rejected", "cancelled", "refunded", "charged_back":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Lifecycle owns status changes. Every write is a compare-and-set on the current
// status, so duplicated or reordered events cannot move a reservation backwards.
type Lifecycle struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewLifecycle(repo Repository, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// ApplyPayment applies the gateway's view of a payment to the reservation named by
// its external reference. Events that do not move a pending reservation are logged and dropped.
func (l *Lifecycle) ApplyPayment(ctx context.Context, p *PaymentStatus) error {
	log := l.logger.With(
		zap.String("reservation_id", p.ExternalReference),
		zap.String("payment_id", p.PaymentID),
		zap.String("gateway_status", p.Status),
	)

	// The gateway echoes whatever reference it was given; only our own ids can match.
	if _, err := uuid.Parse(p.ExternalReference); err != nil {
		log.Info("payment event with foreign reference, ignoring")
		return nil
	}

	r, err := l.repo.GetByID(ctx, p.ExternalReference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info("payment event for unknown reservation, ignoring")
			return nil
		}
		return err
	}

	if r.Status != StatusPending {
		log.Info("payment event ignored", zap.String("current_status", string(r.Status)))
		l.metrics.ObserveIgnoredEvent(string(r.Status), p.Status)
		return nil
	}

	switch MapGatewayStatus(p.Status) {
	case StatusPaid:
		return l.confirmPayment(ctx, r, p, log)
	case StatusCancelled:
		won, err := l.advance(ctx, r, StatusUpdate{
			To:            StatusCancelled,
			PaymentID:     p.PaymentID,
			PaymentStatus: p.Status,
		})
		if err != nil {
			return err
		}
		if !won {
			log.Info("reservation changed concurrently, cancellation event dropped")
			return nil
		}
		l.notify(ctx, EventCancelled, r)
		return nil
	default:
		log.Debug("payment still pending")
		return nil
	}
}

// confirmPayment moves pending -> paid, attempts the confirmation message, then paid -> confirmed.
func (l *Lifecycle) confirmPayment(ctx context.Context, r *Reservation, p *PaymentStatus, log *zap.Logger) error {
	won, err := l.advance(ctx, r, StatusUpdate{
		To:            StatusPaid,
		PaymentID:     p.PaymentID,
		PaymentStatus: p.Status,
	})
	if err != nil {
		return err
	}
	if !won {
		log.Info("reservation changed concurrently, approval event dropped")
		return nil
	}

	l.notify(ctx, EventPaymentConfirmed, r)

	won, err = l.advance(ctx, r, StatusUpdate{To: StatusConfirmed})
	if err != nil {
		return err
	}
	if !won {
		log.Warn("reservation left paid before it could be confirmed")
	}
	return nil
}

// Confirm is the staff's manual confirmation for payments made outside the gateway
// (a PIX transfer to the professional). It walks the same guarded pending -> paid ->
// confirmed path as an approved gateway event, so the confirmation message goes out once.
// A reservation left paid is only advanced; a confirmed one is returned unchanged.
func (l *Lifecycle) Confirm(ctx context.Context, id string) (*Reservation, error) {
	for attempt := 0; attempt < maxStaffAttempts; attempt++ {
		r, err := l.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		switch r.Status {
		case StatusConfirmed:
			return r, nil
		case StatusCancelled:
			return nil, ErrNotConfirmable
		case StatusPending:
			won, err := l.advance(ctx, r, StatusUpdate{To: StatusPaid, PaymentStatus: manualPaymentStatus})
			if err != nil {
				return nil, err
			}
			if !won {
				continue
			}
			l.notify(ctx, EventPaymentConfirmed, r)
		}

		won, err := l.advance(ctx, r, StatusUpdate{To: StatusConfirmed})
		if err != nil {
			return nil, err
		}
		if won {
			return r, nil
		}
	}
	return nil, ErrConcurrentUpdate
}

// Cancel is the administrative cancellation. Cancelling a cancelled reservation
// returns it unchanged; a confirmed one cannot be cancelled.
func (l *Lifecycle) Cancel(ctx context.Context, id, reason string) (*Reservation, error) {
	for attempt := 0; attempt < maxStaffAttempts; attempt++ {
		r, err := l.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if r.Status == StatusCancelled {
			return r, nil
		}
		if !CanTransition(r.Status, StatusCancelled) {
			return nil, ErrNotCancellable
		}

		won, err := l.advance(ctx, r, StatusUpdate{To: StatusCancelled, CancelReason: reason})
		if err != nil {
			return nil, err
		}
		if won {
			l.notify(ctx, EventCancelled, r)
			return r, nil
		}
	}
	return nil, ErrConcurrentUpdate
}

// advance performs one guarded write from r's current status and mirrors it onto r.
func (l *Lifecycle) advance(ctx context.Context, r *Reservation, upd StatusUpdate) (bool, error) {
	from := r.Status
	if !CanTransition(from, upd.To) {
		return false, nil
	}

	won, err := l.repo.UpdateStatus(ctx, r.ID, from, upd)
	if err != nil || !won {
		return false, err
	}

	r.Status = upd.To
	if upd.PaymentID != "" {
		r.PaymentID = upd.PaymentID
	}
	if upd.PaymentStatus != "" {
		r.PaymentStatus = upd.PaymentStatus
	}
	if upd.CancelReason != "" {
		r.CancelReason = upd.CancelReason
	}
	r.UpdatedAt = time.Now().UTC()

	l.metrics.ObserveTransition(string(from), string(upd.To))
	l.logger.Info("reservation status changed",
		zap.String("reservation_id", r.ID),
		zap.String("from", string(from)),
		zap.String("to", string(upd.To)),
	)
	return true, nil
}

// notify hands a copy of r to the notifier; failures are logged, never returned.
func (l *Lifecycle) notify(ctx context.Context, event Event, r *Reservation) {
	if l.notifier == nil {
		return
	}
	snapshot := *r
	if err := l.notifier.Notify(ctx, event, &snapshot); err != nil {
		l.logger.Warn("notification dispatch failed",
			zap.String("reservation_id", r.ID),
			zap.String("event", string(event)),
			zap.Error(err),
		)
	}
}
