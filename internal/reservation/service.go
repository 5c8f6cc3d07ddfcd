package reservation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/metrics"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
)

const paymentFailedReason = "payment could not be started"

type CreateRequest struct {
	ProfessionalID  string
	Date            time.Time
	Start           grid.TimeOfDay
	DurationMinutes int
	ClientName      string
	ClientContact   string
	ClientEmail     string
	Service         string
	PaymentMethod   PaymentMethod
}

// Payment tells the client how to pay the booking fee.
type Payment struct {
	Method             PaymentMethod
	AmountCents        int64
	Currency           string
	Reference          string
	CheckoutURL        string
	SandboxCheckoutURL string
	PixKey             string
}

type Booking struct {
	Reservation *Reservation
	Payment     Payment
}

type Config struct {
	FeeCents     int64
	Currency     string
	StudioPixKey string
}

type Service interface {
	Book(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	Cancel(ctx context.Context, id, reason string) (*Reservation, error)
	// Confirm records a payment the studio received outside the gateway.
	Confirm(ctx context.Context, id string) (*Reservation, error)
	// HandlePaymentNotification fetches the authoritative status of a payment and applies it.
	HandlePaymentNotification(ctx context.Context, paymentID string) error
}

type Deps struct {
	Repo         Repository
	Guard        *Guard
	Lifecycle    *Lifecycle
	Gateway      PaymentGateway
	Notifier     Notifier
	Professional professional.Service
	Grid         *grid.Grid
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

type service struct {
	repo       Repository
	guard      *Guard
	lifecycle  *Lifecycle
	gateway    PaymentGateway
	notifier   Notifier
	proService professional.Service
	grid       *grid.Grid
	cfg        Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewService(deps Deps, cfg Config) Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:       deps.Repo,
		guard:      deps.Guard,
		lifecycle:  deps.Lifecycle,
		gateway:    deps.Gateway,
		notifier:   deps.Notifier,
		proService: deps.Professional,
		grid:       deps.Grid,
		cfg:        cfg,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

func (s *service) Book(ctx context.Context, req CreateRequest) (*Booking, error) {
	r, pro, err := s.newReservation(ctx, req)
	if err != nil {
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}

	if err := s.guard.TryBook(ctx, r); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveBooking("conflict")
		} else {
			s.metrics.ObserveBooking("error")
		}
		return nil, err
	}

	payment, err := s.startPayment(ctx, r, pro)
	if err != nil {
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", r.ID),
		zap.String("professional_id", r.ProfessionalID),
		zap.String("date", r.Date.Format(grid.DateLayout)),
		zap.String("start", r.Start.String()),
		zap.String("payment_method", string(r.PaymentMethod)),
	)
	s.metrics.ObserveBooking("created")

	if s.notifier != nil {
		snapshot := *r
		if err := s.notifier.Notify(ctx, EventBookingCreated, &snapshot); err != nil {
			s.logger.Warn("booking notification failed", zap.String("reservation_id", r.ID), zap.Error(err))
		}
	}

	return &Booking{Reservation: r, Payment: payment}, nil
}

// newReservation validates the request against the professional's catalogue.
func (s *service) newReservation(ctx context.Context, req CreateRequest) (*Reservation, *professional.Professional, error) {
	if !s.grid.Contains(req.Start) {
		return nil, nil, availability.ErrNotGridPoint
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = MethodPix
	}

	pro, err := s.proService.GetBookable(ctx, req.ProfessionalID)
	if err != nil {
		return nil, nil, err
	}

	offering, ok := pro.FindService(req.Service)
	if !ok {
		return nil, nil, ErrServiceNotOffered
	}
	if req.DurationMinutes != offering.DurationMinutes {
		return nil, nil, ErrDurationMismatch
	}

	r := &Reservation{
		ProfessionalID:      pro.ID,
		ProfessionalName:    pro.Name,
		ProfessionalContact: pro.Contact,
		ClientName:          strings.TrimSpace(req.ClientName),
		ClientContact:       strings.TrimSpace(req.ClientContact),
		ClientEmail:         strings.TrimSpace(req.ClientEmail),
		Service:             offering.Name,
		DurationMinutes:     offering.DurationMinutes,
		Date:                req.Date,
		Start:               req.Start,
		PaymentMethod:       req.PaymentMethod,
		FeeCents:            s.cfg.FeeCents,
	}
	return r, pro, nil
}

// startPayment routes card payments through the gateway. Direct transfers (pix)
// only need the payout key. A failed gateway call releases the slot.
func (s *service) startPayment(ctx context.Context, r *Reservation, pro *professional.Professional) (Payment, error) {
	payment := Payment{
		Method:      r.PaymentMethod,
		AmountCents: r.FeeCents,
		Currency:    s.cfg.Currency,
	}

	if r.PaymentMethod == MethodPix {
		payment.PixKey = pro.PixKey
		if payment.PixKey == "" {
			payment.PixKey = s.cfg.StudioPixKey
		}
		return payment, nil
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, r)
	if err != nil {
		s.logger.Error("create payment intent failed", zap.String("reservation_id", r.ID), zap.Error(err))
		released, relErr := s.repo.UpdateStatus(ctx, r.ID, StatusPending, StatusUpdate{
			To:           StatusCancelled,
			CancelReason: paymentFailedReason,
		})
		if relErr != nil || !released {
			s.logger.Error("release slot after payment failure failed",
				zap.String("reservation_id", r.ID), zap.Bool("released", released), zap.Error(relErr))
		}
		return Payment{}, apperror.Wrap(err, http.StatusInternalServerError, ErrPaymentFailed.Message)
	}

	if err := s.repo.SetPaymentReference(ctx, r.ID, intent.Reference); err != nil {
		// The gateway correlates by external reference, so the webhook still resolves.
		s.logger.Warn("store payment reference failed", zap.String("reservation_id", r.ID), zap.Error(err))
	}
	r.PaymentReference = intent.Reference

	payment.Reference = intent.Reference
	payment.CheckoutURL = intent.CheckoutURL
	payment.SandboxCheckoutURL = intent.SandboxCheckoutURL
	return payment, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id, reason string) (*Reservation, error) {
	return s.lifecycle.Cancel(ctx, id, strings.TrimSpace(reason))
}

func (s *service) Confirm(ctx context.Context, id string) (*Reservation, error) {
	return s.lifecycle.Confirm(ctx, id)
}

func (s *service) HandlePaymentNotification(ctx context.Context, paymentID string) error {
	status, err := s.gateway.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	if status.ExternalReference == "" {
		s.logger.Info("payment without external reference, ignoring", zap.String("payment_id", paymentID))
		return nil
	}
	return s.lifecycle.ApplyPayment(ctx, status)
}
