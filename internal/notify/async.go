package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// Async hands each notification to a goroutine and returns immediately. The send runs
// with its own timeout, detached from the caller's cancellation.
type Async struct {
	next    reservation.Notifier
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewAsync(next reservation.Notifier, timeout time.Duration, logger *zap.Logger) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, timeout: timeout, logger: logging.OrNop(logger)}
}

func (a *Async) Notify(ctx context.Context, event reservation.Event, r *reservation.Reservation) error {
	snapshot := *r

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("notification panicked", zap.String("event", string(event)), zap.Any("panic", rec))
			}
		}()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Notify(sendCtx, event, &snapshot); err != nil {
			a.logger.Warn("async notification failed",
				zap.String("event", string(event)),
				zap.String("reservation_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until every notification started so far has finished. Used on shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}

var _ reservation.Notifier = (*Async)(nil)
