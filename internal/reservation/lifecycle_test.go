package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLifecycle() (*Lifecycle, *memoryStore, *recordingNotifier) {
	store := newMemoryStore()
	notifier := &recordingNotifier{}
	return NewLifecycle(store, notifier, zap.NewNop(), nil), store, notifier
}

func pendingReservation(store *memoryStore) string {
	return store.put(Reservation{
		ProfessionalID:  "pro-1",
		ClientName:      "Julia",
		ClientContact:   "11 98888-7777",
		Service:         "Manicure",
		DurationMinutes: 60,
		Date:            bookDate,
		Start:           at("10:00"),
		Status:          StatusPending,
	})
}

func payment(id, status string) *PaymentStatus {
	return &PaymentStatus{PaymentID: "pay-1", Status: status, ExternalReference: id}
}

func TestMapGatewayStatus(t *testing.T) {
	tests := map[string]Status{
		"approved":     StatusPaid,
		"APPROVED":     StatusPaid,
		"pending":      StatusPending,
		"in_process":   StatusPending,
		"rejected":     StatusCancelled,
		"cancelled":    StatusCancelled,
		"refunded":     StatusCancelled,
		"charged_back": StatusCancelled,
		"authorized":   StatusPending,
		"":             StatusPending,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGatewayStatus(in), in)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusPaid, StatusConfirmed))
	assert.True(t, CanTransition(StatusPaid, StatusCancelled))

	assert.False(t, CanTransition(StatusPending, StatusConfirmed))
	assert.False(t, CanTransition(StatusPaid, StatusPending))
	for _, to := range []Status{StatusPending, StatusPaid, StatusConfirmed, StatusCancelled} {
		assert.False(t, CanTransition(StatusConfirmed, to))
		assert.False(t, CanTransition(StatusCancelled, to))
	}
}

func TestApprovedConfirmsOnceAndReplayIsIgnored(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)
	ctx := context.Background()

	require.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Equal(t, 1, notifier.count(EventPaymentConfirmed))

	// The confirmation message goes out while the reservation is paid.
	assert.Equal(t, StatusPaid, notifier.sent[0].status)

	require.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Equal(t, 1, notifier.count(EventPaymentConfirmed))

	r, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", r.PaymentID)
	assert.Equal(t, "approved", r.PaymentStatus)
}

func TestStaleRejectionKeepsConfirmed(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)
	ctx := context.Background()

	require.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
	require.NoError(t, l.ApplyPayment(ctx, payment(id, "rejected")))

	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Zero(t, notifier.count(EventCancelled))
}

func TestRejectedCancelsPending(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)
	ctx := context.Background()

	require.NoError(t, l.ApplyPayment(ctx, payment(id, "rejected")))
	assert.Equal(t, StatusCancelled, store.status(id))
	assert.Equal(t, 1, notifier.count(EventCancelled))

	require.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
	require.NoError(t, l.ApplyPayment(ctx, payment(id, "refunded")))
	assert.Equal(t, StatusCancelled, store.status(id))
	assert.Equal(t, 1, notifier.count(EventCancelled))
	assert.Zero(t, notifier.count(EventPaymentConfirmed))
}

func TestPendingEventsAreNoOps(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)

	for _, s := range []string{"pending", "in_process", "something_new"} {
		require.NoError(t, l.ApplyPayment(context.Background(), payment(id, s)))
	}
	assert.Equal(t, StatusPending, store.status(id))
	assert.Zero(t, store.updates)
	assert.Empty(t, notifier.sent)
}

func TestPaidIgnoresGatewayEvents(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := store.put(Reservation{ProfessionalID: "pro-1", Date: bookDate, Start: at("10:00"), DurationMinutes: 30, Status: StatusPaid})

	require.NoError(t, l.ApplyPayment(context.Background(), payment(id, "rejected")))
	assert.Equal(t, StatusPaid, store.status(id))
	assert.Empty(t, notifier.sent)
}

func TestUnknownReservationIsNoOp(t *testing.T) {
	l, _, notifier := newLifecycle()

	assert.NoError(t, l.ApplyPayment(context.Background(), payment(uuid.NewString(), "approved")))
	assert.Empty(t, notifier.sent)
}

func TestForeignReferenceIsNoOp(t *testing.T) {
	l, store, notifier := newLifecycle()
	// A store lookup would fail the way PostgreSQL rejects a non-uuid id.
	store.failGet = errors.New(`invalid input syntax for type uuid: "order-42"`)

	assert.NoError(t, l.ApplyPayment(context.Background(), payment("order-42", "approved")))
	assert.NoError(t, l.ApplyPayment(context.Background(), payment("", "approved")))
	assert.Empty(t, notifier.sent)
}

func TestStoreErrorsAreReturned(t *testing.T) {
	l, store, _ := newLifecycle()
	store.failGet = errors.New("db down")

	assert.Error(t, l.ApplyPayment(context.Background(), payment(uuid.NewString(), "approved")))
}

func TestNotificationFailureDoesNotBlockTransition(t *testing.T) {
	l, store, notifier := newLifecycle()
	notifier.err = errors.New("whatsapp down")
	id := pendingReservation(store)

	require.NoError(t, l.ApplyPayment(context.Background(), payment(id, "approved")))
	assert.Equal(t, StatusConfirmed, store.status(id))
}

// Every ordering of a mixed, duplicated event stream ends in exactly one terminal
// state with exactly one terminal notification.
func TestEventOrderingNeverRegresses(t *testing.T) {
	events := []string{"in_process", "approved", "rejected", "approved", "refunded", "pending"}

	var permute func([]string, int, func([]string))
	permute = func(a []string, k int, visit func([]string)) {
		if k == len(a) {
			visit(a)
			return
		}
		for i := k; i < len(a); i++ {
			a[k], a[i] = a[i], a[k]
			permute(a, k+1, visit)
			a[k], a[i] = a[i], a[k]
		}
	}

	permute(append([]string(nil), events...), 0, func(seq []string) {
		l, store, notifier := newLifecycle()
		id := pendingReservation(store)

		var first Status
		for _, ev := range seq {
			require.NoError(t, l.ApplyPayment(context.Background(), payment(id, ev)))
			current := store.status(id)
			if first == "" && current.Terminal() {
				first = current
			}
			if first != "" {
				require.Equal(t, first, current, "sequence %v", seq)
			}
		}

		require.True(t, first.Terminal(), "sequence %v", seq)
		terminal := notifier.count(EventPaymentConfirmed) + notifier.count(EventCancelled)
		require.Equal(t, 1, terminal, "sequence %v", seq)
	})
}

func TestConcurrentApprovalsNotifyOnce(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.ApplyPayment(context.Background(), payment(id, "approved")))
		}()
	}
	wg.Wait()

	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Equal(t, 1, notifier.count(EventPaymentConfirmed))
}

func TestCancel(t *testing.T) {
	l, store, notifier := newLifecycle()
	ctx := context.Background()

	id := pendingReservation(store)
	r, err := l.Cancel(ctx, id, "client asked")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, "client asked", r.CancelReason)
	assert.Equal(t, 1, notifier.count(EventCancelled))

	r, err = l.Cancel(ctx, id, "again")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, "client asked", r.CancelReason)
	assert.Equal(t, 1, notifier.count(EventCancelled), "idempotent")

	paid := store.put(Reservation{ProfessionalID: "pro-1", Date: bookDate, Start: at("13:00"), DurationMinutes: 30, Status: StatusPaid})
	r, err = l.Cancel(ctx, paid, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)

	confirmed := store.put(Reservation{ProfessionalID: "pro-1", Date: bookDate, Start: at("15:00"), DurationMinutes: 30, Status: StatusConfirmed})
	_, err = l.Cancel(ctx, confirmed, "")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, StatusConfirmed, store.status(confirmed))

	_, err = l.Cancel(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmManualPayment(t *testing.T) {
	l, store, notifier := newLifecycle()
	ctx := context.Background()
	id := pendingReservation(store)

	r, err := l.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Equal(t, "manual", r.PaymentStatus)
	require.Equal(t, 1, notifier.count(EventPaymentConfirmed))
	assert.Equal(t, StatusPaid, notifier.sent[0].status)

	// Replays and a late gateway approval change nothing.
	r, err = l.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	require.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
	assert.Equal(t, 1, notifier.count(EventPaymentConfirmed))
}

func TestConfirmFinishesPaid(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := store.put(Reservation{ProfessionalID: "pro-1", Date: bookDate, Start: at("10:00"), DurationMinutes: 30, Status: StatusPaid})

	r, err := l.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Empty(t, notifier.sent, "the paid message already went out")
}

func TestConfirmRejectsCancelled(t *testing.T) {
	l, store, notifier := newLifecycle()
	ctx := context.Background()
	id := store.put(Reservation{ProfessionalID: "pro-1", Date: bookDate, Start: at("10:00"), DurationMinutes: 30, Status: StatusCancelled})

	_, err := l.Confirm(ctx, id)
	assert.ErrorIs(t, err, ErrNotConfirmable)
	assert.Equal(t, StatusCancelled, store.status(id))
	assert.Empty(t, notifier.sent)

	_, err = l.Confirm(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentConfirmAndApprovalNotifyOnce(t *testing.T) {
	l, store, notifier := newLifecycle()
	id := pendingReservation(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.Confirm(ctx, id)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, l.ApplyPayment(ctx, payment(id, "approved")))
		}()
	}
	wg.Wait()

	assert.Equal(t, StatusConfirmed, store.status(id))
	assert.Equal(t, 1, notifier.count(EventPaymentConfirmed))
}
