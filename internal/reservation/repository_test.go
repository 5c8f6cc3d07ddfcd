package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
)

func newReservationForInsert() *Reservation {
	return &Reservation{
		ProfessionalID:  "pro-1",
		ClientName:      "Julia",
		ClientContact:   "11988887777",
		ClientEmail:     "julia@example.com",
		Service:         "Manicure",
		DurationMinutes: 60,
		Date:            bookDate,
		Start:           at("10:00"),
		Status:          StatusPending,
		PaymentMethod:   MethodPix,
		FeeCents:        3000,
	}
}

func expectInsert(mock pgxmock.PgxPoolIface) *pgxmock.ExpectedQuery {
	return mock.ExpectQuery("INSERT INTO public.reservations").
		WithArgs("pro-1", "Julia", "11988887777", "julia@example.com", "Manicure",
			60, "2026-03-10", 600, "pending", "pix", int64(3000))
}

func TestRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgxRepository(mock)
	now := time.Now().UTC()

	expectInsert(mock).WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("res-1", now, now))

	r := newReservationForInsert()
	require.NoError(t, repo.Create(context.Background(), r))
	assert.Equal(t, "res-1", r.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateConstraintViolations(t *testing.T) {
	for _, code := range []string{pgerrcode.UniqueViolation, pgerrcode.ExclusionViolation} {
		t.Run(code, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewPgxRepository(mock)
			expectInsert(mock).WillReturnError(&pgconn.PgError{Code: code})

			err = repo.Create(context.Background(), newReservationForInsert())
			assert.ErrorIs(t, err, ErrSlotUnavailable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgxRepository(mock)
	now := time.Now().UTC()

	columns := []string{
		"id", "professional_id", "name", "contact", "client_name", "client_contact", "client_email",
		"service", "duration_minutes", "date", "start_minute", "status", "payment_method",
		"payment_reference", "payment_id", "payment_status", "fee_cents", "cancel_reason", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM public.reservations r JOIN public.professionals p").
		WithArgs("res-1").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			"res-1", "pro-1", "Ana", "11977776666", "Julia", "11988887777", "",
			"Manicure", 60, bookDate, 600, "paid", "card",
			"pref-1", "pay-1", "approved", int64(3000), "", now, now,
		))

	r, err := repo.GetByID(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", r.ProfessionalName)
	assert.Equal(t, at("10:00"), r.Start)
	assert.Equal(t, at("11:00"), r.End())
	assert.Equal(t, StatusPaid, r.Status)
	assert.Equal(t, MethodCard, r.PaymentMethod)

	mock.ExpectQuery("SELECT (.+) FROM public.reservations").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryActiveIntervals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgxRepository(mock)

	mock.ExpectQuery("SELECT start_minute, duration_minutes FROM public.reservations").
		WithArgs("2026-03-10", "pro-1", "pending", "paid", "confirmed").
		WillReturnRows(pgxmock.NewRows([]string{"start_minute", "duration_minutes"}).
			AddRow(600, 60).
			AddRow(900, 90))

	intervals, err := repo.ActiveIntervals(context.Background(), "pro-1", bookDate)
	require.NoError(t, err)
	assert.Equal(t, []availability.Interval{{Start: at("10:00"), Duration: 60}, {Start: at("15:00"), Duration: 90}}, intervals)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStatusIsGuarded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgxRepository(mock)
	upd := StatusUpdate{To: StatusPaid, PaymentID: "pay-1", PaymentStatus: "approved"}

	mock.ExpectExec("UPDATE public.reservations SET status").
		WithArgs("paid", "pay-1", "approved", "res-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	won, err := repo.UpdateStatus(context.Background(), "res-1", StatusPending, upd)
	require.NoError(t, err)
	assert.True(t, won)

	mock.ExpectExec("UPDATE public.reservations SET status").
		WithArgs("paid", "pay-1", "approved", "res-1", "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	won, err = repo.UpdateStatus(context.Background(), "res-1", StatusPending, upd)
	require.NoError(t, err)
	assert.False(t, won, "precondition no longer held")

	mock.ExpectExec("UPDATE public.reservations SET status").
		WithArgs("cancelled", "no show", "res-2", "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	won, err = repo.UpdateStatus(context.Background(), "res-2", StatusPaid, StatusUpdate{To: StatusCancelled, CancelReason: "no show"})
	require.NoError(t, err)
	assert.True(t, won)

	assert.NoError(t, mock.ExpectationsWereMet())
}
