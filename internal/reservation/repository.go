package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/db"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

// StatusUpdate describes a guarded status change. Empty strings leave the column untouched.
type StatusUpdate struct {
	To            Status
	PaymentID     string
	PaymentStatus string
	CancelReason  string
}

type Repository interface {
	availability.OccupancyReader

	// Create inserts a pending reservation. The store rejects overlapping active
	// reservations, which surfaces as ErrSlotUnavailable.
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	ListByDate(ctx context.Context, date time.Time, statuses []Status) ([]*Reservation, error)

	// UpdateStatus applies upd only while the reservation is still in status from.
	// It reports false when the precondition no longer held.
	UpdateStatus(ctx context.Context, id string, from Status, upd StatusUpdate) (bool, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
}

type pgxRepository struct {
	pool db.DBTX
}

func NewPgxRepository(pool db.DBTX) Repository {
	return &pgxRepository{pool: pool}
}

var reservationColumns = []string{
	"r.id", "r.professional_id", "p.name", "COALESCE(p.contact, '')",
	"r.client_name", "r.client_contact", "COALESCE(r.client_email, '')",
	"r.service", "r.duration_minutes", "r.date", "r.start_minute", "r.status", "r.payment_method",
	"COALESCE(r.payment_reference, '')", "COALESCE(r.payment_id, '')", "COALESCE(r.payment_status, '')",
	"r.fee_cents", "COALESCE(r.cancel_reason, '')", "r.created_at", "r.updated_at",
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var start int
	var status, method string
	if err := row.Scan(
		&r.ID, &r.ProfessionalID, &r.ProfessionalName, &r.ProfessionalContact,
		&r.ClientName, &r.ClientContact, &r.ClientEmail,
		&r.Service, &r.DurationMinutes, &r.Date, &start, &status, &method,
		&r.PaymentReference, &r.PaymentID, &r.PaymentStatus,
		&r.FeeCents, &r.CancelReason, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Start = grid.TimeOfDay(start)
	r.Status = Status(status)
	r.PaymentMethod = PaymentMethod(method)
	return &r, nil
}

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reservations").
		Columns(
			"professional_id", "client_name", "client_contact", "client_email", "service",
			"duration_minutes", "date", "start_minute", "status", "payment_method", "fee_cents",
		).
		Values(
			res.ProfessionalID, res.ClientName, res.ClientContact, res.ClientEmail, res.Service,
			res.DurationMinutes, res.Date.Format(grid.DateLayout), int(res.Start), string(res.Status),
			string(res.PaymentMethod), res.FeeCents,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation, pgerrcode.ExclusionViolation:
				return ErrSlotUnavailable
			}
		}
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Join("public.professionals p ON r.professional_id = p.id").
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) ListByDate(ctx context.Context, date time.Time, statuses []Status) ([]*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations r").
		Join("public.professionals p ON r.professional_id = p.id").
		Where(squirrel.Eq{"r.date": date.Format(grid.DateLayout), "r.status": statusStrings(statuses)}).
		OrderBy("r.start_minute ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations failed: %w", err)
	}
	return result, nil
}

func (r *pgxRepository) ActiveIntervals(ctx context.Context, professionalID string, date time.Time) ([]availability.Interval, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("start_minute", "duration_minutes").
		From("public.reservations").
		Where(squirrel.Eq{
			"professional_id": professionalID,
			"date":            date.Format(grid.DateLayout),
			"status":          statusStrings(ActiveStatuses),
		}).
		OrderBy("start_minute ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active intervals query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active intervals failed: %w", err)
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var start, duration int
		if err := rows.Scan(&start, &duration); err != nil {
			return nil, fmt.Errorf("scan active interval failed: %w", err)
		}
		intervals = append(intervals, availability.Interval{Start: grid.TimeOfDay(start), Duration: duration})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active intervals failed: %w", err)
	}
	return intervals, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from Status, upd StatusUpdate) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Update("public.reservations").
		Set("status", string(upd.To))
	if upd.PaymentID != "" {
		builder = builder.Set("payment_id", upd.PaymentID)
	}
	if upd.PaymentStatus != "" {
		builder = builder.Set("payment_status", upd.PaymentStatus)
	}
	if upd.CancelReason != "" {
		builder = builder.Set("cancel_reason", upd.CancelReason)
	}
	query, args, err := builder.
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update reservation status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update reservation status failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) SetPaymentReference(ctx context.Context, id, reference string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reservations").
		Set("payment_reference", reference).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set payment reference query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set payment reference failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
