package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/nekogravitycat/studio-booking-backend/internal/db"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
)

type Repository interface {
	ScheduleReader

	// ReplaceWindows atomically swaps every window of (professional, date) for the given set.
	ReplaceWindows(ctx context.Context, professionalID string, date time.Time, windows []Window) error
	Block(ctx context.Context, b *Block) error
	Unblock(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay) error
}

type pgxRepository struct {
	pool db.DBTX
}

func NewPgxRepository(pool db.DBTX) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Windows(ctx context.Context, professionalID string, date time.Time) ([]Window, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("start_minute", "open").
		From("public.availability_windows").
		Where(squirrel.Eq{"professional_id": professionalID, "date": date.Format(grid.DateLayout)}).
		OrderBy("start_minute ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list windows query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list windows failed: %w", err)
	}
	defer rows.Close()

	var windows []Window
	for rows.Next() {
		var start int
		var open bool
		if err := rows.Scan(&start, &open); err != nil {
			return nil, fmt.Errorf("scan window failed: %w", err)
		}
		windows = append(windows, Window{
			ProfessionalID: professionalID,
			Date:           date,
			Start:          grid.TimeOfDay(start),
			Open:           open,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list windows failed: %w", err)
	}
	return windows, nil
}

func (r *pgxRepository) Blocks(ctx context.Context, professionalID string, date time.Time) ([]Block, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("start_minute", "COALESCE(reason, '')", "created_at").
		From("public.blocked_slots").
		Where(squirrel.Eq{"professional_id": professionalID, "date": date.Format(grid.DateLayout)}).
		OrderBy("start_minute ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list blocks query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks failed: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var start int
		b := Block{ProfessionalID: professionalID, Date: date}
		if err := rows.Scan(&start, &b.Reason, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block failed: %w", err)
		}
		b.Start = grid.TimeOfDay(start)
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blocks failed: %w", err)
	}
	return blocks, nil
}

func (r *pgxRepository) ReplaceWindows(ctx context.Context, professionalID string, date time.Time, windows []Window) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	day := date.Format(grid.DateLayout)

	deleteSQL, deleteArgs, err := psql.Delete("public.availability_windows").
		Where(squirrel.Eq{"professional_id": professionalID, "date": day}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete windows query failed: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace windows failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteSQL, deleteArgs...); err != nil {
		return fmt.Errorf("delete windows failed: %w", err)
	}

	if len(windows) > 0 {
		insert := psql.Insert("public.availability_windows").
			Columns("professional_id", "date", "start_minute", "open")
		for _, w := range windows {
			insert = insert.Values(professionalID, day, int(w.Start), w.Open)
		}
		insertSQL, insertArgs, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert windows query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
			return fmt.Errorf("insert windows failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace windows failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Block(ctx context.Context, b *Block) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.blocked_slots").
		Columns("professional_id", "date", "start_minute", "reason").
		Values(b.ProfessionalID, b.Date.Format(grid.DateLayout), int(b.Start), b.Reason).
		Suffix("ON CONFLICT (professional_id, date, start_minute) DO UPDATE SET reason = EXCLUDED.reason RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build block slot query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.CreatedAt); err != nil {
		return fmt.Errorf("block slot failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Unblock(ctx context.Context, professionalID string, date time.Time, start grid.TimeOfDay) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.blocked_slots").
		Where(squirrel.Eq{
			"professional_id": professionalID,
			"date":            date.Format(grid.DateLayout),
			"start_minute":    int(start),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build unblock slot query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unblock slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}
