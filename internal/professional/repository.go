package professional

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/nekogravitycat/studio-booking-backend/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Professional, error)
	ListActive(ctx context.Context) ([]*Professional, error)
}

type pgxRepository struct {
	pool db.DBTX
}

func NewPgxRepository(pool db.DBTX) Repository {
	return &pgxRepository{pool: pool}
}

var professionalColumns = []string{
	"id", "name", "services", "COALESCE(pix_key, '')", "COALESCE(contact, '')",
	"COALESCE(password_hash, '')", "active", "created_at",
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	var services []byte
	if err := row.Scan(
		&p.ID, &p.Name, &services, &p.PixKey, &p.Contact,
		&p.PasswordHash, &p.Active, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &p.Services); err != nil {
			return nil, fmt.Errorf("decode services of professional %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Professional, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(professionalColumns...).
		From("public.professionals").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get professional query failed: %w", err)
	}

	p, err := scanProfessional(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get professional failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) ListActive(ctx context.Context) ([]*Professional, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(professionalColumns...).
		From("public.professionals").
		Where(squirrel.Eq{"active": true}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list professionals query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list professionals failed: %w", err)
	}
	defer rows.Close()

	var result []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professional failed: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list professionals failed: %w", err)
	}
	return result, nil
}
