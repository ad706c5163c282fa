package schedule

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanOverride(row pgx.Row) (*Override, error) {
	var o Override
	err := row.Scan(
		&o.ID,
		&o.DoctorID,
		&o.Date,
		&o.TimeSlot,
		&o.IsAvailable,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) ListOverrides(ctx context.Context, doctorID int64, startDate, endDate string) ([]Override, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, date, time_slot, is_available
		FROM availability_overrides
		WHERE doctor_id = $1 AND date BETWEEN $2 AND $3
	`, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetOverride(ctx context.Context, doctorID int64, date, slot string) (*Override, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, date, time_slot, is_available
		FROM availability_overrides
		WHERE doctor_id = $1 AND date = $2 AND time_slot = $3
	`, doctorID, date, slot)
	return scanOverride(row)
}

// UpsertOverride relies on the (doctor_id, date, time_slot) uniqueness
// constraint: at most one override per key, updated in place.
func (r *PgRepository) UpsertOverride(ctx context.Context, o Override) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_overrides (doctor_id, date, time_slot, is_available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, date, time_slot)
		DO UPDATE SET is_available = EXCLUDED.is_available
	`, o.DoctorID, o.Date, o.TimeSlot, o.IsAvailable)
	return err
}

func (r *PgRepository) ActiveBookings(ctx context.Context, doctorID int64, startDate, endDate string) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, time_slot, status
		FROM appointments
		WHERE doctor_id = $1
		  AND date BETWEEN $2 AND $3
		  AND status <> 'CANCELLED'
	`, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.Date, &b.TimeSlot, &b.Status); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
