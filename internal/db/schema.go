package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema statements are idempotent so Migrate can run on every startup.
// Dates are ISO YYYY-MM-DD text and slots are HH:MM labels from the slot grid,
// so lexicographic BETWEEN queries on date columns are correct.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            bigserial PRIMARY KEY,
		username      text NOT NULL UNIQUE,
		email         text NOT NULL,
		password_hash text NOT NULL,
		role          text NOT NULL,
		is_active     boolean NOT NULL DEFAULT true,
		created_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS doctors (
		id               bigint PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		full_name        text NOT NULL DEFAULT '',
		specialization   text NOT NULL DEFAULT '',
		experience_years int NOT NULL DEFAULT 0,
		about            text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id          bigint PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		full_name   text NOT NULL DEFAULT '',
		gender      text NOT NULL DEFAULT '',
		dob         text NOT NULL DEFAULT '',
		address     text NOT NULL DEFAULT '',
		phone       text NOT NULL DEFAULT '',
		height_cm   double precision,
		weight_kg   double precision,
		blood_group text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id         bigserial PRIMARY KEY,
		patient_id bigint NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		doctor_id  bigint NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		date       text NOT NULL,
		time_slot  text NOT NULL,
		status     text NOT NULL DEFAULT 'BOOKED',
		reason     text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	// One live booking per (doctor, date, slot). Cancelled rows drop out of the
	// index so the slot can be rebooked. This, not the application pre-check,
	// is what makes concurrent double-booking impossible.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_active_slot
		ON appointments (doctor_id, date, time_slot)
		WHERE status <> 'CANCELLED'`,
	`CREATE INDEX IF NOT EXISTS ix_appointments_patient ON appointments (patient_id, date)`,
	`CREATE INDEX IF NOT EXISTS ix_appointments_doctor_date ON appointments (doctor_id, date)`,
	`CREATE TABLE IF NOT EXISTS treatments (
		id             bigserial PRIMARY KEY,
		appointment_id bigint NOT NULL UNIQUE REFERENCES appointments(id) ON DELETE CASCADE,
		diagnosis      text NOT NULL DEFAULT '',
		prescription   text NOT NULL DEFAULT '',
		notes          text NOT NULL DEFAULT '',
		visit_type     text NOT NULL DEFAULT '',
		tests_text     text NOT NULL DEFAULT '',
		precautions    text NOT NULL DEFAULT '',
		follow_up_date text,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS availability_overrides (
		id           bigserial PRIMARY KEY,
		doctor_id    bigint NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		date         text NOT NULL,
		time_slot    text NOT NULL,
		is_available boolean NOT NULL DEFAULT true,
		UNIQUE (doctor_id, date, time_slot)
	)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
