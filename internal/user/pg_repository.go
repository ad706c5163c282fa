package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanDoctorAccount(row pgx.Row) (*DoctorAccount, error) {
	var d DoctorAccount
	err := row.Scan(
		&d.ID,
		&d.FullName,
		&d.Specialization,
		&d.ExperienceYears,
		&d.About,
		&d.Username,
		&d.Email,
		&d.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatientAccount(row pgx.Row) (*PatientAccount, error) {
	var p PatientAccount
	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Gender,
		&p.DOB,
		&p.Address,
		&p.Phone,
		&p.HeightCM,
		&p.WeightKG,
		&p.BloodGroup,
		&p.Username,
		&p.Email,
		&p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Interface methods

func (r *PgRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role, is_active, created_at
		FROM users
		WHERE username = $1
	`, username)
	return scanUser(row)
}

func (r *PgRepository) SetUserActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HardDeleteUser removes the account and, through FK cascades, its profile,
// appointments, treatments and availability overrides.
func (r *PgRepository) HardDeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) createAccount(ctx context.Context, u User, insertProfile func(pgx.Tx, int64) error) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.Role).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	if err := insertProfile(tx, id); err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateUser inserts a bare user row with no profile, used for admin
// accounts.
func (r *PgRepository) CreateUser(ctx context.Context, u User) (int64, error) {
	return r.createAccount(ctx, u, func(pgx.Tx, int64) error { return nil })
}

func (r *PgRepository) CreateDoctor(ctx context.Context, u User, d Doctor) (*DoctorAccount, error) {
	id, err := r.createAccount(ctx, u, func(tx pgx.Tx, userID int64) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, full_name, specialization, experience_years, about)
			VALUES ($1, $2, $3, $4, $5)
		`, userID, d.FullName, d.Specialization, d.ExperienceYears, d.About)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetDoctorByID(ctx, id)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*DoctorAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT d.id, d.full_name, d.specialization, d.experience_years, d.about,
		       u.username, u.email, u.is_active
		FROM doctors d
		JOIN users u ON u.id = d.id
		WHERE d.id = $1 AND u.role = 'doctor'
	`, id)
	return scanDoctorAccount(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context, onlyActive bool) ([]DoctorAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.full_name, d.specialization, d.experience_years, d.about,
		       u.username, u.email, u.is_active
		FROM doctors d
		JOIN users u ON u.id = d.id
		WHERE u.role = 'doctor' AND ($1 = false OR u.is_active)
		ORDER BY d.full_name, d.id
	`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorAccount
	for rows.Next() {
		d, err := scanDoctorAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, d Doctor) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET full_name = $2, specialization = $3, experience_years = $4, about = $5
		WHERE id = $1
	`, d.ID, d.FullName, d.Specialization, d.ExperienceYears, d.About)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, u User, p Patient) (*PatientAccount, error) {
	id, err := r.createAccount(ctx, u, func(tx pgx.Tx, userID int64) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, full_name, gender, dob, address, phone, height_cm, weight_kg, blood_group)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, userID, p.FullName, p.Gender, p.DOB, p.Address, p.Phone, p.HeightCM, p.WeightKG, p.BloodGroup)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetPatientByID(ctx, id)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*PatientAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT p.id, p.full_name, p.gender, p.dob, p.address, p.phone,
		       p.height_cm, p.weight_kg, p.blood_group,
		       u.username, u.email, u.is_active
		FROM patients p
		JOIN users u ON u.id = p.id
		WHERE p.id = $1 AND u.role = 'patient'
	`, id)
	return scanPatientAccount(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, onlyActive bool) ([]PatientAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.full_name, p.gender, p.dob, p.address, p.phone,
		       p.height_cm, p.weight_kg, p.blood_group,
		       u.username, u.email, u.is_active
		FROM patients p
		JOIN users u ON u.id = p.id
		WHERE u.role = 'patient' AND ($1 = false OR u.is_active)
		ORDER BY p.full_name, p.id
	`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PatientAccount
	for rows.Next() {
		p, err := scanPatientAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET full_name = $2, gender = $3, dob = $4, address = $5, phone = $6,
		    height_cm = $7, weight_kg = $8, blood_group = $9
		WHERE id = $1
	`, p.ID, p.FullName, p.Gender, p.DOB, p.Address, p.Phone, p.HeightCM, p.WeightKG, p.BloodGroup)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) CountByRole(ctx context.Context) (RoleCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role, count(*)
		FROM users
		WHERE role IN ('doctor', 'patient')
		GROUP BY role
	`)
	if err != nil {
		return RoleCounts{}, err
	}
	defer rows.Close()

	var counts RoleCounts
	for rows.Next() {
		var role Role
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return RoleCounts{}, err
		}
		switch role {
		case RoleDoctor:
			counts.Doctors = n
		case RolePatient:
			counts.Patients = n
		}
	}
	return counts, rows.Err()
}
