package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.TimeSlot,
		&a.Status,
		&a.Reason,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.Date,
		&d.TimeSlot,
		&d.Status,
		&d.Reason,
		&d.CreatedAt,
		&d.PatientName,
		&d.DoctorName,
		&d.DoctorSpecialization,
		&d.HasTreatment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(
		&t.ID,
		&t.AppointmentID,
		&t.Diagnosis,
		&t.Prescription,
		&t.Notes,
		&t.VisitType,
		&t.TestsText,
		&t.Precautions,
		&t.FollowUpDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}
	return &t, nil
}

const detailColumns = `
	a.id, a.patient_id, a.doctor_id, a.date, a.time_slot, a.status, a.reason, a.created_at,
	p.full_name, d.full_name, d.specialization,
	EXISTS (SELECT 1 FROM treatments t WHERE t.appointment_id = a.id)
`

const detailJoins = `
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
`

// Interface methods

func (r *PgRepository) GetBookableDoctor(ctx context.Context, id int64) (*DoctorRef, error) {
	var ref DoctorRef
	err := r.pool.QueryRow(ctx, `
		SELECT d.id, d.full_name, d.specialization
		FROM doctors d
		JOIN users u ON u.id = d.id
		WHERE d.id = $1 AND u.role = 'doctor' AND u.is_active
	`, id).Scan(&ref.ID, &ref.FullName, &ref.Specialization)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorUnavailable
		}
		return nil, err
	}
	return &ref, nil
}

func (r *PgRepository) PatientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patients p
			JOIN users u ON u.id = p.id
			WHERE p.id = $1 AND u.role = 'patient'
		)
	`, id).Scan(&exists)
	return exists, err
}

func (r *PgRepository) ActiveAppointmentExists(ctx context.Context, doctorID int64, date, slot string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND time_slot = $3
			  AND status <> 'CANCELLED'
		)
	`, doctorID, date, slot).Scan(&exists)
	return exists, err
}

// CreateBooked inserts a BOOKED row. The partial unique index on active
// (doctor, date, slot) triples is the real double-booking guard; a violation
// from a concurrent insert comes back as ErrSlotTaken.
func (r *PgRepository) CreateBooked(ctx context.Context, patientID, doctorID int64, date, slot string, reason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, date, time_slot, status, reason)
		VALUES ($1, $2, $3, $4, 'BOOKED', $5)
		RETURNING id, patient_id, doctor_id, date, time_slot, status, reason, created_at
	`, patientID, doctorID, date, slot, reason)

	a, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, date, time_slot, status, reason, created_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, doctor_id, date, time_slot, status, reason, created_at
	`, id, to, from)
	return scanAppointment(row)
}

func buildFilter(f ListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.DoctorID != 0 {
		add("a.doctor_id = $%d", f.DoctorID)
	}
	if f.PatientID != 0 {
		add("a.patient_id = $%d", f.PatientID)
	}
	if f.Date != "" {
		add("a.date = $%d", f.Date)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.Search != "" {
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.full_name ILIKE $%d OR a.reason ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Detail, error) {
	where, args := buildFilter(f)

	rows, err := r.pool.Query(ctx,
		`SELECT `+detailColumns+detailJoins+where+`
		ORDER BY a.date DESC, a.time_slot ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPatientAppointment(ctx context.Context, id, patientID int64) (*Detail, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+detailColumns+detailJoins+`
		WHERE a.id = $1 AND a.patient_id = $2`, id, patientID)
	return scanDetail(row)
}

func (r *PgRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments`).Scan(&n)
	return n, err
}

func (r *PgRepository) CountCompletedBetween(ctx context.Context, doctorID int64, startDate, endDate string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND date BETWEEN $2 AND $3
		  AND status = 'COMPLETED'
	`, doctorID, startDate, endDate).Scan(&n)
	return n, err
}

func (r *PgRepository) History(ctx context.Context, f ListFilter) ([]Visit, error) {
	where, args := buildFilter(f)

	rows, err := r.pool.Query(ctx,
		`SELECT `+detailColumns+`,
			t.id, t.appointment_id, t.diagnosis, t.prescription, t.notes,
			t.visit_type, t.tests_text, t.precautions, t.follow_up_date,
			t.created_at, t.updated_at
		`+detailJoins+`
		LEFT JOIN treatments t ON t.appointment_id = a.id
		`+where+`
		ORDER BY a.date DESC, a.time_slot DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Visit
	for rows.Next() {
		var v Visit
		var tID, tApptID *int64
		var diagnosis, prescription, notes, visitType, testsText, precautions *string
		var followUp *string
		var tCreated, tUpdated *time.Time

		err := rows.Scan(
			&v.ID, &v.PatientID, &v.DoctorID, &v.Date, &v.TimeSlot, &v.Status,
			&v.Reason, &v.CreatedAt,
			&v.PatientName, &v.DoctorName, &v.DoctorSpecialization, &v.HasTreatment,
			&tID, &tApptID, &diagnosis, &prescription, &notes,
			&visitType, &testsText, &precautions, &followUp,
			&tCreated, &tUpdated,
		)
		if err != nil {
			return nil, err
		}

		if tID != nil {
			v.Treatment = &Treatment{
				ID:            *tID,
				AppointmentID: *tApptID,
				Diagnosis:     deref(diagnosis),
				Prescription:  deref(prescription),
				Notes:         deref(notes),
				VisitType:     deref(visitType),
				TestsText:     deref(testsText),
				Precautions:   deref(precautions),
				FollowUpDate:  followUp,
				CreatedAt:     *tCreated,
				UpdatedAt:     *tUpdated,
			}
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UpsertTreatment keeps exactly one treatment row per appointment, updating
// it in place on re-save. The UNIQUE constraint on appointment_id makes the
// decision structural.
func (r *PgRepository) UpsertTreatment(ctx context.Context, t Treatment) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO treatments (appointment_id, diagnosis, prescription, notes,
			visit_type, tests_text, precautions, follow_up_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id) DO UPDATE SET
			diagnosis = EXCLUDED.diagnosis,
			prescription = EXCLUDED.prescription,
			notes = EXCLUDED.notes,
			visit_type = EXCLUDED.visit_type,
			tests_text = EXCLUDED.tests_text,
			precautions = EXCLUDED.precautions,
			follow_up_date = EXCLUDED.follow_up_date,
			updated_at = now()
		RETURNING id, appointment_id, diagnosis, prescription, notes,
			visit_type, tests_text, precautions, follow_up_date, created_at, updated_at
	`, t.AppointmentID, t.Diagnosis, t.Prescription, t.Notes,
		t.VisitType, t.TestsText, t.Precautions, t.FollowUpDate)
	return scanTreatment(row)
}

func (r *PgRepository) GetTreatmentByAppointment(ctx context.Context, appointmentID int64) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, diagnosis, prescription, notes,
			visit_type, tests_text, precautions, follow_up_date, created_at, updated_at
		FROM treatments
		WHERE appointment_id = $1
	`, appointmentID)
	return scanTreatment(row)
}
