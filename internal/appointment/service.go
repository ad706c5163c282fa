package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careloop/hms-backend/internal/cache"
	redisclient "github.com/careloop/hms-backend/internal/redis"
	"github.com/careloop/hms-backend/internal/schedule"
)

var (
	ErrPastDate        = errors.New("appointment date cannot be in the past")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatus   = errors.New("invalid status value")
	ErrSameStatus      = errors.New("appointment is already in that status")
	ErrTerminalStatus  = errors.New("completed or cancelled appointments cannot change status")
	ErrNotOwner        = errors.New("appointment belongs to another doctor")
	ErrCancelCompleted = errors.New("cannot cancel a completed appointment")
	ErrCancelPast      = errors.New("cannot cancel past appointments")
	ErrStatusChanged   = errors.New("appointment status changed concurrently")
)

// Invalidator is the cache side-channel every mutation feeds.
type Invalidator interface {
	Invalidate(ctx context.Context, m cache.Mutation)
}

// Service implements booking, status transitions and treatment recording.
type Service struct {
	repo   Repository
	grid   schedule.Grid
	locker redisclient.Locker
	inv    Invalidator
}

func NewService(repo Repository, grid schedule.Grid, locker redisclient.Locker, inv Invalidator) *Service {
	return &Service{repo: repo, grid: grid, locker: locker, inv: inv}
}

// Book reserves a slot for a patient. Preconditions run in a fixed order:
// active doctor, valid non-past date, slot on the grid, no non-cancelled
// appointment on the slot. The pre-check runs under a per-slot Redis lock but
// the partial unique index is the actual guarantee; a constraint violation
// from a concurrent insert surfaces as ErrSlotTaken.
func (s *Service) Book(ctx context.Context, patientID, doctorID int64, rawDate, slot string, reason *string) (*Appointment, error) {
	ok, err := s.repo.PatientExists(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	if _, err := s.repo.GetBookableDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	if schedule.BeforeToday(date) {
		return nil, ErrPastDate
	}

	if !s.grid.Contains(slot) {
		return nil, schedule.ErrUnknownSlot
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, doctorID, date, slot, func(lockCtx context.Context) error {
		taken, err := s.repo.ActiveAppointmentExists(lockCtx, doctorID, date, slot)
		if err != nil {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if taken {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateBooked(lockCtx, patientID, doctorID, date, slot, reason)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.inv.Invalidate(ctx, cache.MutationBooking)
	return created, nil
}

// UpdateStatus applies the transition guard for a doctor or admin actor.
// Only BOOKED appointments move, and only to COMPLETED or CANCELLED; a
// transition to the current status is rejected as redundant rather than
// silently succeeding.
func (s *Service) UpdateStatus(ctx context.Context, actorID int64, isAdmin bool, appointmentID int64, newStatus Status) (*Appointment, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && appt.DoctorID != actorID {
		return nil, ErrNotOwner
	}

	if appt.Status == newStatus {
		return nil, ErrSameStatus
	}
	if appt.Status.Terminal() {
		return nil, ErrTerminalStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, appt.Status, newStatus)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.inv.Invalidate(ctx, cache.MutationStatusChange)
	return updated, nil
}

// CancelByPatient is the narrower patient-owned cancellation: own BOOKED
// appointments only, not completed ones, not past-dated ones. Cancelling an
// already-cancelled appointment is a no-op, not an error.
func (s *Service) CancelByPatient(ctx context.Context, patientID, appointmentID int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}

	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if appt.Status == StatusCompleted {
		return nil, ErrCancelCompleted
	}
	if schedule.BeforeToday(appt.Date) {
		return nil, ErrCancelPast
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusBooked, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.inv.Invalidate(ctx, cache.MutationStatusChange)
	return updated, nil
}

// TreatmentInput carries the clinical fields of a treatment save.
type TreatmentInput struct {
	Diagnosis    string
	Prescription string
	Notes        string
	VisitType    string
	TestsText    string
	Precautions  string
	FollowUpDate *string
}

// SaveTreatment upserts the appointment's treatment record and, when the
// appointment is still BOOKED, completes it. The implicit transition skips
// the explicit-request guard: it is triggered by the appointment's own
// doctor saving the consultation outcome.
func (s *Service) SaveTreatment(ctx context.Context, doctorID, appointmentID int64, input TreatmentInput) (*Treatment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrNotOwner
	}

	if input.FollowUpDate != nil && *input.FollowUpDate != "" {
		normalized, err := schedule.ParseDate(*input.FollowUpDate)
		if err != nil {
			return nil, err
		}
		input.FollowUpDate = &normalized
	} else {
		input.FollowUpDate = nil
	}

	treatment, err := s.repo.UpsertTreatment(ctx, Treatment{
		AppointmentID: appt.ID,
		Diagnosis:     input.Diagnosis,
		Prescription:  input.Prescription,
		Notes:         input.Notes,
		VisitType:     input.VisitType,
		TestsText:     input.TestsText,
		Precautions:   input.Precautions,
		FollowUpDate:  input.FollowUpDate,
	})
	if err != nil {
		return nil, fmt.Errorf("save treatment: %w", err)
	}

	if appt.Status == StatusBooked {
		if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusBooked, StatusCompleted); err != nil {
			// another writer already moved it; the treatment row is saved
			if !errors.Is(err, ErrAppointmentNotFound) {
				return nil, fmt.Errorf("complete appointment: %w", err)
			}
		}
	}

	s.inv.Invalidate(ctx, cache.MutationTreatment)
	return treatment, nil
}

// GetTreatment returns the appointment's treatment for its owning doctor, or
// ErrTreatmentNotFound when none was recorded yet.
func (s *Service) GetTreatment(ctx context.Context, doctorID, appointmentID int64) (*Treatment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, ErrNotOwner
	}
	return s.repo.GetTreatmentByAppointment(ctx, appt.ID)
}

// Dashboard assembles the doctor landing summary: today's schedule ordered
// by slot plus today and current-week counters.
func (s *Service) Dashboard(ctx context.Context, doctorID int64) (*DashboardSummary, error) {
	today := schedule.Today()

	todays, err := s.repo.List(ctx, ListFilter{DoctorID: doctorID, Date: today})
	if err != nil {
		return nil, fmt.Errorf("load today's appointments: %w", err)
	}

	summary := &DashboardSummary{
		Date:          today,
		TodayTotal:    len(todays),
		TodaySchedule: todays,
	}
	for _, a := range todays {
		switch a.Status {
		case StatusBooked:
			summary.TodayBooked++
		case StatusCompleted:
			summary.TodayCompleted++
		}
	}
	summary.PendingVisits = summary.TodayBooked

	weekStart, weekEnd := currentWeek()
	completed, err := s.repo.CountCompletedBetween(ctx, doctorID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("count weekly completed: %w", err)
	}
	summary.WeekCompleted = completed

	return summary, nil
}

// currentWeek returns the Monday..Sunday ISO dates around today.
func currentWeek() (string, string) {
	now := time.Now()
	offset := (int(now.Weekday()) + 6) % 7 // Monday=0
	start := now.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 6)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

// ListForDoctor lists the doctor's own appointments, optionally filtered.
func (s *Service) ListForDoctor(ctx context.Context, doctorID int64, date string, status Status, search string) ([]Detail, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, ListFilter{DoctorID: doctorID, Date: date, Status: status, Search: search})
}

// ListForAdmin lists appointments across all doctors and patients.
func (s *Service) ListForAdmin(ctx context.Context, doctorID, patientID int64, status Status) ([]Detail, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, ListFilter{DoctorID: doctorID, PatientID: patientID, Status: status})
}

// PatientAppointments lists all of one patient's appointments.
func (s *Service) PatientAppointments(ctx context.Context, patientID int64) ([]Detail, error) {
	return s.repo.List(ctx, ListFilter{PatientID: patientID})
}

// PatientAppointment returns one appointment owned by the patient.
func (s *Service) PatientAppointment(ctx context.Context, patientID, appointmentID int64) (*Detail, error) {
	return s.repo.GetPatientAppointment(ctx, appointmentID, patientID)
}

// PatientHistory returns the patient's visits with their treatment records.
func (s *Service) PatientHistory(ctx context.Context, patientID int64) ([]Visit, error) {
	return s.repo.History(ctx, ListFilter{PatientID: patientID})
}

// DoctorPatientHistory returns the visits one patient had with this doctor.
func (s *Service) DoctorPatientHistory(ctx context.Context, doctorID, patientID int64) ([]Visit, error) {
	return s.repo.History(ctx, ListFilter{DoctorID: doctorID, PatientID: patientID})
}

// CountAll feeds the admin stats view.
func (s *Service) CountAll(ctx context.Context) (int64, error) {
	return s.repo.CountAll(ctx)
}
