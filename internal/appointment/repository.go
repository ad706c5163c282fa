package appointment

import (
	"context"
	"errors"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorUnavailable   = errors.New("doctor not found or inactive")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotTaken           = errors.New("time slot is already booked")
	ErrTreatmentNotFound   = errors.New("no treatment recorded for this appointment")
)

// Repository contains all DB interactions needed by the appointment service.
type Repository interface {
	// Booking preconditions
	GetBookableDoctor(ctx context.Context, id int64) (*DoctorRef, error)
	PatientExists(ctx context.Context, id int64) (bool, error)
	ActiveAppointmentExists(ctx context.Context, doctorID int64, date, slot string) (bool, error)

	// Creation and status updates
	CreateBooked(ctx context.Context, patientID, doctorID int64, date, slot string, reason *string) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	// UpdateStatus is a compare-and-set: the row moves from -> to or the call
	// reports ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error)

	// List views
	List(ctx context.Context, f ListFilter) ([]Detail, error)
	GetPatientAppointment(ctx context.Context, id, patientID int64) (*Detail, error)
	CountAll(ctx context.Context) (int64, error)
	CountCompletedBetween(ctx context.Context, doctorID int64, startDate, endDate string) (int64, error)

	// History views (appointments joined with treatments)
	History(ctx context.Context, f ListFilter) ([]Visit, error)

	// Treatment records
	UpsertTreatment(ctx context.Context, t Treatment) (*Treatment, error)
	GetTreatmentByAppointment(ctx context.Context, appointmentID int64) (*Treatment, error)
}
