package appointment

import (
	"strings"
	"time"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known appointment status.
func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID        int64
	PatientID int64
	DoctorID  int64
	Date      string
	TimeSlot  string
	Status    Status
	Reason    *string
	CreatedAt time.Time
}

// Detail joins an appointment with the display names list views need.
type Detail struct {
	Appointment
	PatientName          string
	DoctorName           string
	DoctorSpecialization string
	HasTreatment         bool
}

// Treatment is the clinical record attached to one appointment. Exactly one
// row per appointment, updated in place on re-save.
type Treatment struct {
	ID            int64
	AppointmentID int64
	Diagnosis     string
	Prescription  string
	Notes         string
	VisitType     string
	TestsText     string
	Precautions   string
	FollowUpDate  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Tests reconstructs the stored tests text into a list for display.
func (t *Treatment) Tests() []string {
	return SplitTests(t.TestsText)
}

// SplitTests breaks a comma/newline-delimited tests field into trimmed,
// non-empty entries.
func SplitTests(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.ReplaceAll(text, "\r\n", "\n")
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		for _, piece := range strings.Split(line, ",") {
			if p := strings.TrimSpace(piece); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return parts
}

// JoinTests is the canonical stored representation of a tests list.
func JoinTests(parts []string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, ", ")
}

// Visit is one appointment plus its treatment, as shown in history views.
// Treatment is nil for visits without a saved record.
type Visit struct {
	Detail
	Treatment *Treatment
}

// ListFilter narrows appointment list queries. Zero values mean "any".
type ListFilter struct {
	DoctorID  int64
	PatientID int64
	Date      string
	Status    Status
	Search    string
}

// DoctorRef is the slice of a doctor account the booking engine checks:
// existence, role and the active flag are already folded into the lookup.
type DoctorRef struct {
	ID             int64
	FullName       string
	Specialization string
}

// DashboardSummary is the doctor landing view: today's schedule plus
// today/week counters.
type DashboardSummary struct {
	Date           string
	TodayTotal     int
	TodayBooked    int
	TodayCompleted int
	PendingVisits  int
	WeekCompleted  int64
	TodaySchedule  []Detail
}
