package schedule

// Override is a doctor-set exception for one (date, slot). Absence of a row
// means the slot is available. Rows are upserted, never deleted.
type Override struct {
	ID          int64
	DoctorID    int64
	Date        string
	TimeSlot    string
	IsAvailable bool
}

// Booking is the slice of an appointment the resolver needs: a non-cancelled
// occupant of one (date, slot).
type Booking struct {
	Date     string
	TimeSlot string
	Status   string
}

// SlotState is one resolved grid cell. BookingStatus is nil when no
// non-cancelled appointment occupies the slot.
type SlotState struct {
	TimeSlot      string  `json:"time_slot"`
	IsAvailable   bool    `json:"is_available"`
	BookingStatus *string `json:"booking_status"`
}

// DaySchedule is the resolved grid for one calendar date.
type DaySchedule struct {
	Date  string      `json:"date"`
	Slots []SlotState `json:"slots"`
}

// PatientSlot is the patient-facing collapse of a resolved cell: a slot is
// "booked" when a non-cancelled appointment occupies it or an override marks
// it unavailable, otherwise "free".
type PatientSlot struct {
	Time   string `json:"time"`
	Status string `json:"status"`
}

// SlotUpdate is one entry of a bulk availability update.
type SlotUpdate struct {
	TimeSlot    string `json:"time_slot"`
	IsAvailable bool   `json:"is_available"`
}
