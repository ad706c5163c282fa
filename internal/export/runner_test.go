package export

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/hms-backend/internal/appointment"
)

type fakeHistory struct {
	visits map[int64][]appointment.Visit
	err    error
}

func (f *fakeHistory) PatientHistory(_ context.Context, patientID int64) ([]appointment.Visit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.visits[patientID], nil
}

func strptr(s string) *string { return &s }

func sampleVisits() []appointment.Visit {
	treated := appointment.Visit{
		Detail: appointment.Detail{
			Appointment: appointment.Appointment{
				ID: 1, PatientID: 7, DoctorID: 3,
				Date: "2026-08-10", TimeSlot: "09:30",
				Status: appointment.StatusCompleted,
				Reason: strptr("chest pain"),
			},
			DoctorName:           "Dr. Gray",
			DoctorSpecialization: "Cardiology",
			HasTreatment:         true,
		},
		Treatment: &appointment.Treatment{
			ID: 11, AppointmentID: 1,
			Diagnosis:    "angina",
			Prescription: "nitroglycerin",
			TestsText:    "ECG,stress test",
			Precautions:  "avoid exertion",
			Notes:        "follow up in two weeks",
			FollowUpDate: strptr("2026-08-24"),
		},
	}
	bare := appointment.Visit{
		Detail: appointment.Detail{
			Appointment: appointment.Appointment{
				ID: 2, PatientID: 7, DoctorID: 3,
				Date: "2026-08-20", TimeSlot: "14:00",
				Status: appointment.StatusBooked,
			},
			DoctorName:           "Dr. Gray",
			DoctorSpecialization: "Cardiology",
		},
	}
	return []appointment.Visit{treated, bare}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	history := &fakeHistory{visits: map[int64][]appointment.Visit{7: sampleVisits()}}
	r := NewRunner(nil, history, dir, zerolog.Nop())

	path, err := r.writeCSV(context.Background(), Task{ID: "t1", PatientID: 7})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "appointment_id", rows[0][0])
	assert.Equal(t, "follow_up_date", rows[0][12])

	treated := rows[1]
	assert.Equal(t, "1", treated[0])
	assert.Equal(t, "2026-08-10", treated[1])
	assert.Equal(t, "COMPLETED", treated[3])
	assert.Equal(t, "Dr. Gray", treated[4])
	assert.Equal(t, "chest pain", treated[6])
	assert.Equal(t, "angina", treated[7])
	assert.Equal(t, "ECG; stress test", treated[9])
	assert.Equal(t, "2026-08-24", treated[12])

	// untreated visit pads the treatment columns
	bare := rows[2]
	assert.Equal(t, "2", bare[0])
	assert.Equal(t, "BOOKED", bare[3])
	for _, col := range bare[7:] {
		assert.Empty(t, col)
	}
}

func TestWriteCSVHistoryError(t *testing.T) {
	r := NewRunner(nil, &fakeHistory{err: errors.New("db down")}, t.TempDir(), zerolog.Nop())

	_, err := r.writeCSV(context.Background(), Task{ID: "t1", PatientID: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load patient history")
}

func TestCleanupOlderExports(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, dir, zerolog.Nop())

	older := filepath.Join(dir, "patient_7_history_20260101T090000.csv")
	newer := filepath.Join(dir, "patient_7_history_20260201T090000.csv")
	other := filepath.Join(dir, "patient_8_history_20260101T090000.csv")
	for _, p := range []string{older, newer, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	r.cleanupOlderExports(7, newer)

	assert.NoFileExists(t, older)
	assert.FileExists(t, newer)
	// other patients' files are untouched
	assert.FileExists(t, other)
}
