package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/auth"
	"github.com/careloop/hms-backend/internal/cache"
	"github.com/careloop/hms-backend/internal/export"
	"github.com/careloop/hms-backend/internal/schedule"
	"github.com/careloop/hms-backend/internal/user"
)

// -- in-memory repositories backing a full router under httptest --

type memUserRepo struct {
	mu       sync.Mutex
	seq      int64
	users    map[int64]*user.User
	doctors  map[int64]*user.Doctor
	patients map[int64]*user.Patient
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:    make(map[int64]*user.User),
		doctors:  make(map[int64]*user.Doctor),
		patients: make(map[int64]*user.Patient),
	}
}

func (m *memUserRepo) insert(u user.User) (int64, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return 0, user.ErrUsernameTaken
		}
	}
	m.seq++
	u.ID = m.seq
	u.IsActive = true
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *memUserRepo) CreateUser(_ context.Context, u user.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(u)
}

func (m *memUserRepo) GetUserByID(_ context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUserRepo) SetUserActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (m *memUserRepo) HardDeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.doctors, id)
	delete(m.patients, id)
	return nil
}

func (m *memUserRepo) CreateDoctor(ctx context.Context, u user.User, d user.Doctor) (*user.DoctorAccount, error) {
	m.mu.Lock()
	id, err := m.insert(u)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	d.ID = id
	m.doctors[id] = &d
	m.mu.Unlock()
	return m.GetDoctorByID(ctx, id)
}

func (m *memUserRepo) GetDoctorByID(_ context.Context, id int64) (*user.DoctorAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, user.ErrDoctorNotFound
	}
	u := m.users[id]
	return &user.DoctorAccount{Doctor: *d, Username: u.Username, Email: u.Email, IsActive: u.IsActive}, nil
}

func (m *memUserRepo) ListDoctors(_ context.Context, onlyActive bool) ([]user.DoctorAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.DoctorAccount
	for id, d := range m.doctors {
		u := m.users[id]
		if onlyActive && !u.IsActive {
			continue
		}
		out = append(out, user.DoctorAccount{Doctor: *d, Username: u.Username, Email: u.Email, IsActive: u.IsActive})
	}
	return out, nil
}

func (m *memUserRepo) UpdateDoctor(_ context.Context, d user.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[d.ID]; !ok {
		return user.ErrDoctorNotFound
	}
	m.doctors[d.ID] = &d
	return nil
}

func (m *memUserRepo) CreatePatient(ctx context.Context, u user.User, p user.Patient) (*user.PatientAccount, error) {
	m.mu.Lock()
	id, err := m.insert(u)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	p.ID = id
	m.patients[id] = &p
	m.mu.Unlock()
	return m.GetPatientByID(ctx, id)
}

func (m *memUserRepo) GetPatientByID(_ context.Context, id int64) (*user.PatientAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, user.ErrPatientNotFound
	}
	u := m.users[id]
	return &user.PatientAccount{Patient: *p, Username: u.Username, Email: u.Email, IsActive: u.IsActive}, nil
}

func (m *memUserRepo) ListPatients(_ context.Context, onlyActive bool) ([]user.PatientAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.PatientAccount
	for id, p := range m.patients {
		u := m.users[id]
		if onlyActive && !u.IsActive {
			continue
		}
		out = append(out, user.PatientAccount{Patient: *p, Username: u.Username, Email: u.Email, IsActive: u.IsActive})
	}
	return out, nil
}

func (m *memUserRepo) UpdatePatient(_ context.Context, p user.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return user.ErrPatientNotFound
	}
	m.patients[p.ID] = &p
	return nil
}

func (m *memUserRepo) CountByRole(_ context.Context) (user.RoleCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return user.RoleCounts{Doctors: int64(len(m.doctors)), Patients: int64(len(m.patients))}, nil
}

type memApptRepo struct {
	mu         sync.Mutex
	seq        int64
	users      *memUserRepo
	appts      map[int64]appointment.Appointment
	treatments map[int64]appointment.Treatment
}

func newMemApptRepo(users *memUserRepo) *memApptRepo {
	return &memApptRepo{
		users:      users,
		appts:      make(map[int64]appointment.Appointment),
		treatments: make(map[int64]appointment.Treatment),
	}
}

func (m *memApptRepo) GetBookableDoctor(ctx context.Context, id int64) (*appointment.DoctorRef, error) {
	acc, err := m.users.GetDoctorByID(ctx, id)
	if err != nil || !acc.IsActive {
		return nil, appointment.ErrDoctorUnavailable
	}
	return &appointment.DoctorRef{ID: acc.ID, FullName: acc.FullName, Specialization: acc.Specialization}, nil
}

func (m *memApptRepo) PatientExists(ctx context.Context, id int64) (bool, error) {
	_, err := m.users.GetPatientByID(ctx, id)
	return err == nil, nil
}

func (m *memApptRepo) occupied(doctorID int64, date, slot string) bool {
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date == date && a.TimeSlot == slot && a.Status != appointment.StatusCancelled {
			return true
		}
	}
	return false
}

func (m *memApptRepo) ActiveAppointmentExists(_ context.Context, doctorID int64, date, slot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupied(doctorID, date, slot), nil
}

func (m *memApptRepo) CreateBooked(_ context.Context, patientID, doctorID int64, date, slot string, reason *string) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupied(doctorID, date, slot) {
		return nil, appointment.ErrSlotTaken
	}
	m.seq++
	a := appointment.Appointment{
		ID: m.seq, PatientID: patientID, DoctorID: doctorID,
		Date: date, TimeSlot: slot, Status: appointment.StatusBooked,
		Reason: reason, CreatedAt: time.Now(),
	}
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memApptRepo) GetAppointmentByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memApptRepo) UpdateStatus(_ context.Context, id int64, from, to appointment.Status) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = to
	m.appts[id] = a
	return &a, nil
}

func (m *memApptRepo) matches(a appointment.Appointment, f appointment.ListFilter) bool {
	if f.DoctorID != 0 && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != 0 && a.PatientID != f.PatientID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func (m *memApptRepo) detail(a appointment.Appointment) appointment.Detail {
	_, hasTreatment := m.treatments[a.ID]
	d := appointment.Detail{Appointment: a, HasTreatment: hasTreatment}
	if doc, ok := m.users.doctors[a.DoctorID]; ok {
		d.DoctorName = doc.FullName
		d.DoctorSpecialization = doc.Specialization
	}
	if p, ok := m.users.patients[a.PatientID]; ok {
		d.PatientName = p.FullName
	}
	return d
}

func (m *memApptRepo) List(_ context.Context, f appointment.ListFilter) ([]appointment.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []appointment.Detail{}
	for _, a := range m.appts {
		if m.matches(a, f) {
			out = append(out, m.detail(a))
		}
	}
	return out, nil
}

func (m *memApptRepo) GetPatientAppointment(_ context.Context, id, patientID int64) (*appointment.Detail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.PatientID != patientID {
		return nil, appointment.ErrAppointmentNotFound
	}
	d := m.detail(a)
	return &d, nil
}

func (m *memApptRepo) CountAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.appts)), nil
}

func (m *memApptRepo) CountCompletedBetween(_ context.Context, doctorID int64, startDate, endDate string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == appointment.StatusCompleted && a.Date >= startDate && a.Date <= endDate {
			n++
		}
	}
	return n, nil
}

func (m *memApptRepo) History(_ context.Context, f appointment.ListFilter) ([]appointment.Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []appointment.Visit{}
	for _, a := range m.appts {
		if !m.matches(a, f) {
			continue
		}
		v := appointment.Visit{Detail: m.detail(a)}
		if t, ok := m.treatments[a.ID]; ok {
			v.Treatment = &t
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memApptRepo) UpsertTreatment(_ context.Context, t appointment.Treatment) (*appointment.Treatment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.treatments[t.AppointmentID]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		t.ID = m.seq
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	m.treatments[t.AppointmentID] = t
	return &t, nil
}

func (m *memApptRepo) GetTreatmentByAppointment(_ context.Context, appointmentID int64) (*appointment.Treatment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treatments[appointmentID]
	if !ok {
		return nil, appointment.ErrTreatmentNotFound
	}
	return &t, nil
}

type memSchedRepo struct {
	mu        sync.Mutex
	overrides map[string]schedule.Override // date|slot
	appts     *memApptRepo
}

func (m *memSchedRepo) key(date, slot string) string { return date + "|" + slot }

func (m *memSchedRepo) ListOverrides(_ context.Context, doctorID int64, startDate, endDate string) ([]schedule.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schedule.Override
	for _, o := range m.overrides {
		if o.DoctorID == doctorID && o.Date >= startDate && o.Date <= endDate {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memSchedRepo) GetOverride(_ context.Context, doctorID int64, date, slot string) (*schedule.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overrides[m.key(date, slot)]
	if !ok || o.DoctorID != doctorID {
		return nil, schedule.ErrOverrideNotFound
	}
	return &o, nil
}

func (m *memSchedRepo) UpsertOverride(_ context.Context, o schedule.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[m.key(o.Date, o.TimeSlot)] = o
	return nil
}

func (m *memSchedRepo) ActiveBookings(_ context.Context, doctorID int64, startDate, endDate string) ([]schedule.Booking, error) {
	m.appts.mu.Lock()
	defer m.appts.mu.Unlock()
	var out []schedule.Booking
	for _, a := range m.appts.appts {
		if a.DoctorID == doctorID && a.Status != appointment.StatusCancelled && a.Date >= startDate && a.Date <= endDate {
			out = append(out, schedule.Booking{Date: a.Date, TimeSlot: a.TimeSlot, Status: string(a.Status)})
		}
	}
	return out, nil
}

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ int64, _, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	handler http.Handler
	users   *user.Service
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// unreachable Redis: the cache degrades to a pass-through, which is
	// exactly the production failure mode
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	store := cache.NewStore(rdb, zerolog.Nop())

	userRepo := newMemUserRepo()
	apptRepo := newMemApptRepo(userRepo)
	schedRepo := &memSchedRepo{overrides: make(map[string]schedule.Override), appts: apptRepo}

	grid := schedule.DefaultGrid()
	users := user.NewService(userRepo)
	sched := schedule.NewService(schedRepo, grid, store)
	appts := appointment.NewService(apptRepo, grid, passLocker{}, store)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	handler := NewRouter(RouterConfig{
		Users:        users,
		Appointments: appts,
		Schedule:     sched,
		Exports:      export.NewQueue(rdb, time.Hour),
		Tokens:       tokens,
		Cache:        store,
		Redis:        rdb,
		Log:          zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	})

	return &testEnv{handler: handler, users: users, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedDoctor(t *testing.T) (int64, string) {
	t.Helper()
	acc, err := e.users.CreateDoctor(context.Background(), "doc", "doc@example.com", "secret1", user.Doctor{
		FullName: "Dr. Quinn", Specialization: "General Practice", ExperienceYears: 8,
	})
	require.NoError(t, err)
	token, err := e.tokens.Issue(acc.ID, user.RoleDoctor)
	require.NoError(t, err)
	return acc.ID, token
}

func (e *testEnv) seedPatient(t *testing.T, username string) (int64, string) {
	t.Helper()
	acc, err := e.users.RegisterPatient(context.Background(), username, username+"@example.com", "secret1", "Pat "+username)
	require.NoError(t, err)
	token, err := e.tokens.Issue(acc.ID, user.RolePatient)
	require.NoError(t, err)
	return acc.ID, token
}

func (e *testEnv) seedAdmin(t *testing.T) string {
	t.Helper()
	admin := user.User{Username: "admin", Email: "admin@example.com"}
	require.NoError(t, admin.SetPassword("secret1"))
	require.NoError(t, e.users.CreateAdmin(context.Background(), admin))

	u, err := e.users.Authenticate(context.Background(), "admin", "secret1")
	require.NoError(t, err)
	token, err := e.tokens.Issue(u.ID, user.RoleAdmin)
	require.NoError(t, err)
	return token
}

func tomorrow() string { return schedule.AddDays(schedule.Today(), 1) }

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "jane", Email: "jane@example.com", Password: "secret1", FullName: "Jane Doe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// duplicate username
	rec = env.do(t, http.MethodPost, "/api/auth/register", "", registerRequest{
		Username: "jane", Email: "j2@example.com", Password: "secret1", FullName: "Jane Two",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "jane", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, user.RolePatient, login.User.Role)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "jane", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "jane", me.Username)
}

func TestRoleGuard(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.seedPatient(t, "jane")

	rec := env.do(t, http.MethodGet, "/api/admin/stats", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/patient/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/patient/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	doctorID, _ := env.seedDoctor(t)
	_, patientToken := env.seedPatient(t, "jane")
	_, rivalToken := env.seedPatient(t, "john")
	date := tomorrow()

	book := bookAppointmentRequest{DoctorID: doctorID, AppointmentDate: date, TimeSlot: "09:00", Reason: "checkup"}
	rec := env.do(t, http.MethodPost, "/api/patient/appointments", patientToken, book)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, appointment.StatusBooked, created.Status)

	// same slot again: conflict
	rec = env.do(t, http.MethodPost, "/api/patient/appointments", rivalToken, book)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the slot shows as booked on the patient feed
	rec = env.do(t, http.MethodGet, "/api/patient/slots?doctor_id=1&date="+date, rivalToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []schedule.PatientSlot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	assert.Equal(t, schedule.PatientSlot{Time: "09:00", Status: "booked"}, slots[0])
	assert.Equal(t, schedule.PatientSlot{Time: "09:30", Status: "free"}, slots[1])

	// past date rejected before anything else
	rec = env.do(t, http.MethodPost, "/api/patient/appointments", rivalToken,
		bookAppointmentRequest{DoctorID: doctorID, AppointmentDate: "2020-01-01", TimeSlot: "09:30"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown doctor
	rec = env.do(t, http.MethodPost, "/api/patient/appointments", rivalToken,
		bookAppointmentRequest{DoctorID: 999, AppointmentDate: date, TimeSlot: "09:30"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelFlow(t *testing.T) {
	env := newTestEnv(t)
	doctorID, _ := env.seedDoctor(t)
	_, patientToken := env.seedPatient(t, "jane")
	_, otherToken := env.seedPatient(t, "john")
	date := tomorrow()

	rec := env.do(t, http.MethodPost, "/api/patient/appointments", patientToken,
		bookAppointmentRequest{DoctorID: doctorID, AppointmentDate: date, TimeSlot: "09:00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// another patient's cancel reads as not found
	rec = env.do(t, http.MethodPost, "/api/patient/appointments/1/cancel", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/patient/appointments/1/cancel", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, appointment.StatusCancelled, cancelled.Status)

	// cancelling again is a no-op 200
	rec = env.do(t, http.MethodPost, "/api/patient/appointments/1/cancel", patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDoctorStatusAndTreatment(t *testing.T) {
	env := newTestEnv(t)
	doctorID, doctorToken := env.seedDoctor(t)
	_, patientToken := env.seedPatient(t, "jane")
	date := tomorrow()

	rec := env.do(t, http.MethodPost, "/api/patient/appointments", patientToken,
		bookAppointmentRequest{DoctorID: doctorID, AppointmentDate: date, TimeSlot: "09:00"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// no treatment yet
	rec = env.do(t, http.MethodGet, "/api/doctor/appointments/1/treatment", doctorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/doctor/appointments/1/treatment", doctorToken, treatmentRequest{
		Diagnosis:    "hypertension",
		Prescription: "amlodipine 5mg",
		Tests:        []string{"ECG", "lipid panel"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var saved treatmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, []string{"ECG", "lipid panel"}, saved.Tests)

	// treatment save completed the appointment, re-completing is rejected
	rec = env.do(t, http.MethodPost, "/api/doctor/appointments/1/status", doctorToken,
		statusUpdateRequest{Status: "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/doctor/appointments/1/treatment", doctorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/patient/history", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var visits []visitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &visits))
	require.Len(t, visits, 1)
	require.NotNil(t, visits[0].Treatment)
	assert.Equal(t, "hypertension", visits[0].Treatment.Diagnosis)
}

func TestDoctorAvailability(t *testing.T) {
	env := newTestEnv(t)
	_, doctorToken := env.seedDoctor(t)
	date := tomorrow()

	rec := env.do(t, http.MethodPost, "/api/doctor/availability/bulk", doctorToken, availabilityBulkRequest{
		Date: date,
		Slots: []bulkSlot{
			{TimeSlot: "09:00", IsAvailable: false},
			{TimeSlot: "13:00", IsAvailable: false}, // not on the grid, skipped
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/doctor/availability?start_date="+date, doctorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var days []schedule.DaySchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	require.Len(t, days, 7)
	assert.Equal(t, date, days[0].Date)
	assert.False(t, days[0].Slots[0].IsAvailable)
	assert.True(t, days[0].Slots[1].IsAvailable)

	rec = env.do(t, http.MethodPost, "/api/doctor/availability/toggle", doctorToken, availabilityToggleRequest{
		Date: date, TimeSlot: "09:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_available":true`)
}

func TestAdminSurface(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.seedAdmin(t)
	doctorID, _ := env.seedDoctor(t)
	_, patientToken := env.seedPatient(t, "jane")

	rec := env.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Doctors)
	assert.Equal(t, int64(1), stats.Patients)

	rec = env.do(t, http.MethodPost, "/api/patient/appointments", patientToken,
		bookAppointmentRequest{DoctorID: doctorID, AppointmentDate: tomorrow(), TimeSlot: "09:00"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/appointments?status=BOOKED", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []appointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	// admin drives the transition without owning the appointment
	rec = env.do(t, http.MethodPost, "/api/admin/appointments/1/status", adminToken,
		statusUpdateRequest{Status: "CANCELLED"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// soft delete then reactivate through update
	rec = env.do(t, http.MethodDelete, "/api/admin/doctors/2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/admin/doctors/2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)
}
