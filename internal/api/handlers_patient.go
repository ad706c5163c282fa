package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/export"
	"github.com/careloop/hms-backend/internal/schedule"
	"github.com/careloop/hms-backend/internal/user"
)

type PatientHandler struct {
	users    *user.Service
	appts    *appointment.Service
	sched    *schedule.Service
	exports  *export.Queue
	validate *validator.Validate
	log      zerolog.Logger
}

func NewPatientHandler(users *user.Service, appts *appointment.Service, sched *schedule.Service, exports *export.Queue, validate *validator.Validate, log zerolog.Logger) *PatientHandler {
	return &PatientHandler{users: users, appts: appts, sched: sched, exports: exports, validate: validate, log: log}
}

func (h *PatientHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	account, err := h.users.GetPatient(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(account))
}

func (h *PatientHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req patientProfileRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	ident, _ := IdentityFrom(r.Context())
	account, err := h.users.UpdatePatient(r.Context(), user.Patient{
		ID:         ident.UserID,
		FullName:   req.FullName,
		Gender:     req.Gender,
		DOB:        req.DOB,
		Address:    req.Address,
		Phone:      req.Phone,
		HeightCM:   req.HeightCM,
		WeightKG:   req.WeightKG,
		BloodGroup: req.BloodGroup,
	}, nil)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(account))
}

func (h *PatientHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.users.ListDoctors(r.Context(), true)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	out := make([]doctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, toDoctorResponse(&doctors[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Slots is the booking-form feed; unlike the doctor's own availability view
// it validates the date strictly, a past date here is always a mistake.
func (h *PatientHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID, err := strconv.ParseInt(q.Get("doctor_id"), 10, 64)
	if err != nil || doctorID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "doctor_id is required")
		return
	}

	doctor, err := h.users.GetDoctor(r.Context(), doctorID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if !doctor.IsActive {
		respondDomainError(w, r, h.log, user.ErrDoctorNotFound)
		return
	}

	slots, err := h.sched.PatientSlots(r.Context(), doctorID, q.Get("date"))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *PatientHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	details, err := h.appts.PatientAppointments(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponses(details))
}

func (h *PatientHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid appointment id")
		return
	}

	ident, _ := IdentityFrom(r.Context())
	detail, err := h.appts.PatientAppointment(r.Context(), ident.UserID, id)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(*detail))
}

func (h *PatientHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookAppointmentRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	ident, _ := IdentityFrom(r.Context())
	appt, err := h.appts.Book(r.Context(), ident.UserID, req.DoctorID, req.AppointmentDate, req.TimeSlot, reason)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
}

func (h *PatientHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid appointment id")
		return
	}

	ident, _ := IdentityFrom(r.Context())
	appt, err := h.appts.CancelByPatient(r.Context(), ident.UserID, id)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
}

func (h *PatientHandler) History(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	visits, err := h.appts.PatientHistory(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVisitResponses(visits))
}

func (h *PatientHandler) SubmitExport(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	taskID, err := h.exports.Submit(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  string(export.TaskQueued),
	})
}

func (h *PatientHandler) PollExport(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	result, err := h.exports.Result(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	// tasks are keyed by patient; another patient's task id is a miss
	ident, _ := IdentityFrom(r.Context())
	if result.PatientID != ident.UserID {
		respondDomainError(w, r, h.log, export.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
