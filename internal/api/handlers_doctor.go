package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/schedule"
)

type DoctorHandler struct {
	appts    *appointment.Service
	sched    *schedule.Service
	validate *validator.Validate
	log      zerolog.Logger
}

func NewDoctorHandler(appts *appointment.Service, sched *schedule.Service, validate *validator.Validate, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{appts: appts, sched: sched, validate: validate, log: log}
}

func (h *DoctorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	summary, err := h.appts.Dashboard(r.Context(), ident.UserID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Date:           summary.Date,
		TodayTotal:     summary.TodayTotal,
		TodayBooked:    summary.TodayBooked,
		TodayCompleted: summary.TodayCompleted,
		PendingVisits:  summary.PendingVisits,
		WeekCompleted:  summary.WeekCompleted,
		TodaySchedule:  toDetailResponses(summary.TodaySchedule),
	})
}

func (h *DoctorHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())
	q := r.URL.Query()

	details, err := h.appts.ListForDoctor(r.Context(), ident.UserID, q.Get("date"), appointment.Status(q.Get("status")), q.Get("search"))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponses(details))
}

func (h *DoctorHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid appointment id")
		return
	}
	var req statusUpdateRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	ident, _ := IdentityFrom(r.Context())
	updated, err := h.appts.UpdateStatus(r.Context(), ident.UserID, false, id, appointment.Status(req.Status))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*updated))
}

func (h *DoctorHandler) SaveTreatment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid appointment id")
		return
	}
	var req treatmentRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	ident, _ := IdentityFrom(r.Context())
	input := appointment.TreatmentInput{
		Diagnosis:    req.Diagnosis,
		Prescription: req.Prescription,
		Notes:        req.Notes,
		VisitType:    req.VisitType,
		TestsText:    appointment.JoinTests(req.Tests),
		Precautions:  req.Precautions,
	}
	if req.FollowUpDate != "" {
		input.FollowUpDate = &req.FollowUpDate
	}

	treatment, err := h.appts.SaveTreatment(r.Context(), ident.UserID, id, input)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreatmentResponse(treatment))
}

func (h *DoctorHandler) GetTreatment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid appointment id")
		return
	}

	ident, _ := IdentityFrom(r.Context())
	treatment, err := h.appts.GetTreatment(r.Context(), ident.UserID, id)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreatmentResponse(treatment))
}

func (h *DoctorHandler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	patientID, err := strconv.ParseInt(r.URL.Query().Get("patient_id"), 10, 64)
	if err != nil || patientID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "patient_id is required")
		return
	}

	ident, _ := IdentityFrom(r.Context())
	visits, err := h.appts.DoctorPatientHistory(r.Context(), ident.UserID, patientID)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVisitResponses(visits))
}

func (h *DoctorHandler) Availability(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	days, err := h.sched.WeekSchedule(r.Context(), ident.UserID, r.URL.Query().Get("start_date"))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *DoctorHandler) AvailabilityBulk(w http.ResponseWriter, r *http.Request) {
	var req availabilityBulkRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	updates := make([]schedule.SlotUpdate, 0, len(req.Slots))
	for _, s := range req.Slots {
		updates = append(updates, schedule.SlotUpdate{TimeSlot: s.TimeSlot, IsAvailable: s.IsAvailable})
	}

	ident, _ := IdentityFrom(r.Context())
	if err := h.sched.UpdateBulk(r.Context(), ident.UserID, req.Date, updates); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *DoctorHandler) AvailabilityToggle(w http.ResponseWriter, r *http.Request) {
	var req availabilityToggleRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	ident, _ := IdentityFrom(r.Context())
	available, err := h.sched.Toggle(r.Context(), ident.UserID, req.Date, req.TimeSlot, req.IsAvailable)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":         req.Date,
		"time_slot":    req.TimeSlot,
		"is_available": available,
	})
}
