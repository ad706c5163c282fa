package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/cache"
	"github.com/careloop/hms-backend/internal/user"
)

type AdminHandler struct {
	users    *user.Service
	appts    *appointment.Service
	cache    *cache.Store
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAdminHandler(users *user.Service, appts *appointment.Service, store *cache.Store, validate *validator.Validate, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, appts: appts, cache: store, validate: validate, log: log}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.users.CountByRole(r.Context())
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	total, err := h.appts.CountAll(r.Context())
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Doctors:      counts.Doctors,
		Patients:     counts.Patients,
		Appointments: total,
	})
}

func (h *AdminHandler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req createDoctorRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	account, err := h.users.CreateDoctor(r.Context(), req.Username, req.Email, req.Password, user.Doctor{
		FullName:        req.FullName,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
		About:           req.About,
	})
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationDoctorAccount)
	writeJSON(w, http.StatusCreated, toDoctorResponse(account))
}

func (h *AdminHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	doctors, err := h.users.ListDoctors(r.Context(), onlyActive)
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

func (h *AdminHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid doctor id")
		return
	}

	account, err := h.users.GetDoctor(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDoctorResponse(account))
}

func (h *AdminHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid doctor id")
		return
	}
	var req updateDoctorRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	account, err := h.users.UpdateDoctor(r.Context(), user.Doctor{
		ID:              id,
		FullName:        req.FullName,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
		About:           req.About,
	}, req.IsActive)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationDoctorAccount)
	writeJSON(w, http.StatusOK, toDoctorResponse(account))
}

// DeactivateDoctor is the default DELETE: the account stops being bookable
// but history survives.
func (h *AdminHandler) DeactivateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid doctor id")
		return
	}

	if _, err := h.users.GetDoctor(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if err := h.users.Deactivate(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationDoctorAccount)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *AdminHandler) HardDeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid doctor id")
		return
	}

	if _, err := h.users.GetDoctor(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if err := h.users.HardDelete(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationHardDelete)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	account, err := h.users.CreatePatient(r.Context(), req.Username, req.Email, req.Password, user.Patient{
		FullName:   req.FullName,
		Gender:     req.Gender,
		DOB:        req.DOB,
		Address:    req.Address,
		Phone:      req.Phone,
		HeightCM:   req.HeightCM,
		WeightKG:   req.WeightKG,
		BloodGroup: req.BloodGroup,
	})
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationPatientAccount)
	writeJSON(w, http.StatusCreated, toPatientResponse(account))
}

func (h *AdminHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	patients, err := h.users.ListPatients(r.Context(), onlyActive)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	out := make([]patientResponse, 0, len(patients))
	for i := range patients {
		out = append(out, toPatientResponse(&patients[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid patient id")
		return
	}

	account, err := h.users.GetPatient(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(account))
}

func (h *AdminHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid patient id")
		return
	}
	var req updatePatientRequest
	if !bindJSON(w, r, h.validate, &req) {
		return
	}

	account, err := h.users.UpdatePatient(r.Context(), user.Patient{
		ID:         id,
		FullName:   req.FullName,
		Gender:     req.Gender,
		DOB:        req.DOB,
		Address:    req.Address,
		Phone:      req.Phone,
		HeightCM:   req.HeightCM,
		WeightKG:   req.WeightKG,
		BloodGroup: req.BloodGroup,
	}, req.IsActive)
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationPatientAccount)
	writeJSON(w, http.StatusOK, toPatientResponse(account))
}

func (h *AdminHandler) DeactivatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid patient id")
		return
	}

	if _, err := h.users.GetPatient(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if err := h.users.Deactivate(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationPatientAccount)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *AdminHandler) HardDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid patient id")
		return
	}

	if _, err := h.users.GetPatient(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	if err := h.users.HardDelete(r.Context(), id); err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}

	h.cache.Invalidate(r.Context(), cache.MutationHardDelete)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var doctorID, patientID int64
	if raw := q.Get("doctor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid doctor_id")
			return
		}
		doctorID = id
	}
	if raw := q.Get("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid patient_id")
			return
		}
		patientID = id
	}

	details, err := h.appts.ListForAdmin(r.Context(), doctorID, patientID, appointment.Status(q.Get("status")))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponses(details))
}

// UpdateAppointmentStatus lets an admin drive a transition; the same guard
// doctors face applies, admins just skip the ownership check.
func (h *AdminHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
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
	updated, err := h.appts.UpdateStatus(r.Context(), ident.UserID, true, id, appointment.Status(req.Status))
	if err != nil {
		respondDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(*updated))
}
