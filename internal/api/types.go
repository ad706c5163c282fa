package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/user"
)

// -- requests --

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type createDoctorRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	FullName        string `json:"full_name" validate:"required"`
	Specialization  string `json:"specialization" validate:"required"`
	ExperienceYears int    `json:"experience_years" validate:"gte=0"`
	About           string `json:"about"`
}

type updateDoctorRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Specialization  string `json:"specialization" validate:"required"`
	ExperienceYears int    `json:"experience_years" validate:"gte=0"`
	About           string `json:"about"`
	IsActive        *bool  `json:"is_active"`
}

type createPatientRequest struct {
	Username   string   `json:"username" validate:"required,min=3,max=64"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	FullName   string   `json:"full_name" validate:"required"`
	Gender     string   `json:"gender"`
	DOB        string   `json:"dob"`
	Address    string   `json:"address"`
	Phone      string   `json:"phone"`
	HeightCM   *float64 `json:"height_cm"`
	WeightKG   *float64 `json:"weight_kg"`
	BloodGroup string   `json:"blood_group"`
}

type updatePatientRequest struct {
	FullName   string   `json:"full_name" validate:"required"`
	Gender     string   `json:"gender"`
	DOB        string   `json:"dob"`
	Address    string   `json:"address"`
	Phone      string   `json:"phone"`
	HeightCM   *float64 `json:"height_cm"`
	WeightKG   *float64 `json:"weight_kg"`
	BloodGroup string   `json:"blood_group"`
	IsActive   *bool    `json:"is_active"`
}

// patientProfileRequest is the self-service profile update; the active flag
// is admin-only and deliberately absent here.
type patientProfileRequest struct {
	FullName   string   `json:"full_name" validate:"required"`
	Gender     string   `json:"gender"`
	DOB        string   `json:"dob"`
	Address    string   `json:"address"`
	Phone      string   `json:"phone"`
	HeightCM   *float64 `json:"height_cm"`
	WeightKG   *float64 `json:"weight_kg"`
	BloodGroup string   `json:"blood_group"`
}

type bookAppointmentRequest struct {
	DoctorID        int64  `json:"doctor_id" validate:"required,gt=0"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	TimeSlot        string `json:"time_slot" validate:"required"`
	Reason          string `json:"reason"`
}

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type treatmentRequest struct {
	Diagnosis    string   `json:"diagnosis" validate:"required"`
	Prescription string   `json:"prescription"`
	Notes        string   `json:"notes"`
	VisitType    string   `json:"visit_type"`
	Tests        []string `json:"tests"`
	Precautions  string   `json:"precautions"`
	FollowUpDate string   `json:"follow_up_date"`
}

type availabilityBulkRequest struct {
	Date  string     `json:"date" validate:"required"`
	Slots []bulkSlot `json:"slots" validate:"required,min=1"`
}

type bulkSlot struct {
	TimeSlot    string `json:"time_slot" validate:"required"`
	IsAvailable bool   `json:"is_available"`
}

type availabilityToggleRequest struct {
	Date        string `json:"date" validate:"required"`
	TimeSlot    string `json:"time_slot" validate:"required"`
	IsAvailable *bool  `json:"is_available"`
}

// -- responses --

type userResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
	IsActive bool      `json:"is_active"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type doctorResponse struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Specialization  string `json:"specialization"`
	ExperienceYears int    `json:"experience_years"`
	About           string `json:"about"`
	IsActive        bool   `json:"is_active"`
}

type patientResponse struct {
	ID         int64    `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	Gender     string   `json:"gender"`
	DOB        string   `json:"dob"`
	Address    string   `json:"address"`
	Phone      string   `json:"phone"`
	HeightCM   *float64 `json:"height_cm"`
	WeightKG   *float64 `json:"weight_kg"`
	BloodGroup string   `json:"blood_group"`
	IsActive   bool     `json:"is_active"`
}

type appointmentResponse struct {
	ID                   int64              `json:"id"`
	PatientID            int64              `json:"patient_id"`
	DoctorID             int64              `json:"doctor_id"`
	PatientName          string             `json:"patient_name,omitempty"`
	DoctorName           string             `json:"doctor_name,omitempty"`
	DoctorSpecialization string             `json:"doctor_specialization,omitempty"`
	AppointmentDate      string             `json:"appointment_date"`
	TimeSlot             string             `json:"time_slot"`
	Status               appointment.Status `json:"status"`
	Reason               *string            `json:"reason"`
	HasTreatment         bool               `json:"has_treatment"`
	CreatedAt            time.Time          `json:"created_at"`
}

type treatmentResponse struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	Notes         string    `json:"notes"`
	VisitType     string    `json:"visit_type"`
	Tests         []string  `json:"tests"`
	Precautions   string    `json:"precautions"`
	FollowUpDate  *string   `json:"follow_up_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type visitResponse struct {
	appointmentResponse
	Treatment *treatmentResponse `json:"treatment"`
}

type dashboardResponse struct {
	Date           string                `json:"date"`
	TodayTotal     int                   `json:"today_total"`
	TodayBooked    int                   `json:"today_booked"`
	TodayCompleted int                   `json:"today_completed"`
	PendingVisits  int                   `json:"pending_visits"`
	WeekCompleted  int64                 `json:"week_completed"`
	TodaySchedule  []appointmentResponse `json:"today_schedule"`
}

type statsResponse struct {
	Doctors      int64 `json:"doctors"`
	Patients     int64 `json:"patients"`
	Appointments int64 `json:"appointments"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, IsActive: u.IsActive}
}

func toDoctorResponse(d *user.DoctorAccount) doctorResponse {
	return doctorResponse{
		ID:              d.ID,
		Username:        d.Username,
		Email:           d.Email,
		FullName:        d.FullName,
		Specialization:  d.Specialization,
		ExperienceYears: d.ExperienceYears,
		About:           d.About,
		IsActive:        d.IsActive,
	}
}

func toPatientResponse(p *user.PatientAccount) patientResponse {
	return patientResponse{
		ID:         p.ID,
		Username:   p.Username,
		Email:      p.Email,
		FullName:   p.FullName,
		Gender:     p.Gender,
		DOB:        p.DOB,
		Address:    p.Address,
		Phone:      p.Phone,
		HeightCM:   p.HeightCM,
		WeightKG:   p.WeightKG,
		BloodGroup: p.BloodGroup,
		IsActive:   p.IsActive,
	}
}

func toAppointmentResponse(a appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		AppointmentDate: a.Date,
		TimeSlot:        a.TimeSlot,
		Status:          a.Status,
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
	}
}

func toDetailResponse(d appointment.Detail) appointmentResponse {
	resp := toAppointmentResponse(d.Appointment)
	resp.PatientName = d.PatientName
	resp.DoctorName = d.DoctorName
	resp.DoctorSpecialization = d.DoctorSpecialization
	resp.HasTreatment = d.HasTreatment
	return resp
}

func toDetailResponses(details []appointment.Detail) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toDetailResponse(d))
	}
	return out
}

func toTreatmentResponse(t *appointment.Treatment) treatmentResponse {
	return treatmentResponse{
		ID:            t.ID,
		AppointmentID: t.AppointmentID,
		Diagnosis:     t.Diagnosis,
		Prescription:  t.Prescription,
		Notes:         t.Notes,
		VisitType:     t.VisitType,
		Tests:         t.Tests(),
		Precautions:   t.Precautions,
		FollowUpDate:  t.FollowUpDate,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toVisitResponses(visits []appointment.Visit) []visitResponse {
	out := make([]visitResponse, 0, len(visits))
	for _, v := range visits {
		resp := visitResponse{appointmentResponse: toDetailResponse(v.Detail)}
		if v.Treatment != nil {
			tr := toTreatmentResponse(v.Treatment)
			resp.Treatment = &tr
		}
		out = append(out, resp)
	}
	return out
}

// bindJSON decodes and validates a request body, writing the 400 itself on
// failure.
func bindJSON(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

// urlID parses a numeric chi route parameter.
func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
