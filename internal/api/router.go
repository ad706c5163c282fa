package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/auth"
	"github.com/careloop/hms-backend/internal/cache"
	"github.com/careloop/hms-backend/internal/export"
	"github.com/careloop/hms-backend/internal/schedule"
	"github.com/careloop/hms-backend/internal/user"
)

type RouterConfig struct {
	Users        *user.Service
	Appointments *appointment.Service
	Schedule     *schedule.Service
	Exports      *export.Queue
	Tokens       *auth.TokenIssuer
	Cache        *cache.Store
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	validate := validator.New()

	authH := NewAuthHandler(cfg.Users, cfg.Tokens, validate, cfg.Log)
	adminH := NewAdminHandler(cfg.Users, cfg.Appointments, cfg.Cache, validate, cfg.Log)
	doctorH := NewDoctorHandler(cfg.Appointments, cfg.Schedule, validate, cfg.Log)
	patientH := NewPatientHandler(cfg.Users, cfg.Appointments, cfg.Schedule, cfg.Exports, validate, cfg.Log)
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)

	cached := func(topic cache.Topic) func(http.Handler) http.Handler {
		return Cached(cfg.Cache, topic)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(cfg.Log))

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.With(Authenticate(cfg.Tokens)).Get("/me", authH.Me)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(Authenticate(cfg.Tokens), RequireRole(user.RoleAdmin))

			r.With(cached(cache.TopicAdminStats)).Get("/stats", adminH.Stats)

			r.Route("/doctors", func(r chi.Router) {
				r.Post("/", adminH.CreateDoctor)
				r.With(cached(cache.TopicAdminDoctors)).Get("/", adminH.ListDoctors)
				r.Get("/{id}", adminH.GetDoctor)
				r.Put("/{id}", adminH.UpdateDoctor)
				r.Delete("/{id}", adminH.DeactivateDoctor)
				r.Delete("/{id}/hard", adminH.HardDeleteDoctor)
			})

			r.Route("/patients", func(r chi.Router) {
				r.Post("/", adminH.CreatePatient)
				r.With(cached(cache.TopicAdminPatients)).Get("/", adminH.ListPatients)
				r.Get("/{id}", adminH.GetPatient)
				r.Put("/{id}", adminH.UpdatePatient)
				r.Delete("/{id}", adminH.DeactivatePatient)
				r.Delete("/{id}/hard", adminH.HardDeletePatient)
			})

			r.With(cached(cache.TopicAdminAppointments)).Get("/appointments", adminH.ListAppointments)
			r.Post("/appointments/{id}/status", adminH.UpdateAppointmentStatus)
		})

		r.Route("/doctor", func(r chi.Router) {
			r.Use(Authenticate(cfg.Tokens), RequireRole(user.RoleDoctor))

			r.With(cached(cache.TopicDoctorDashboard)).Get("/dashboard", doctorH.Dashboard)
			r.With(cached(cache.TopicDoctorAppointments)).Get("/appointments", doctorH.ListAppointments)
			r.Post("/appointments/{id}/status", doctorH.UpdateStatus)
			r.Post("/appointments/{id}/treatment", doctorH.SaveTreatment)
			r.With(cached(cache.TopicDoctorTreatment)).Get("/appointments/{id}/treatment", doctorH.GetTreatment)
			r.With(cached(cache.TopicDoctorPatientHistory)).Get("/patient-history", doctorH.PatientHistory)

			r.With(cached(cache.TopicDoctorAvailability)).Get("/availability", doctorH.Availability)
			r.Post("/availability/bulk", doctorH.AvailabilityBulk)
			r.Post("/availability/toggle", doctorH.AvailabilityToggle)
		})

		r.Route("/patient", func(r chi.Router) {
			r.Use(Authenticate(cfg.Tokens), RequireRole(user.RolePatient))

			r.Get("/profile", patientH.Profile)
			r.Put("/profile", patientH.UpdateProfile)
			r.With(cached(cache.TopicPatientDoctors)).Get("/doctors", patientH.ListDoctors)
			r.With(cached(cache.TopicPatientSlots)).Get("/slots", patientH.Slots)

			r.With(cached(cache.TopicPatientAppointments)).Get("/appointments", patientH.ListAppointments)
			r.Post("/appointments", patientH.Book)
			r.Get("/appointments/{id}", patientH.GetAppointment)
			r.Post("/appointments/{id}/cancel", patientH.Cancel)

			r.With(cached(cache.TopicPatientHistory)).Get("/history", patientH.History)
			r.Post("/history/export", patientH.SubmitExport)
			r.Get("/history/export/{taskID}", patientH.PollExport)
		})
	})

	return r
}
