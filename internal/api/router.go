package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	"github.com/hackgods/dental-clinic-booking/internal/observability/metrics"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

type AppointmentService interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]appointment.Slot, error)
	IsSlotFree(ctx context.Context, date time.Time, slot appointment.Slot, excludingPatientID string) (bool, error)
	ListUpcoming(ctx context.Context, limit int) ([]appointment.Appointment, error)
	Statistics(ctx context.Context) (*appointment.Stats, error)
	ListRange(ctx context.Context, start, end time.Time) ([]appointment.Appointment, error)
	List(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id string, req appointment.RescheduleRequest) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id, reason string) (*appointment.Appointment, error)
	Get(ctx context.Context, id string) (*appointment.AppointmentDetail, error)
	Update(ctx context.Context, id string, patch appointment.Patch) (*appointment.Appointment, error)
	Delete(ctx context.Context, id string) (*appointment.Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]appointment.Appointment, error)
	PatientStats(ctx context.Context, patientID string) (*appointment.PatientStats, error)
}

type PatientService interface {
	List(ctx context.Context) ([]patient.Patient, error)
	Search(ctx context.Context, query string) ([]patient.Patient, error)
	Create(ctx context.Context, in patient.Input) (*patient.Patient, error)
	Get(ctx context.Context, id string) (*patient.Patient, error)
	Update(ctx context.Context, id string, in patient.Input) (*patient.Patient, error)
	Deactivate(ctx context.Context, id string) error
}

// Clock supplies "now" for derived response fields such as a patient's age.
type Clock func() time.Time

type RouterConfig struct {
	Appointments       AppointmentService
	Patients           PatientService
	Postgres           Pinger
	Redis              Pinger
	Logger             *logging.Logger
	Metrics            *metrics.BookingMetrics
	MetricsHandler     http.Handler
	Clock              Clock
	Env                string
	Version            string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSAllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Route("/appointments", func(r chi.Router) {
			appts := cfg.Appointments
			r.Get("/available-slots", availableSlotsHandler(appts))
			r.Get("/check-availability", checkAvailabilityHandler(appts))
			r.Get("/recent", recentAppointmentsHandler(appts))
			r.Get("/stats", statsHandler(appts))
			r.Get("/range/{start}/{end}", rangeAppointmentsHandler(appts))
			r.Get("/", listAppointmentsHandler(appts))
			r.Post("/", createAppointmentHandler(appts))
			r.Post("/{id}/reschedule", rescheduleAppointmentHandler(appts))
			r.Post("/{id}/cancel", cancelAppointmentHandler(appts))
			r.Get("/{id}", getAppointmentHandler(appts, cfg.Clock))
			r.Put("/{id}", updateAppointmentHandler(appts))
			r.Delete("/{id}", deleteAppointmentHandler(appts))
		})

		r.Route("/patients", func(r chi.Router) {
			patients := cfg.Patients
			r.Get("/", listPatientsHandler(patients, cfg.Clock))
			r.Post("/", createPatientHandler(patients, cfg.Clock))
			r.Get("/search/{query}", searchPatientsHandler(patients, cfg.Clock))
			r.Get("/{id}/appointments", patientAppointmentsHandler(cfg.Appointments))
			r.Get("/{id}/stats", patientStatsHandler(cfg.Appointments))
			r.Get("/{id}", getPatientHandler(patients, cfg.Clock))
			r.Put("/{id}", updatePatientHandler(patients, cfg.Clock))
			r.Delete("/{id}", deletePatientHandler(patients))
		})
	})

	return r
}
