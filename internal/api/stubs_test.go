package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

const (
	testApptID    = "652f1c9e8b3a4d0012345678"
	testPatientID = "652f1c9e8b3a4d0087654321"
)

var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

// stubAppointments implements AppointmentService through optional funcs. An
// unset func panics, which Recoverer turns into a 500.
type stubAppointments struct {
	availableSlots func(ctx context.Context, date time.Time) ([]appointment.Slot, error)
	isSlotFree     func(ctx context.Context, date time.Time, slot appointment.Slot, excluding string) (bool, error)
	listUpcoming   func(ctx context.Context, limit int) ([]appointment.Appointment, error)
	statistics     func(ctx context.Context) (*appointment.Stats, error)
	listRange      func(ctx context.Context, start, end time.Time) ([]appointment.Appointment, error)
	list           func(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
	book           func(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	reschedule     func(ctx context.Context, id string, req appointment.RescheduleRequest) (*appointment.Appointment, error)
	cancel         func(ctx context.Context, id, reason string) (*appointment.Appointment, error)
	get            func(ctx context.Context, id string) (*appointment.AppointmentDetail, error)
	update         func(ctx context.Context, id string, patch appointment.Patch) (*appointment.Appointment, error)
	remove         func(ctx context.Context, id string) (*appointment.Appointment, error)
	listByPatient  func(ctx context.Context, patientID string) ([]appointment.Appointment, error)
	patientStats   func(ctx context.Context, patientID string) (*appointment.PatientStats, error)
}

func (s *stubAppointments) AvailableSlots(ctx context.Context, date time.Time) ([]appointment.Slot, error) {
	return s.availableSlots(ctx, date)
}

func (s *stubAppointments) IsSlotFree(ctx context.Context, date time.Time, slot appointment.Slot, excluding string) (bool, error) {
	return s.isSlotFree(ctx, date, slot, excluding)
}

func (s *stubAppointments) ListUpcoming(ctx context.Context, limit int) ([]appointment.Appointment, error) {
	return s.listUpcoming(ctx, limit)
}

func (s *stubAppointments) Statistics(ctx context.Context) (*appointment.Stats, error) {
	return s.statistics(ctx)
}

func (s *stubAppointments) ListRange(ctx context.Context, start, end time.Time) ([]appointment.Appointment, error) {
	return s.listRange(ctx, start, end)
}

func (s *stubAppointments) List(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error) {
	return s.list(ctx, f)
}

func (s *stubAppointments) Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
	return s.book(ctx, req)
}

func (s *stubAppointments) Reschedule(ctx context.Context, id string, req appointment.RescheduleRequest) (*appointment.Appointment, error) {
	return s.reschedule(ctx, id, req)
}

func (s *stubAppointments) Cancel(ctx context.Context, id, reason string) (*appointment.Appointment, error) {
	return s.cancel(ctx, id, reason)
}

func (s *stubAppointments) Get(ctx context.Context, id string) (*appointment.AppointmentDetail, error) {
	return s.get(ctx, id)
}

func (s *stubAppointments) Update(ctx context.Context, id string, patch appointment.Patch) (*appointment.Appointment, error) {
	return s.update(ctx, id, patch)
}

func (s *stubAppointments) Delete(ctx context.Context, id string) (*appointment.Appointment, error) {
	return s.remove(ctx, id)
}

func (s *stubAppointments) ListByPatient(ctx context.Context, patientID string) ([]appointment.Appointment, error) {
	return s.listByPatient(ctx, patientID)
}

func (s *stubAppointments) PatientStats(ctx context.Context, patientID string) (*appointment.PatientStats, error) {
	return s.patientStats(ctx, patientID)
}

type stubPatients struct {
	list       func(ctx context.Context) ([]patient.Patient, error)
	search     func(ctx context.Context, query string) ([]patient.Patient, error)
	create     func(ctx context.Context, in patient.Input) (*patient.Patient, error)
	get        func(ctx context.Context, id string) (*patient.Patient, error)
	update     func(ctx context.Context, id string, in patient.Input) (*patient.Patient, error)
	deactivate func(ctx context.Context, id string) error
}

func (s *stubPatients) List(ctx context.Context) ([]patient.Patient, error) { return s.list(ctx) }

func (s *stubPatients) Search(ctx context.Context, query string) ([]patient.Patient, error) {
	return s.search(ctx, query)
}

func (s *stubPatients) Create(ctx context.Context, in patient.Input) (*patient.Patient, error) {
	return s.create(ctx, in)
}

func (s *stubPatients) Get(ctx context.Context, id string) (*patient.Patient, error) {
	return s.get(ctx, id)
}

func (s *stubPatients) Update(ctx context.Context, id string, in patient.Input) (*patient.Patient, error) {
	return s.update(ctx, id, in)
}

func (s *stubPatients) Deactivate(ctx context.Context, id string) error { return s.deactivate(ctx, id) }

func newTestRouter(appts *stubAppointments, patients *stubPatients) http.Handler {
	if appts == nil {
		appts = &stubAppointments{}
	}
	if patients == nil {
		patients = &stubPatients{}
	}
	return NewRouter(RouterConfig{
		Appointments: appts,
		Patients:     patients,
		Postgres:     PingFunc(func(context.Context) error { return nil }),
		Redis:        PingFunc(func(context.Context) error { return nil }),
		Logger:       logging.Discard(),
		Clock:        func() time.Time { return testNow },
		Env:          "test",
		Version:      "test",
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sampleAppointment() *appointment.Appointment {
	return &appointment.Appointment{
		ID:              testApptID,
		PatientID:       testPatientID,
		Snapshot:        appointment.PatientSnapshot{Name: "Jane Roe", Email: "jane@example.com", Phone: "+15551234567"},
		Date:            time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Time:            appointment.Slot1400,
		Service:         appointment.ServiceCleaning,
		Dentist:         appointment.DefaultDentist,
		Status:          appointment.StatusConfirmed,
		DurationMinutes: appointment.DefaultDurationMinutes,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
}

func samplePatient() *patient.Patient {
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	return &patient.Patient{
		ID:          testPatientID,
		Name:        "Jane Roe",
		Email:       "jane@example.com",
		Phone:       "+15551234567",
		DateOfBirth: &dob,
		Address:     patient.Address{Country: patient.DefaultCountry},
		IsActive:    true,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}
