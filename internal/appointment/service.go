package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
	"github.com/hackgods/dental-clinic-booking/internal/calendar"
	"github.com/hackgods/dental-clinic-booking/internal/ids"
	"github.com/hackgods/dental-clinic-booking/internal/logging"
	"github.com/hackgods/dental-clinic-booking/internal/observability/metrics"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
	redisclient "github.com/hackgods/dental-clinic-booking/internal/redis"
	"github.com/hackgods/dental-clinic-booking/internal/validate"
)

var tracer = otel.Tracer("dental.internal.appointment")

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentUpdated     = "APPOINTMENT_UPDATED"
)

const (
	DefaultCancelReason = "Cancelled by patient"
	AdminCancelReason   = "Cancelled by admin"

	listLimit          = 100
	patientListLimit   = 50
	maxUpcomingLimit   = 100
	defaultUpcomingCap = 10
)

var ErrInvalidRange = apperr.Invalid("Start date must not be after end date")

// PatientDirectory resolves the patient side of a booking.
type PatientDirectory interface {
	FindOrCreate(ctx context.Context, name, email, phone string) (*patient.Patient, error)
	Get(ctx context.Context, id string) (*patient.Patient, error)
}

// BookRequest is the payload of a new booking.
type BookRequest struct {
	PatientName  string      `json:"patientName" validate:"required,min=2,max=100"`
	PatientEmail string      `json:"patientEmail" validate:"required,email"`
	PatientPhone string      `json:"patientPhone" validate:"required,phone"`
	Date         string      `json:"date" validate:"required"`
	Time         Slot        `json:"time" validate:"required,enum"`
	Service      ServiceType `json:"service" validate:"required,enum"`
	Dentist      Dentist     `json:"dentist" validate:"omitempty,enum"`
	Duration     *int        `json:"duration" validate:"omitempty,min=15,max=120"`
	Notes        string      `json:"notes" validate:"max=500"`
}

// Patch is a partial update. Nil fields and a blank date are left alone.
type Patch struct {
	Status   *Status      `json:"status" validate:"omitempty,enum"`
	Date     *string      `json:"date"`
	Time     *Slot        `json:"time" validate:"omitempty,enum"`
	Service  *ServiceType `json:"service" validate:"omitempty,enum"`
	Dentist  *Dentist     `json:"dentist" validate:"omitempty,enum"`
	Duration *int         `json:"duration" validate:"omitempty,min=15,max=120"`
	Notes    *string      `json:"notes" validate:"omitempty,max=500"`
}

var messages = validate.Messages{
	"patientName.required":  "Patient name is required",
	"patientName.min":       "Patient name must be at least 2 characters long",
	"patientName.max":       "Patient name cannot exceed 100 characters",
	"patientEmail.required": "Patient email is required",
	"patientEmail.email":    "Please provide a valid email address",
	"patientPhone.required": "Patient phone is required",
	"patientPhone.phone":    "Please provide a valid phone number",
	"date.required":         "Appointment date is required",
	"time.required":         "Appointment time is required",
	"time.enum":             "Invalid time slot. Please select from available slots",
	"service.required":      "Service type is required",
	"service.enum":          "Invalid service type",
	"dentist.enum":          "Invalid dentist",
	"status.enum":           "Invalid status",
	"duration.min":          "Minimum duration is 15 minutes",
	"duration.max":          "Maximum duration is 120 minutes",
	"notes.max":             "Notes cannot exceed 500 characters",
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	patients PatientDirectory
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, patients PatientDirectory, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if locker == nil {
		locker = redisclient.NopLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		patients: patients,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for "today". Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return calendar.Today(s.now)
}

// Book validates the request, resolves the patient and stores a confirmed
// appointment. A held slot, a held lock or a unique index hit all surface as
// ErrSlotUnavailable or ErrDuplicateAppointment.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()

	appt, err := s.book(ctx, req)
	s.metrics.ObserveBooking(bookingOutcome(err))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("dental.appointment_id", appt.ID))
	return appt, nil
}

func (s *Service) book(ctx context.Context, req BookRequest) (*Appointment, error) {
	req.normalize()

	ve := &apperr.ValidationError{}
	if err := structErrors(req, ve); err != nil {
		return nil, err
	}
	date := s.writeDate(req.Date, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	p, err := s.patients.FindOrCreate(ctx, req.PatientName, req.PatientEmail, req.PatientPhone)
	if err != nil {
		return nil, err
	}

	free, err := s.IsSlotFree(ctx, date, req.Time, "")
	if err != nil {
		return nil, err
	}
	if !free {
		s.metrics.ObserveConflict("precheck")
		return nil, ErrSlotUnavailable
	}

	appt := &Appointment{
		ID:        ids.New(),
		PatientID: p.ID,
		Snapshot: PatientSnapshot{
			Name:  req.PatientName,
			Email: req.PatientEmail,
			Phone: req.PatientPhone,
		},
		Date:            date,
		Time:            req.Time,
		Service:         req.Service,
		Dentist:         req.Dentist,
		Status:          StatusConfirmed,
		DurationMinutes: DefaultDurationMinutes,
		Notes:           req.Notes,
	}
	if appt.Dentist == "" {
		appt.Dentist = DefaultDentist
	}
	if req.Duration != nil {
		appt.DurationMinutes = *req.Duration
	}

	var created *Appointment
	err = s.withSlotLock(ctx, date, req.Time, func(lockCtx context.Context) error {
		var err error
		created, err = s.repo.CreateAppointment(lockCtx, appt)
		return err
	})
	if err != nil {
		return nil, s.slotWriteError(ctx, "book appointment", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"patient_id": created.PatientID,
		"date":       calendar.Format(created.Date),
		"time":       created.Time,
		"service":    created.Service,
	})
	s.metrics.ObserveWrite("book")
	s.logger.WithFields(map[string]any{
		"appointment_id": created.ID,
		"patient_id":     created.PatientID,
		"date":           calendar.Format(created.Date),
		"time":           created.Time,
	}).Info("appointment booked")

	return created, nil
}

// RescheduleRequest moves an appointment to another slot.
type RescheduleRequest struct {
	Date string `json:"date" validate:"required"`
	Time Slot   `json:"time" validate:"required,enum"`
}

// Reschedule moves the appointment in place. The patient's own appointments
// do not block the target slot.
func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("dental.appointment_id", id))

	req.Date = strings.TrimSpace(req.Date)
	ve := &apperr.ValidationError{}
	if err := structErrors(req, ve); err != nil {
		return nil, err
	}
	date := s.writeDate(req.Date, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	free, err := s.IsSlotFree(ctx, date, req.Time, current.PatientID)
	if err != nil {
		return nil, err
	}
	if !free {
		s.metrics.ObserveConflict("precheck")
		return nil, ErrSlotUnavailable
	}

	next := *current
	next.Date = date
	next.Time = req.Time

	saved, err := s.saveHoldingSlot(ctx, &next)
	if err != nil {
		return nil, s.slotWriteError(ctx, "reschedule appointment", err)
	}

	s.logEvent(ctx, saved.ID, EventAppointmentRescheduled, map[string]any{
		"from_date": calendar.Format(current.Date),
		"from_time": current.Time,
		"to_date":   calendar.Format(saved.Date),
		"to_time":   saved.Time,
	})
	s.metrics.ObserveWrite("reschedule")
	s.logger.WithField("appointment_id", saved.ID).Info("appointment rescheduled")

	return saved, nil
}

// Cancel marks the appointment cancelled and frees its slot. Cancelling a
// cancelled appointment re-stamps the reason and time.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancelReason
	}
	return s.cancel(ctx, id, reason)
}

// Delete is the administrative soft delete.
func (s *Service) Delete(ctx context.Context, id string) (*Appointment, error) {
	return s.cancel(ctx, id, AdminCancelReason)
}

func (s *Service) cancel(ctx context.Context, id, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("dental.appointment_id", id))

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := *current
	next.Status = StatusCancelled
	next.CancellationReason = &reason
	next.CancelledAt = &now

	saved, err := s.repo.SaveAppointment(ctx, &next)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, saved.ID, EventAppointmentCancelled, map[string]any{
		"reason":          reason,
		"previous_status": current.Status,
	})
	s.metrics.ObserveWrite("cancel")
	s.logger.WithField("appointment_id", saved.ID).Info("appointment cancelled")

	return saved, nil
}

// Update applies a partial patch. Moving the appointment, or bringing an
// inactive one back to an active status, re-checks the slot.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.update")
	defer span.End()
	span.SetAttributes(attribute.String("dental.appointment_id", id))

	ve := &apperr.ValidationError{}
	if err := structErrors(patch, ve); err != nil {
		return nil, err
	}
	// a blank date leaves the appointment's date alone
	var date time.Time
	hasDate := patch.Date != nil && strings.TrimSpace(*patch.Date) != ""
	if hasDate {
		date = s.writeDate(strings.TrimSpace(*patch.Date), ve)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	var changed []string
	if hasDate && !date.Equal(current.Date) {
		next.Date = date
		changed = append(changed, "date")
	}
	if patch.Time != nil && *patch.Time != current.Time {
		next.Time = *patch.Time
		changed = append(changed, "time")
	}
	if patch.Status != nil && *patch.Status != current.Status {
		next.Status = *patch.Status
		changed = append(changed, "status")
	}
	if patch.Service != nil && *patch.Service != current.Service {
		next.Service = *patch.Service
		changed = append(changed, "service")
	}
	if patch.Dentist != nil && *patch.Dentist != current.Dentist {
		next.Dentist = *patch.Dentist
		changed = append(changed, "dentist")
	}
	if patch.Duration != nil && *patch.Duration != current.DurationMinutes {
		next.DurationMinutes = *patch.Duration
		changed = append(changed, "duration")
	}
	if patch.Notes != nil && *patch.Notes != current.Notes {
		next.Notes = *patch.Notes
		changed = append(changed, "notes")
	}
	if len(changed) == 0 {
		return current, nil
	}

	switch {
	case next.Status == StatusCancelled && current.Status != StatusCancelled:
		now := s.now()
		reason := AdminCancelReason
		next.CancelledAt = &now
		next.CancellationReason = &reason
	case next.Status != StatusCancelled && current.Status == StatusCancelled:
		next.CancelledAt = nil
		next.CancellationReason = nil
	}

	moved := !next.Date.Equal(current.Date) || next.Time != current.Time
	reactivated := next.Status.Active() && !current.Status.Active()

	if reactivated && next.Date.Before(s.today()) {
		return nil, apperr.Invalid("Appointment date cannot be in the past")
	}

	var saved *Appointment
	if next.Status.Active() && (moved || reactivated) {
		free, err := s.IsSlotFree(ctx, next.Date, next.Time, current.PatientID)
		if err != nil {
			return nil, err
		}
		if !free {
			s.metrics.ObserveConflict("precheck")
			return nil, ErrSlotUnavailable
		}
		saved, err = s.saveHoldingSlot(ctx, &next)
		if err != nil {
			return nil, s.slotWriteError(ctx, "update appointment", err)
		}
	} else {
		saved, err = s.repo.SaveAppointment(ctx, &next)
		if err != nil {
			return nil, s.slotWriteError(ctx, "update appointment", err)
		}
	}

	s.logEvent(ctx, saved.ID, EventAppointmentUpdated, map[string]any{
		"changed": changed,
		"status":  saved.Status,
	})
	s.metrics.ObserveWrite("update")
	s.logger.WithFields(map[string]any{
		"appointment_id": saved.ID,
		"changed":        strings.Join(changed, ","),
	}).Info("appointment updated")

	return saved, nil
}

// Statistics counts the whole ledger by status.
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment statistics: %w", err)
	}
	return stats, nil
}

// ListUpcoming returns active appointments from today on, soonest first.
func (s *Service) ListUpcoming(ctx context.Context, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = defaultUpcomingCap
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}

	appts, err := s.repo.ListUpcoming(ctx, s.today(), limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Appointment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("Invalid status")
	}
	if f.Date != nil {
		day := calendar.Day(*f.Date)
		f.Date = &day
	}
	f.Limit = listLimit

	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListRange returns every appointment dated within [start, end].
func (s *Service) ListRange(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	start, end = calendar.Day(start), calendar.Day(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	appts, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	return appts, nil
}

// Get returns the appointment with its live patient record.
func (s *Service) Get(ctx context.Context, id string) (*AppointmentDetail, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *appt}
	p, err := s.patients.Get(ctx, appt.PatientID)
	switch {
	case err == nil:
		detail.Patient = p
	case errors.Is(err, patient.ErrPatientNotFound):
		s.logger.WithField("appointment_id", id).Warn("appointment references a missing patient")
	default:
		return nil, err
	}
	return detail, nil
}

// ListByPatient returns a patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	appts, err := s.repo.ListByPatient(ctx, patientID, patientListLimit)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) PatientStats(ctx context.Context, patientID string) (*PatientStats, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	stats, err := s.repo.PatientStats(ctx, patientID, s.today())
	if err != nil {
		return nil, fmt.Errorf("patient statistics: %w", err)
	}
	return stats, nil
}

func (s *Service) load(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// saveHoldingSlot writes a under the lock of its target slot.
func (s *Service) saveHoldingSlot(ctx context.Context, a *Appointment) (*Appointment, error) {
	var saved *Appointment
	err := s.withSlotLock(ctx, a.Date, a.Time, func(lockCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveAppointment(lockCtx, a)
		return err
	})
	return saved, err
}

// withSlotLock runs fn under the Redis lock for the slot. When Redis cannot
// be reached fn runs unguarded and the partial unique index settles any race.
func (s *Service) withSlotLock(ctx context.Context, date time.Time, slot Slot, fn func(ctx context.Context) error) error {
	key := redisclient.SlotKey(date, string(slot))
	err := s.locker.WithSlotLock(ctx, key, fn)
	if !errors.Is(err, redisclient.ErrLockUnavailable) || ctx.Err() != nil {
		return err
	}

	s.metrics.ObserveLockDegraded()
	s.logger.WithContext(ctx).WithError(err).WithField("slot_key", key).
		Warn("slot lock unavailable, writing without it")
	return fn(ctx)
}

// slotWriteError turns lock and constraint failures into conflicts.
func (s *Service) slotWriteError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		s.metrics.ObserveConflict("lock")
		return ErrSlotUnavailable
	case errors.Is(err, apperr.ErrConflict):
		s.metrics.ObserveConflict("constraint")
		return err
	case errors.Is(err, ErrAppointmentNotFound):
		return err
	}
	s.logger.WithContext(ctx).WithError(err).Error(op + " failed")
	return fmt.Errorf("%s: %w", op, err)
}

// writeDate parses a date that is about to be stored. It must not be in the
// past.
func (s *Service) writeDate(raw string, ve *apperr.ValidationError) time.Time {
	if raw == "" {
		return time.Time{}
	}
	day, err := calendar.Parse(raw)
	if err != nil {
		ve.Add("date", "Invalid appointment date")
		return time.Time{}
	}
	if day.Before(s.today()) {
		ve.Add("date", "Appointment date cannot be in the past")
	}
	return day
}

// structErrors collects tag failures of v into ve. Anything else is a
// programming error and is returned unchanged.
func structErrors(v any, ve *apperr.ValidationError) error {
	err := validate.Struct(v, messages)
	if err == nil {
		return nil
	}
	var fieldErrs *apperr.ValidationError
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	ve.Merge(fieldErrs)
	return nil
}

func (r *BookRequest) normalize() {
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.PatientEmail = patient.NormalizeEmail(r.PatientEmail)
	r.PatientPhone = strings.TrimSpace(r.PatientPhone)
	r.Date = strings.TrimSpace(r.Date)
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.WithError(err).WithFields(map[string]any{
			"event_type":     eventType,
			"appointment_id": appointmentID,
		}).Error("failed to insert event log")
	}
}
