package patient

import (
	"context"
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
	"github.com/hackgods/dental-clinic-booking/internal/validate"
)

var tracer = otel.Tracer("dental.internal.patient")

const (
	listLimit   = 100
	searchLimit = 20
)

var ErrHasUpcomingAppointments = apperr.Blocked("Cannot delete patient with upcoming appointments")

// UpcomingChecker reports whether a patient still holds an active slot dated
// on or after today. The appointment ledger implements it.
type UpcomingChecker interface {
	HasUpcomingAppointments(ctx context.Context, patientID string, today time.Time) (bool, error)
}

// Input is a full (create) or partial (update) set of patient fields.
// Nil means "not provided".
type Input struct {
	Name             *string           `json:"name" validate:"omitempty,min=2,max=100"`
	Email            *string           `json:"email" validate:"omitempty,email"`
	Phone            *string           `json:"phone" validate:"omitempty,phone"`
	DateOfBirth      *time.Time        `json:"dateOfBirth"`
	Address          *Address          `json:"address"`
	MedicalHistory   *MedicalHistory   `json:"medicalHistory"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
	Insurance        *Insurance        `json:"insurance"`
}

var messages = validate.Messages{
	"name.min":    "Name must be at least 2 characters long",
	"name.max":    "Name cannot exceed 100 characters",
	"email.email": "Please provide a valid email address",
	"phone.phone": "Please provide a valid phone number",
}

type Service struct {
	repo     Repository
	upcoming UpcomingChecker
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(repo Repository, upcoming UpcomingChecker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		upcoming: upcoming,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for "today". Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Now exposes the directory clock so callers can compute derived fields.
func (s *Service) Now() time.Time { return s.now() }

// FindOrCreate resolves a patient by normalized email. An existing record is
// returned untouched; its name and phone are not refreshed.
func (s *Service) FindOrCreate(ctx context.Context, name, email, phone string) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.find_or_create")
	defer span.End()

	email = NormalizeEmail(email)

	existing, err := s.repo.GetPatientByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPatientNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("lookup patient by email: %w", err)
	}

	in := Input{Name: &name, Email: &email, Phone: &phone}
	in.normalize()
	if err := in.validate(true, s.now()); err != nil {
		return nil, err
	}

	created, err := s.repo.InsertPatientIfAbsent(ctx, in.newPatient())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create patient: %w", err)
	}
	if created != nil {
		span.SetAttributes(attribute.String("dental.patient_id", created.ID))
		s.logger.WithField("patient_id", created.ID).Info("patient created on booking")
		return created, nil
	}

	// lost the insert race to a concurrent booking with the same email
	existing, err = s.repo.GetPatientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reload patient by email: %w", err)
	}
	return existing, nil
}

// Create registers a patient directly. Duplicate emails are a conflict.
func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.create")
	defer span.End()

	in.normalize()
	if err := in.validate(true, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByEmail(ctx, *in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("lookup patient by email: %w", err)
	}

	created, err := s.repo.InsertPatient(ctx, in.newPatient())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.WithField("patient_id", created.ID).Info("patient created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// List returns active patients, newest first.
func (s *Service) List(ctx context.Context) ([]Patient, error) {
	patients, err := s.repo.ListActivePatients(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

// Search matches active patients by name, email or phone substring.
func (s *Service) Search(ctx context.Context, query string) ([]Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Patient{}, nil
	}
	patients, err := s.repo.SearchActivePatients(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return patients, nil
}

// Update applies the provided fields. Existing appointment snapshots keep
// the contact details they were booked with.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patient.update")
	defer span.End()
	span.SetAttributes(attribute.String("dental.patient_id", id))

	in.normalize()
	if err := in.validate(false, s.now()); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(current)

	updated, err := s.repo.UpdatePatient(ctx, current)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.WithField("patient_id", id).Info("patient updated")
	return updated, nil
}

// Deactivate soft-deletes a patient unless an upcoming active appointment
// still references them.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "patient.deactivate")
	defer span.End()
	span.SetAttributes(attribute.String("dental.patient_id", id))

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	busy, err := s.upcoming.HasUpcomingAppointments(ctx, id, calendar.Today(s.now))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("check upcoming appointments: %w", err)
	}
	if busy {
		return ErrHasUpcomingAppointments
	}

	if err := s.repo.SetPatientActive(ctx, id, false); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return err
		}
		return fmt.Errorf("deactivate patient: %w", err)
	}

	s.logger.WithField("patient_id", id).Info("patient deactivated")
	return nil
}

func (in *Input) normalize() {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in.Name = trim(in.Name)
	in.Phone = trim(in.Phone)
	if in.Email != nil {
		v := NormalizeEmail(*in.Email)
		in.Email = &v
	}
	if in.DateOfBirth != nil {
		v := calendar.Day(*in.DateOfBirth)
		in.DateOfBirth = &v
	}
}

func (in *Input) validate(create bool, now time.Time) error {
	ve := &apperr.ValidationError{}

	if create {
		for _, req := range []struct {
			field string
			value *string
			msg   string
		}{
			{"name", in.Name, "Patient name is required"},
			{"email", in.Email, "Email is required"},
			{"phone", in.Phone, "Phone number is required"},
		} {
			if req.value == nil || *req.value == "" {
				ve.Add(req.field, req.msg)
			}
		}
		if len(ve.Fields) > 0 {
			// skip tag checks on the missing fields so each field reports once
			probe := *in
			if probe.Name != nil && *probe.Name == "" {
				probe.Name = nil
			}
			if probe.Email != nil && *probe.Email == "" {
				probe.Email = nil
			}
			if probe.Phone != nil && *probe.Phone == "" {
				probe.Phone = nil
			}
			ve.Merge(validate.Struct(probe, messages))
			return ve.OrNil()
		}
	}

	if err := validate.Struct(in, messages); err != nil {
		var fieldErrs *apperr.ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		ve.Merge(fieldErrs)
	}

	if in.DateOfBirth != nil && in.DateOfBirth.After(calendar.Day(now)) {
		ve.Add("dateOfBirth", "Date of birth cannot be in the future")
	}

	return ve.OrNil()
}

func (in *Input) newPatient() *Patient {
	p := &Patient{
		ID:       ids.New(),
		IsActive: true,
		Address:  Address{Country: DefaultCountry},
	}
	in.apply(p)
	if p.Address.Country == "" {
		p.Address.Country = DefaultCountry
	}
	return p
}

func (in *Input) apply(p *Patient) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.Phone != nil {
		p.Phone = *in.Phone
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = in.DateOfBirth
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.MedicalHistory != nil {
		p.MedicalHistory = *in.MedicalHistory
	}
	if in.EmergencyContact != nil {
		p.EmergencyContact = *in.EmergencyContact
	}
	if in.Insurance != nil {
		p.Insurance = *in.Insurance
	}
}
