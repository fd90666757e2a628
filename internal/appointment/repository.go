package appointment

import (
	"context"
	"time"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
)

var (
	ErrAppointmentNotFound  = apperr.NotFound("Appointment not found")
	ErrSlotUnavailable      = apperr.Conflict("Selected time slot is not available")
	ErrDuplicateAppointment = apperr.Conflict("Duplicate appointment detected")
)

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id string) (*Appointment, error)

	// Slot occupancy
	HeldSlots(ctx context.Context, date time.Time) ([]Slot, error)
	IsSlotHeld(ctx context.Context, date time.Time, slot Slot, excludePatientID string) (bool, error)

	// Writes fail with ErrSlotUnavailable or ErrDuplicateAppointment when a
	// unique index rejects the row.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	SaveAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	// Listings
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)
	ListUpcoming(ctx context.Context, today time.Time, limit int) ([]Appointment, error)
	ListRange(ctx context.Context, start, end time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Appointment, error)

	// Aggregates
	CountByStatus(ctx context.Context) (*Stats, error)
	PatientStats(ctx context.Context, patientID string, today time.Time) (*PatientStats, error)
	HasUpcomingAppointments(ctx context.Context, patientID string, today time.Time) (bool, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
