package patient

import (
	"context"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
)

var (
	ErrPatientNotFound = apperr.NotFound("Patient not found")
	ErrEmailTaken      = apperr.Conflict("Patient with this email already exists")
)

// Repository contains all DB interactions needed by the directory.
type Repository interface {
	GetPatientByID(ctx context.Context, id string) (*Patient, error)
	GetPatientByEmail(ctx context.Context, email string) (*Patient, error)

	// InsertPatient fails with ErrEmailTaken on a duplicate email.
	InsertPatient(ctx context.Context, p *Patient) (*Patient, error)
	// InsertPatientIfAbsent returns (nil, nil) when the email already exists.
	InsertPatientIfAbsent(ctx context.Context, p *Patient) (*Patient, error)

	UpdatePatient(ctx context.Context, p *Patient) (*Patient, error)
	SetPatientActive(ctx context.Context, id string, active bool) error

	ListActivePatients(ctx context.Context, limit int) ([]Patient, error)
	SearchActivePatients(ctx context.Context, query string, limit int) ([]Patient, error)
}
