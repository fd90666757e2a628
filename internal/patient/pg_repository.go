package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/dental-clinic-booking/internal/db"
)

// DB abstracts the pgx query interface so tests can inject pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const patientColumns = `id, name, email, phone, date_of_birth, address, medical_history, emergency_contact, insurance, is_active, created_at, updated_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var dob *time.Time
	var address, history, contact, insurance []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&dob,
		&address,
		&history,
		&contact,
		&insurance,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.DateOfBirth = dob
	for _, doc := range []struct {
		raw  []byte
		dest any
	}{
		{address, &p.Address},
		{history, &p.MedicalHistory},
		{contact, &p.EmergencyContact},
		{insurance, &p.Insurance},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dest); err != nil {
			return nil, fmt.Errorf("decode patient %s document: %w", p.ID, err)
		}
	}

	return &p, nil
}

func scanPatients(rows pgx.Rows) ([]Patient, error) {
	defer rows.Close()

	result := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// documents marshals the JSONB columns in column order.
func documents(p *Patient) ([]any, error) {
	out := make([]any, 0, 4)
	for _, v := range []any{p.Address, p.MedicalHistory, p.EmergencyContact, p.Insurance} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode patient document: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func insertArgs(p *Patient) ([]any, error) {
	docs, err := documents(p)
	if err != nil {
		return nil, err
	}
	args := []any{p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth}
	args = append(args, docs...)
	return append(args, p.IsActive), nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE email = $1
	`, email)
	return scanPatient(row)
}

func (r *PgRepository) InsertPatient(ctx context.Context, p *Patient) (*Patient, error) {
	args, err := insertArgs(p)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, date_of_birth, address, medical_history, emergency_contact, insurance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+patientColumns, args...)

	created, err := scanPatient(row)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return created, nil
}

func (r *PgRepository) InsertPatientIfAbsent(ctx context.Context, p *Patient) (*Patient, error) {
	args, err := insertArgs(p)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, date_of_birth, address, medical_history, emergency_contact, insurance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (email) DO NOTHING
		RETURNING `+patientColumns, args...)

	created, err := scanPatient(row)
	if errors.Is(err, ErrPatientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	docs, err := documents(p)
	if err != nil {
		return nil, err
	}
	args := []any{p.ID, p.Name, p.Email, p.Phone, p.DateOfBirth}
	args = append(args, docs...)

	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET name = $2,
		    email = $3,
		    phone = $4,
		    date_of_birth = $5,
		    address = $6,
		    medical_history = $7,
		    emergency_contact = $8,
		    insurance = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns, args...)

	updated, err := scanPatient(row)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return nil, ErrEmailTaken
		}
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) SetPatientActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients
		SET is_active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set patient active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) ListActivePatients(ctx context.Context, limit int) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return scanPatients(rows)
}

func (r *PgRepository) SearchActivePatients(ctx context.Context, query string, limit int) ([]Patient, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.db.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE is_active
		  AND (name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1)
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return scanPatients(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
