package appointment

import (
	"context"
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

const appointmentColumns = `id, patient_id, patient_name, patient_email, patient_phone, appointment_date, appointment_time, service, dentist, status, duration_minutes, notes, reminder_email_sent, reminder_sms_sent, reminder_sent_at, cancellation_reason, cancelled_at, created_at, updated_at`

// Partial unique indexes from the init migration.
const (
	activeSlotIndex  = "appointments_active_slot_key"
	patientSlotIndex = "appointments_patient_slot_key"
)

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slot, service, dentist, status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.Snapshot.Name,
		&a.Snapshot.Email,
		&a.Snapshot.Phone,
		&a.Date,
		&slot,
		&service,
		&dentist,
		&status,
		&a.DurationMinutes,
		&a.Notes,
		&a.Reminders.EmailSent,
		&a.Reminders.SMSSent,
		&a.Reminders.SentAt,
		&a.CancellationReason,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = Slot(slot)
	a.Service = ServiceType(service)
	a.Dentist = Dentist(dentist)
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// conflictError maps a unique index hit to the domain conflict it stands
// for, or returns nil for any other error.
func conflictError(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	if constraint == patientSlotIndex {
		return ErrDuplicateAppointment
	}
	return ErrSlotUnavailable
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) HeldSlots(ctx context.Context, date time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE appointment_date = $1
		  AND status IN ('pending', 'confirmed')
	`, date)
	if err != nil {
		return nil, fmt.Errorf("held slots: %w", err)
	}
	defer rows.Close()

	var held []Slot
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		held = append(held, Slot(slot))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return held, nil
}

func (r *PgRepository) IsSlotHeld(ctx context.Context, date time.Time, slot Slot, excludePatientID string) (bool, error) {
	var held bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE appointment_date = $1
			  AND appointment_time = $2
			  AND status IN ('pending', 'confirmed')
			  AND ($3::text = '' OR patient_id <> $3::text)
		)
	`, date, string(slot), excludePatientID).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return held, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, patient_name, patient_email, patient_phone,
		                          appointment_date, appointment_time, service, dentist, status,
		                          duration_minutes, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.Snapshot.Name, a.Snapshot.Email, a.Snapshot.Phone,
		a.Date, string(a.Time), string(a.Service), string(a.Dentist), string(a.Status),
		a.DurationMinutes, a.Notes,
	)

	created, err := scanAppointment(row)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) SaveAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
		    appointment_time = $3,
		    service = $4,
		    dentist = $5,
		    status = $6,
		    duration_minutes = $7,
		    notes = $8,
		    cancellation_reason = $9,
		    cancelled_at = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.Date, string(a.Time), string(a.Service), string(a.Dentist), string(a.Status),
		a.DurationMinutes, a.Notes, a.CancellationReason, a.CancelledAt,
	)

	saved, err := scanAppointment(row)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return nil, conflict
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return saved, nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		where = append(where, fmt.Sprintf("appointment_date = $%d", len(args)))
	}
	if f.PatientID != "" {
		args = append(args, f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(` ORDER BY appointment_date, appointment_time LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListUpcoming(ctx context.Context, today time.Time, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date >= $1
		  AND status IN ('pending', 'confirmed')
		ORDER BY appointment_date, appointment_time
		LIMIT $2
	`, today, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListRange(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2
		ORDER BY appointment_date, appointment_time
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) CountByStatus(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled'),
		       COUNT(*) FILTER (WHERE status = 'no_show')
		FROM appointments
	`).Scan(&s.Total, &s.Confirmed, &s.Pending, &s.Completed, &s.Cancelled, &s.NoShow)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) PatientStats(ctx context.Context, patientID string, today time.Time) (*PatientStats, error) {
	var s PatientStats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE appointment_date >= $2 AND status IN ('pending', 'confirmed')),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM appointments
		WHERE patient_id = $1
	`, patientID, today).Scan(&s.TotalAppointments, &s.UpcomingAppointments, &s.CompletedAppointments)
	if err != nil {
		return nil, fmt.Errorf("count patient appointments: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) HasUpcomingAppointments(ctx context.Context, patientID string, today time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE patient_id = $1
			  AND appointment_date >= $2
			  AND status IN ('pending', 'confirmed')
		)
	`, patientID, today).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check upcoming appointments: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
