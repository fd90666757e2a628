package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hackgods/dental-clinic-booking/internal/ids"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

// memRepo keeps appointments in memory and enforces the same two partial
// unique indexes as the Postgres schema.
type memRepo struct {
	mu         sync.Mutex
	appts      map[string]*Appointment
	events     []EventLog
	failEvents bool
}

func newMemRepo() *memRepo {
	return &memRepo{appts: map[string]*Appointment{}}
}

func (m *memRepo) violation(a *Appointment) error {
	for _, o := range m.appts {
		if o.ID == a.ID || !o.Date.Equal(a.Date) || o.Time != a.Time {
			continue
		}
		if a.Status != StatusCancelled && o.Status != StatusCancelled && o.PatientID == a.PatientID {
			return ErrDuplicateAppointment
		}
		if a.Status.Active() && o.Status.Active() {
			return ErrSlotUnavailable
		}
	}
	return nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) HeldSlots(_ context.Context, date time.Time) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var held []Slot
	for _, a := range m.appts {
		if a.Date.Equal(date) && a.Status.Active() {
			held = append(held, a.Time)
		}
	}
	return held, nil
}

func (m *memRepo) IsSlotHeld(_ context.Context, date time.Time, slot Slot, excludePatientID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.Date.Equal(date) && a.Time == slot && a.Status.Active() {
			if excludePatientID != "" && a.PatientID == excludePatientID {
				continue
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.violation(a); err != nil {
		return nil, err
	}
	cp := *a
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appts[a.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) SaveAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	if err := m.violation(a); err != nil {
		return nil, err
	}
	cp := *a
	cp.UpdatedAt = time.Now()
	m.appts[a.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) sorted(keep func(*Appointment) bool) []Appointment {
	out := []Appointment{}
	for _, a := range m.appts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func capped(list []Appointment, limit int) []Appointment {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func (m *memRepo) ListAppointments(_ context.Context, f Filter) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return capped(m.sorted(func(a *Appointment) bool {
		return (f.Status == "" || a.Status == f.Status) &&
			(f.Date == nil || a.Date.Equal(*f.Date)) &&
			(f.PatientID == "" || a.PatientID == f.PatientID)
	}), f.Limit), nil
}

func (m *memRepo) ListUpcoming(_ context.Context, today time.Time, limit int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return capped(m.sorted(func(a *Appointment) bool {
		return !a.Date.Before(today) && a.Status.Active()
	}), limit), nil
}

func (m *memRepo) ListRange(_ context.Context, start, end time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(a *Appointment) bool {
		return !a.Date.Before(start) && !a.Date.After(end)
	}), nil
}

func (m *memRepo) ListByPatient(_ context.Context, patientID string, limit int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sorted(func(a *Appointment) bool { return a.PatientID == patientID })
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return capped(list, limit), nil
}

func (m *memRepo) CountByStatus(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, a := range m.appts {
		s.Total++
		switch a.Status {
		case StatusConfirmed:
			s.Confirmed++
		case StatusPending:
			s.Pending++
		case StatusCompleted:
			s.Completed++
		case StatusCancelled:
			s.Cancelled++
		case StatusNoShow:
			s.NoShow++
		}
	}
	return &s, nil
}

func (m *memRepo) PatientStats(_ context.Context, patientID string, today time.Time) (*PatientStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s PatientStats
	for _, a := range m.appts {
		if a.PatientID != patientID {
			continue
		}
		s.TotalAppointments++
		if !a.Date.Before(today) && a.Status.Active() {
			s.UpcomingAppointments++
		}
		if a.Status == StatusCompleted {
			s.CompletedAppointments++
		}
	}
	return &s, nil
}

func (m *memRepo) HasUpcomingAppointments(ctx context.Context, patientID string, today time.Time) (bool, error) {
	s, err := m.PatientStats(ctx, patientID, today)
	if err != nil {
		return false, err
	}
	return s.UpcomingAppointments > 0, nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEvents {
		return errors.New("event store down")
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

// memDirectory is a patient directory keyed by normalized email.
type memDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*patient.Patient
	byID    map[string]*patient.Patient
}

func newMemDirectory() *memDirectory {
	return &memDirectory{byEmail: map[string]*patient.Patient{}, byID: map[string]*patient.Patient{}}
}

func (d *memDirectory) FindOrCreate(_ context.Context, name, email, phone string) (*patient.Patient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	email = patient.NormalizeEmail(email)
	if p, ok := d.byEmail[email]; ok {
		return p, nil
	}
	p := &patient.Patient{ID: ids.New(), Name: name, Email: email, Phone: phone, IsActive: true}
	d.byEmail[email] = p
	d.byID[p.ID] = p
	return p, nil
}

func (d *memDirectory) Get(_ context.Context, id string) (*patient.Patient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.byID[id]; ok {
		return p, nil
	}
	return nil, patient.ErrPatientNotFound
}

func (d *memDirectory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byEmail)
}
