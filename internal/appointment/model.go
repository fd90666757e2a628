package appointment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

// Slot is one labeled point of the daily schedule.
type Slot string

const (
	Slot0900 Slot = "09:00"
	Slot1000 Slot = "10:00"
	Slot1100 Slot = "11:00"
	Slot1200 Slot = "12:00"
	Slot1400 Slot = "14:00"
	Slot1500 Slot = "15:00"
	Slot1600 Slot = "16:00"
	Slot1700 Slot = "17:00"
)

// Slots is the bookable day in order. 13:00 is lunch.
var Slots = []Slot{Slot0900, Slot1000, Slot1100, Slot1200, Slot1400, Slot1500, Slot1600, Slot1700}

func (s Slot) Valid() bool {
	for _, v := range Slots {
		if s == v {
			return true
		}
	}
	return false
}

// Formatted renders the slot on a 12-hour clock, "14:00" as "2:00 PM".
func (s Slot) Formatted() string {
	hh, mm, ok := strings.Cut(string(s), ":")
	if !ok {
		return string(s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return string(s)
	}
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	if hour%12 == 0 {
		return fmt.Sprintf("12:%s %s", mm, ampm)
	}
	return fmt.Sprintf("%d:%s %s", hour%12, mm, ampm)
}

// ServiceType is an entry of the treatment catalog.
type ServiceType string

const (
	ServiceCleaning     ServiceType = "cleaning"
	ServiceFilling      ServiceType = "filling"
	ServiceExtraction   ServiceType = "extraction"
	ServiceRootCanal    ServiceType = "root_canal"
	ServiceBraces       ServiceType = "braces"
	ServiceWhitening    ServiceType = "whitening"
	ServiceCheckup      ServiceType = "checkup"
	ServiceEmergency    ServiceType = "emergency"
	ServiceConsultation ServiceType = "consultation"
	ServiceXray         ServiceType = "xray"
)

var Services = []ServiceType{
	ServiceCleaning, ServiceFilling, ServiceExtraction, ServiceRootCanal, ServiceBraces,
	ServiceWhitening, ServiceCheckup, ServiceEmergency, ServiceConsultation, ServiceXray,
}

func (s ServiceType) Valid() bool {
	for _, v := range Services {
		if s == v {
			return true
		}
	}
	return false
}

type Dentist string

const (
	DentistSmith    Dentist = "Dr. Smith"
	DentistJohnson  Dentist = "Dr. Johnson"
	DentistWilliams Dentist = "Dr. Williams"
	DentistBrown    Dentist = "Dr. Brown"

	DefaultDentist = DentistSmith
)

var Dentists = []Dentist{DentistSmith, DentistJohnson, DentistWilliams, DentistBrown}

func (d Dentist) Valid() bool {
	for _, v := range Dentists {
		if d == v {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Active statuses hold their slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

const DefaultDurationMinutes = 30

// PatientSnapshot is the contact data copied onto an appointment when it is
// booked. Later patient edits do not reach it.
type PatientSnapshot struct {
	Name  string
	Email string
	Phone string
}

type Reminders struct {
	EmailSent bool
	SMSSent   bool
	SentAt    *time.Time
}

type Appointment struct {
	ID                 string
	PatientID          string
	Snapshot           PatientSnapshot
	Date               time.Time
	Time               Slot
	Service            ServiceType
	Dentist            Dentist
	Status             Status
	DurationMinutes    int
	Notes              string
	Reminders          Reminders
	CancellationReason *string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Appointment) FormattedTime() string {
	return a.Time.Formatted()
}

// StartsAt combines the date and slot in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	hh, mm, _ := strings.Cut(string(a.Time), ":")
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// IsUpcoming reports whether the slot starts after now.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.StartsAt(now.Location()).After(now)
}

// AppointmentDetail pairs an appointment with the live patient record.
type AppointmentDetail struct {
	Appointment
	Patient *patient.Patient
}

type Stats struct {
	Total     int
	Confirmed int
	Pending   int
	Completed int
	Cancelled int
	NoShow    int
}

type PatientStats struct {
	TotalAppointments     int
	UpcomingAppointments  int
	CompletedAppointments int
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	Status    Status
	Date      *time.Time
	PatientID string
	Limit     int
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *string
	Payload       []byte
	CreatedAt     time.Time
}
