package api

import (
	"time"

	"github.com/hackgods/dental-clinic-booking/internal/apperr"
	"github.com/hackgods/dental-clinic-booking/internal/appointment"
	"github.com/hackgods/dental-clinic-booking/internal/calendar"
	"github.com/hackgods/dental-clinic-booking/internal/patient"
)

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AvailableSlotsResponse struct {
	Date           string   `json:"date"`
	AvailableSlots []string `json:"availableSlots"`
}

type AvailabilityResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RemindersResponse struct {
	EmailSent bool       `json:"emailSent"`
	SMSSent   bool       `json:"smsSent"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

type AppointmentResponse struct {
	ID                 string            `json:"_id"`
	PatientID          string            `json:"patientId"`
	PatientName        string            `json:"patientName"`
	PatientEmail       string            `json:"patientEmail"`
	PatientPhone       string            `json:"patientPhone"`
	Date               string            `json:"date"`
	Time               string            `json:"time"`
	FormattedTime      string            `json:"formattedTime"`
	Service            string            `json:"service"`
	Dentist            string            `json:"dentist"`
	Status             string            `json:"status"`
	Duration           int               `json:"duration"`
	Notes              string            `json:"notes,omitempty"`
	Reminders          RemindersResponse `json:"reminders"`
	CancellationReason *string           `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// AppointmentDetailResponse is an appointment with its live patient record.
type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient *PatientResponse `json:"patient,omitempty"`
}

type StatsResponse struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"noShow"`
}

type PatientStatsResponse struct {
	TotalAppointments     int `json:"totalAppointments"`
	UpcomingAppointments  int `json:"upcomingAppointments"`
	CompletedAppointments int `json:"completedAppointments"`
}

type PatientResponse struct {
	ID               string                   `json:"_id"`
	Name             string                   `json:"name"`
	Email            string                   `json:"email"`
	Phone            string                   `json:"phone"`
	DateOfBirth      *string                  `json:"dateOfBirth,omitempty"`
	Age              *int                     `json:"age,omitempty"`
	Address          patient.Address          `json:"address"`
	FullAddress      string                   `json:"fullAddress,omitempty"`
	MedicalHistory   patient.MedicalHistory   `json:"medicalHistory"`
	EmergencyContact patient.EmergencyContact `json:"emergencyContact"`
	Insurance        patient.Insurance        `json:"insurance"`
	IsActive         bool                     `json:"isActive"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

// PatientRequest is the wire form of patient.Input. The date of birth comes
// in as YYYY-MM-DD or RFC 3339.
type PatientRequest struct {
	Name             *string                   `json:"name"`
	Email            *string                   `json:"email"`
	Phone            *string                   `json:"phone"`
	DateOfBirth      *string                   `json:"dateOfBirth"`
	Address          *patient.Address          `json:"address"`
	MedicalHistory   *patient.MedicalHistory   `json:"medicalHistory"`
	EmergencyContact *patient.EmergencyContact `json:"emergencyContact"`
	Insurance        *patient.Insurance        `json:"insurance"`
}

func (req PatientRequest) toInput() (patient.Input, error) {
	in := patient.Input{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		MedicalHistory:   req.MedicalHistory,
		EmergencyContact: req.EmergencyContact,
		Insurance:        req.Insurance,
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := calendar.Parse(*req.DateOfBirth)
		if err != nil {
			ve := &apperr.ValidationError{}
			ve.Add("dateOfBirth", "Invalid date of birth")
			return patient.Input{}, ve
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.Snapshot.Name,
		PatientEmail:  a.Snapshot.Email,
		PatientPhone:  a.Snapshot.Phone,
		Date:          calendar.Format(a.Date),
		Time:          string(a.Time),
		FormattedTime: a.FormattedTime(),
		Service:       string(a.Service),
		Dentist:       string(a.Dentist),
		Status:        string(a.Status),
		Duration:      a.DurationMinutes,
		Notes:         a.Notes,
		Reminders: RemindersResponse{
			EmailSent: a.Reminders.EmailSent,
			SMSSent:   a.Reminders.SMSSent,
			SentAt:    a.Reminders.SentAt,
		},
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toAppointmentList(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return out
}

func toPatientResponse(p *patient.Patient, now time.Time) PatientResponse {
	resp := PatientResponse{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		Age:              p.Age(now),
		Address:          p.Address,
		FullAddress:      p.FormattedAddress(),
		MedicalHistory:   p.MedicalHistory,
		EmergencyContact: p.EmergencyContact,
		Insurance:        p.Insurance,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.DateOfBirth != nil {
		dob := calendar.Format(*p.DateOfBirth)
		resp.DateOfBirth = &dob
	}
	return resp
}

func toPatientList(list []patient.Patient, now time.Time) []PatientResponse {
	out := make([]PatientResponse, 0, len(list))
	for i := range list {
		out = append(out, toPatientResponse(&list[i], now))
	}
	return out
}

func slotStrings(slots []appointment.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, string(s))
	}
	return out
}
