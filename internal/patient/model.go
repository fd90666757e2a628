package patient

import (
	"strings"
	"time"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type MedicalHistory struct {
	Allergies       []string   `json:"allergies,omitempty"`
	Medications     []string   `json:"medications,omitempty"`
	Conditions      []string   `json:"conditions,omitempty"`
	LastDentalVisit *time.Time `json:"lastDentalVisit,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
}

type Insurance struct {
	Provider     string `json:"provider,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty"`
	GroupNumber  string `json:"groupNumber,omitempty"`
}

const DefaultCountry = "USA"

type Patient struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	DateOfBirth      *time.Time
	Address          Address
	MedicalHistory   MedicalHistory
	EmergencyContact EmergencyContact
	Insurance        Insurance
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Age in whole years at now, nil when the date of birth is unknown.
func (p *Patient) Age(now time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

// FormattedAddress renders the postal address on one line, skipping blank parts.
func (p *Patient) FormattedAddress() string {
	a := p.Address
	region := strings.TrimSpace(a.State + " " + a.ZipCode)
	var parts []string
	for _, part := range []string{a.Street, a.City, region, a.Country} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeEmail is the lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
