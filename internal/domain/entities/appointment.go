package entities

import (
	"strings"
	"time"
)

// Symptoms is what a patient reports, either when booking or when asking
// for doctor matches
type Symptoms struct {
	Primary   string   `json:"primary,omitempty"`
	Secondary []string `json:"secondary,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Severity  string   `json:"severity,omitempty"`
}

// Values returns the descriptive symptom strings, primary first
func (s *Symptoms) Values() []string {
	if s == nil {
		return []string{}
	}
	values := make([]string, 0, 1+len(s.Secondary))
	if v := strings.TrimSpace(s.Primary); v != "" {
		values = append(values, v)
	}
	for _, sec := range s.Secondary {
		if v := strings.TrimSpace(sec); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// PatientSnapshot is the patient data copied onto an appointment at booking time
type PatientSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Appointment is a ledger entry linking a patient to a doctor
type Appointment struct {
	ID              string          `json:"id" db:"id"`
	DoctorID        string          `json:"doctor_id" db:"doctor_id"`
	PatientID       string          `json:"patient_id" db:"patient_id"`
	PatientSnapshot PatientSnapshot `json:"patient"`
	Symptoms        *Symptoms       `json:"symptoms,omitempty"`
	SlotDate        time.Time       `json:"slot_date" db:"slot_date"`
	Cancelled       bool            `json:"cancelled" db:"cancelled"`
}
