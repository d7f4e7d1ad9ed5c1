package entities

import "strings"

// Urgency is the medical urgency a patient declares
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// Multiplier returns the score boost applied for the urgency level
func (u Urgency) Multiplier() float64 {
	switch u {
	case UrgencyUrgent:
		return 1.2
	case UrgencyEmergency:
		return 1.5
	default:
		return 1.0
	}
}

// IsElevated is true for urgent and emergency
func (u Urgency) IsElevated() bool {
	return u == UrgencyUrgent || u == UrgencyEmergency
}

// AppointmentTypeConsultation is the default appointment type
const AppointmentTypeConsultation = "consultation"

// PatientPreferences is the optional preferences document stored with a patient.
// Every field may be absent.
type PatientPreferences struct {
	PreferredSpecialities []string `json:"preferred_specialities,omitempty"`
	MaxFee                *float64 `json:"max_fee,omitempty"`
	Location              string   `json:"location,omitempty"`
	Gender                string   `json:"gender,omitempty"`
	MinExperience         *int     `json:"min_experience,omitempty"`
	Urgency               string   `json:"urgency,omitempty"`
	AppointmentType       string   `json:"appointment_type,omitempty"`
}

// MedicalHistory is the optional history document stored with a patient
type MedicalHistory struct {
	ChronicConditions []string `json:"chronic_conditions,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	Medications       []string `json:"medications,omitempty"`
	Surgeries         []string `json:"surgeries,omitempty"`
	FamilyHistory     []string `json:"family_history,omitempty"`
}

// Patient is a patient directory record
type Patient struct {
	ID             string              `json:"id" db:"id"`
	Name           string              `json:"name" db:"name"`
	Email          string              `json:"email" db:"email"`
	Preferences    *PatientPreferences `json:"preferences,omitempty"`
	MedicalHistory *MedicalHistory     `json:"medical_history,omitempty"`
}

// PreferenceProfile is the fully defaulted view of a patient's preferences.
// MaxFee of zero means no fee limit.
type PreferenceProfile struct {
	PreferredSpecialities []string `json:"preferred_specialities"`
	MaxFee                float64  `json:"max_fee"`
	Location              string   `json:"location"`
	Gender                string   `json:"gender"`
	MinExperience         int      `json:"min_experience"`
	Urgency               Urgency  `json:"urgency"`
	AppointmentType       string   `json:"appointment_type"`
}

// MedicalHistoryProfile is the fully defaulted view of a patient's history
type MedicalHistoryProfile struct {
	ChronicConditions []string `json:"chronic_conditions"`
	Allergies         []string `json:"allergies"`
	Medications       []string `json:"medications"`
	Surgeries         []string `json:"surgeries"`
	FamilyHistory     []string `json:"family_history"`
}

// PreferenceProfile derives the defaulted preference profile
func (p *Patient) PreferenceProfile() PreferenceProfile {
	profile := PreferenceProfile{
		PreferredSpecialities: []string{},
		Urgency:               UrgencyNormal,
		AppointmentType:       AppointmentTypeConsultation,
	}
	prefs := p.Preferences
	if prefs == nil {
		return profile
	}

	profile.PreferredSpecialities = normalizeList(prefs.PreferredSpecialities)
	if prefs.MaxFee != nil && *prefs.MaxFee > 0 {
		profile.MaxFee = *prefs.MaxFee
	}
	profile.Location = strings.TrimSpace(prefs.Location)
	profile.Gender = strings.ToLower(strings.TrimSpace(prefs.Gender))
	if prefs.MinExperience != nil && *prefs.MinExperience > 0 {
		profile.MinExperience = *prefs.MinExperience
	}
	if u := ParseUrgency(prefs.Urgency); u != "" {
		profile.Urgency = u
	}
	if t := strings.ToLower(strings.TrimSpace(prefs.AppointmentType)); t != "" {
		profile.AppointmentType = t
	}
	return profile
}

// MedicalHistoryProfile derives the defaulted history profile
func (p *Patient) MedicalHistoryProfile() MedicalHistoryProfile {
	h := p.MedicalHistory
	if h == nil {
		h = &MedicalHistory{}
	}
	return MedicalHistoryProfile{
		ChronicConditions: normalizeList(h.ChronicConditions),
		Allergies:         normalizeList(h.Allergies),
		Medications:       normalizeList(h.Medications),
		Surgeries:         normalizeList(h.Surgeries),
		FamilyHistory:     normalizeList(h.FamilyHistory),
	}
}

// ParseUrgency returns the known urgency for s, or "" if s is unknown
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyNormal:
		return UrgencyNormal
	case UrgencyUrgent:
		return UrgencyUrgent
	case UrgencyEmergency:
		return UrgencyEmergency
	}
	return ""
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
