package entities

import "strings"

// MatchCriteria are per-request overrides on top of the stored patient
// preferences. Zero values leave the stored preference untouched.
type MatchCriteria struct {
	PreferredSpecialities []string `json:"preferred_specialities,omitempty"`
	MaxFee                *float64 `json:"max_fee,omitempty"`
	Location              string   `json:"location,omitempty"`
	Gender                string   `json:"gender,omitempty"`
	MinExperience         *int     `json:"min_experience,omitempty"`
	Urgency               string   `json:"urgency,omitempty"`
	AppointmentType       string   `json:"appointment_type,omitempty"`
}

// Apply returns profile with the criteria overrides applied
func (c MatchCriteria) Apply(profile PreferenceProfile) PreferenceProfile {
	for _, s := range c.PreferredSpecialities {
		if v := strings.TrimSpace(s); v != "" {
			profile.PreferredSpecialities = append(profile.PreferredSpecialities, v)
		}
	}
	if c.MaxFee != nil && *c.MaxFee > 0 {
		profile.MaxFee = *c.MaxFee
	}
	if v := strings.TrimSpace(c.Location); v != "" {
		profile.Location = v
	}
	if v := strings.ToLower(strings.TrimSpace(c.Gender)); v != "" {
		profile.Gender = v
	}
	if c.MinExperience != nil && *c.MinExperience > 0 {
		profile.MinExperience = *c.MinExperience
	}
	if u := ParseUrgency(c.Urgency); u != "" {
		profile.Urgency = u
	}
	if v := strings.ToLower(strings.TrimSpace(c.AppointmentType)); v != "" {
		profile.AppointmentType = v
	}
	return profile
}

// ScoreBreakdown holds each clipped matching factor
type ScoreBreakdown struct {
	Speciality     float64 `json:"speciality"`
	Symptom        float64 `json:"symptom"`
	Preference     float64 `json:"preference"`
	Experience     float64 `json:"experience"`
	Availability   float64 `json:"availability"`
	Location       float64 `json:"location"`
	MedicalHistory float64 `json:"medical_history"`
}

// MatchResult is one ranked doctor for a patient
type MatchResult struct {
	Doctor             *Doctor        `json:"doctor"`
	Score              float64        `json:"score"`
	Breakdown          ScoreBreakdown `json:"breakdown"`
	Reasons            []string       `json:"reasons"`
	RecommendedReason  string         `json:"recommended_reason"`
	InferredSpeciality string         `json:"inferred_speciality,omitempty"`
}
