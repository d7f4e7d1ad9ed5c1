package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatient_PreferenceProfileDefaults(t *testing.T) {
	p := &Patient{ID: "p-1"}

	profile := p.PreferenceProfile()
	assert.Empty(t, profile.PreferredSpecialities)
	assert.NotNil(t, profile.PreferredSpecialities)
	assert.Zero(t, profile.MaxFee)
	assert.Equal(t, UrgencyNormal, profile.Urgency)
	assert.Equal(t, AppointmentTypeConsultation, profile.AppointmentType)

	history := p.MedicalHistoryProfile()
	assert.NotNil(t, history.ChronicConditions)
	assert.Empty(t, history.ChronicConditions)
	assert.Empty(t, history.FamilyHistory)
}

func TestPatient_PreferenceProfileFromRecord(t *testing.T) {
	maxFee := 150.0
	minExp := 5
	p := &Patient{
		Preferences: &PatientPreferences{
			PreferredSpecialities: []string{" cardiologist ", ""},
			MaxFee:                &maxFee,
			Gender:                "Female",
			MinExperience:         &minExp,
			Urgency:               "EMERGENCY",
		},
	}

	profile := p.PreferenceProfile()
	assert.Equal(t, []string{"cardiologist"}, profile.PreferredSpecialities)
	assert.Equal(t, 150.0, profile.MaxFee)
	assert.Equal(t, "female", profile.Gender)
	assert.Equal(t, 5, profile.MinExperience)
	assert.Equal(t, UrgencyEmergency, profile.Urgency)
}

func TestMatchCriteria_Apply(t *testing.T) {
	fee := 80.0
	profile := (&Patient{}).PreferenceProfile()

	out := MatchCriteria{
		PreferredSpecialities: []string{"dermatologist"},
		MaxFee:                &fee,
		Urgency:               "urgent",
		Location:              "Baker Street",
	}.Apply(profile)

	assert.Equal(t, []string{"dermatologist"}, out.PreferredSpecialities)
	assert.Equal(t, 80.0, out.MaxFee)
	assert.Equal(t, UrgencyUrgent, out.Urgency)
	assert.Equal(t, "Baker Street", out.Location)

	unchanged := MatchCriteria{Urgency: "whenever"}.Apply(profile)
	assert.Equal(t, UrgencyNormal, unchanged.Urgency)
}

func TestUrgency_Multiplier(t *testing.T) {
	assert.Equal(t, 1.0, UrgencyNormal.Multiplier())
	assert.Equal(t, 1.2, UrgencyUrgent.Multiplier())
	assert.Equal(t, 1.5, UrgencyEmergency.Multiplier())
	assert.True(t, UrgencyEmergency.IsElevated())
	assert.False(t, UrgencyNormal.IsElevated())
}

func TestDoctor_ExperienceYears(t *testing.T) {
	testCases := []struct {
		input string
		years int
		ok    bool
	}{
		{"12 Years", 12, true},
		{"1 year", 1, true},
		{"5+ years of practice", 5, true},
		{"10yrs", 10, true},
		{"seasoned", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			d := &Doctor{Experience: tc.input}
			years, ok := d.ExperienceYears()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.years, years)
		})
	}
}

func TestDoctor_SearchableText(t *testing.T) {
	d := &Doctor{
		Name:       "Jane Doe",
		Speciality: "Cardiologist",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Heart specialist",
		Address:    DoctorAddress{Line1: "17th Cross", Line2: "London"},
	}
	assert.Equal(t, "jane doe cardiologist mbbs 4 years heart specialist 17th cross london", d.SearchableText())
	assert.Equal(t, "17th Cross London", d.AddressText())
}

func TestSymptoms_Values(t *testing.T) {
	var none *Symptoms
	assert.Empty(t, none.Values())

	s := &Symptoms{Primary: " chest pain ", Secondary: []string{"", "palpitations"}, Duration: "3 days"}
	assert.Equal(t, []string{"chest pain", "palpitations"}, s.Values())
}
