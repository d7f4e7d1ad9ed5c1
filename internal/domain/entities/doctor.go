package entities

import (
	"regexp"
	"strconv"
	"strings"
)

// DoctorAddress is the postal address a doctor practises at
type DoctorAddress struct {
	Line1 string `json:"line1" db:"address_line1"`
	Line2 string `json:"line2" db:"address_line2"`
}

// Doctor is a directory entry as seen by the matching engine
type Doctor struct {
	ID         string        `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	Speciality string        `json:"speciality" db:"speciality"`
	Degree     string        `json:"degree" db:"degree"`
	Experience string        `json:"experience" db:"experience"`
	About      string        `json:"about" db:"about"`
	Fees       float64       `json:"fees" db:"fees"`
	Available  bool          `json:"available" db:"available"`
	Gender     string        `json:"gender,omitempty" db:"gender"`
	Address    DoctorAddress `json:"address"`
}

var experienceYears = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:years?|yrs?)`)

// ExperienceYears parses the free-text experience field ("12 Years").
// ok is false when no "N years" pattern is present.
func (d *Doctor) ExperienceYears() (years int, ok bool) {
	return ParseExperienceYears(d.Experience)
}

// ParseExperienceYears extracts N from an "N years" phrase
func ParseExperienceYears(text string) (int, bool) {
	m := experienceYears.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return years, true
}

// SearchableText is the lower-cased concatenation the n-gram index is built from
func (d *Doctor) SearchableText() string {
	parts := []string{
		d.Name,
		d.Speciality,
		d.Degree,
		d.Experience,
		d.About,
		d.Address.Line1,
		d.Address.Line2,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// AddressText joins both address lines
func (d *Doctor) AddressText() string {
	return strings.TrimSpace(d.Address.Line1 + " " + d.Address.Line2)
}
