package services

import (
	"sort"
	"strings"

	"github.com/zatekoja/doctordirectory/backend/pkg/ngram"
)

// DefaultSpecialityInferenceCutoff is the minimum similarity a speciality
// needs before it is inferred from symptoms
const DefaultSpecialityInferenceCutoff = 0.3

var canonicalSymptoms = map[string][]string{
	"cardiologist": {
		"chest pain", "shortness of breath", "palpitations", "high blood pressure",
		"irregular heartbeat", "dizziness", "swelling in legs", "fatigue",
	},
	"dermatologist": {
		"rash", "itching", "acne", "eczema", "skin lesions", "hair loss", "dry skin", "moles",
	},
	"neurologist": {
		"headache", "migraine", "seizures", "numbness", "tingling", "memory loss", "dizziness", "tremors",
	},
	"gastroenterologist": {
		"abdominal pain", "nausea", "vomiting", "diarrhea", "constipation", "bloating", "heartburn", "acid reflux",
	},
	"pediatrician": {
		"fever in children", "cough", "cold", "ear infection", "vaccination", "growth concerns", "rash in children",
	},
	"gynecologist": {
		"irregular periods", "pelvic pain", "pregnancy", "menstrual cramps", "vaginal discharge", "infertility",
	},
	"general_physician": {
		"fever", "cold", "cough", "fatigue", "body ache", "sore throat", "flu", "headache",
	},
}

var relatedSpecialities = map[string][]string{
	"cardiologist":       {"general_physician", "internal_medicine"},
	"neurologist":        {"general_physician", "internal_medicine"},
	"gastroenterologist": {"general_physician", "internal_medicine"},
	"dermatologist":      {"general_physician"},
	"pediatrician":       {"general_physician"},
	"gynecologist":       {"general_physician"},
}

// SymptomSpecialityMapper infers a medical speciality from free-text
// symptoms using a fixed canonical symptom table
type SymptomSpecialityMapper struct {
	cutoff       float64
	specialities []string
	joined       map[string]ngram.Set
	related      map[string]map[string]struct{}
}

// NewSymptomSpecialityMapper creates a mapper. A non-positive cutoff uses the default.
func NewSymptomSpecialityMapper(cutoff float64) *SymptomSpecialityMapper {
	if cutoff <= 0 {
		cutoff = DefaultSpecialityInferenceCutoff
	}

	m := &SymptomSpecialityMapper{
		cutoff:  cutoff,
		joined:  make(map[string]ngram.Set),
		related: make(map[string]map[string]struct{}),
	}

	for speciality, symptoms := range canonicalSymptoms {
		m.specialities = append(m.specialities, speciality)
		m.joined[speciality] = ngram.NewSet(strings.Join(symptoms, " "), ngram.DefaultSize)
	}
	sort.Strings(m.specialities)

	link := func(a, b string) {
		if m.related[a] == nil {
			m.related[a] = make(map[string]struct{})
		}
		m.related[a][b] = struct{}{}
	}
	for a, others := range relatedSpecialities {
		for _, b := range others {
			link(a, b)
			link(b, a)
		}
	}

	return m
}

// Specialities returns the specialities the mapper knows, sorted
func (m *SymptomSpecialityMapper) Specialities() []string {
	return append([]string(nil), m.specialities...)
}

// CanonicalSymptoms returns the canonical symptom list for a speciality
func (m *SymptomSpecialityMapper) CanonicalSymptoms(speciality string) []string {
	key, ok := m.resolve(speciality)
	if !ok {
		return nil
	}
	return append([]string(nil), canonicalSymptoms[key]...)
}

// IsCanonicalSymptom reports exact, case-insensitive membership of symptom in
// the speciality's canonical list
func (m *SymptomSpecialityMapper) IsCanonicalSymptom(symptom, speciality string) bool {
	symptom = strings.ToLower(strings.TrimSpace(symptom))
	for _, s := range m.CanonicalSymptoms(speciality) {
		if s == symptom {
			return true
		}
	}
	return false
}

// SymptomSimilarity is the 3-gram Dice between text and the speciality's
// canonical symptoms joined by spaces
func (m *SymptomSpecialityMapper) SymptomSimilarity(text, speciality string) float64 {
	key, ok := m.resolve(speciality)
	if !ok {
		return 0
	}
	grams := ngram.NewSet(text, ngram.DefaultSize)
	if len(grams) == 0 {
		return 0
	}
	return ngram.Dice(grams, m.joined[key])
}

// InferSpeciality joins the symptoms into one text and returns the
// speciality whose canonical text it resembles most, with the score. The
// speciality is "" when the best score does not clear the cutoff.
func (m *SymptomSpecialityMapper) InferSpeciality(symptoms []string) (string, float64) {
	text := strings.TrimSpace(strings.Join(symptoms, " "))
	if text == "" {
		return "", 0
	}

	var (
		best      string
		bestScore float64
	)
	for _, speciality := range m.specialities {
		if score := m.SymptomSimilarity(text, speciality); score > bestScore {
			best, bestScore = speciality, score
		}
	}

	if bestScore > m.cutoff {
		return best, bestScore
	}
	return "", bestScore
}

// AreRelated reports whether two specialities are clinically adjacent
func (m *SymptomSpecialityMapper) AreRelated(a, b string) bool {
	a, b = normalizeSpeciality(a), normalizeSpeciality(b)
	if ka, ok := m.resolve(a); ok {
		a = ka
	}
	if kb, ok := m.resolve(b); ok {
		b = kb
	}
	_, ok := m.related[a][b]
	return ok
}

// SameSpeciality compares specialities ignoring case, separators and a
// plural suffix
func (m *SymptomSpecialityMapper) SameSpeciality(a, b string) bool {
	ka, okA := m.resolve(a)
	kb, okB := m.resolve(b)
	if okA && okB {
		return ka == kb
	}
	na, nb := normalizeSpeciality(a), normalizeSpeciality(b)
	return na != "" && na == nb
}

// resolve maps a free-text speciality ("General physician", "Pediatricians")
// onto a table key
func (m *SymptomSpecialityMapper) resolve(speciality string) (string, bool) {
	key := normalizeSpeciality(speciality)
	if _, ok := canonicalSymptoms[key]; ok {
		return key, true
	}
	if trimmed := strings.TrimSuffix(key, "s"); trimmed != key {
		if _, ok := canonicalSymptoms[trimmed]; ok {
			return trimmed, true
		}
	}
	return "", false
}

func normalizeSpeciality(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
