package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
	"github.com/zatekoja/doctordirectory/backend/pkg/ngram"
)

// Factor weights. They sum to 0.95, so an unboosted score never reaches 1.
const (
	specialityFactorWeight     = 0.30
	symptomFactorWeight        = 0.25
	preferenceFactorWeight     = 0.20
	experienceFactorWeight     = 0.10
	availabilityFactorWeight   = 0.05
	locationFactorWeight       = 0.03
	medicalHistoryFactorWeight = 0.02
)

const (
	preferredSpecialityBonus = 0.8
	inferredSpecialityBonus  = 0.9
	relatedSpecialityBonus   = 0.7
	specialityTextWeight     = 0.3

	symptomSimilarityCutoff = 0.6
	conditionCutoff         = 0.5
	neutralScore            = 0.5

	// DefaultMatchCacheTTL is how long patient matches are memoized
	DefaultMatchCacheTTL = 10 * time.Minute
)

// Reason thresholds
const (
	strongSpeciality = 0.8
	strongSymptom    = 0.7
	strongExperience = 0.8
	strongPreference = 0.7
)

// PatientMatchConfig tunes PatientMatchService
type PatientMatchConfig struct {
	CacheTTL time.Duration
	// AlwaysRebuild refreshes the index from the directory on every match
	AlwaysRebuild bool
	DefaultLimit  int
}

// PatientMatchService ranks available doctors for a patient
type PatientMatchService struct {
	patientRepo repositories.PatientRepository
	doctorRepo  repositories.DoctorRepository
	index       *index.DoctorIndex
	mapper      *SymptomSpecialityMapper
	cache       *ResultCache
	metrics     *observability.Metrics
	cfg         PatientMatchConfig
}

// NewPatientMatchService creates a new patient match service
func NewPatientMatchService(
	patientRepo repositories.PatientRepository,
	doctorRepo repositories.DoctorRepository,
	idx *index.DoctorIndex,
	mapper *SymptomSpecialityMapper,
	cache *ResultCache,
	metrics *observability.Metrics,
	cfg PatientMatchConfig,
) *PatientMatchService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultMatchCacheTTL
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultResultLimit
	}
	return &PatientMatchService{
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		index:       idx,
		mapper:      mapper,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
	}
}

type matchCacheKey struct {
	PatientID string                 `json:"p"`
	Symptoms  *entities.Symptoms     `json:"s"`
	Criteria  entities.MatchCriteria `json:"c"`
	Limit     int                    `json:"l"`
}

// matchContext is everything scoring needs that does not depend on the doctor
type matchContext struct {
	profile  entities.PreferenceProfile
	history  entities.MedicalHistoryProfile
	symptoms []string
	inferred string
}

type scoredMatch struct {
	result *entities.MatchResult
	raw    float64
}

// MatchPatientWithDoctors scores every available doctor for the patient and
// returns the best limit matches
func (s *PatientMatchService) MatchPatientWithDoctors(ctx context.Context, patientID string, symptoms *entities.Symptoms, criteria entities.MatchCriteria, limit int) ([]*entities.MatchResult, error) {
	ctx, span := observability.StartSpan(ctx, "PatientMatchService.MatchPatientWithDoctors")
	defer span.End()

	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	observability.SetSpanAttributes(span, attribute.String("patient.id", patientID), attribute.Int("match.limit", limit))

	key := matchCacheKey{PatientID: patientID, Symptoms: symptoms, Criteria: criteria, Limit: limit}
	results, err := cached(ctx, s.cache, matchCachePrefix, key, s.cfg.CacheTTL, func(ctx context.Context) ([]*entities.MatchResult, error) {
		return s.match(ctx, patientID, symptoms, criteria, limit)
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Str("patient_id", patientID).Msg("Patient matching failed")
		return nil, err
	}
	return results, nil
}

func (s *PatientMatchService) match(ctx context.Context, patientID string, symptoms *entities.Symptoms, criteria entities.MatchCriteria, limit int) ([]*entities.MatchResult, error) {
	patient, err := s.patientRepo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient %s not found", patientID))
	}

	if err := s.refreshIndex(ctx); err != nil {
		return nil, err
	}

	mc := matchContext{
		profile:  criteria.Apply(patient.PreferenceProfile()),
		history:  patient.MedicalHistoryProfile(),
		symptoms: symptoms.Values(),
	}
	mc.inferred, _ = s.mapper.InferSpeciality(mc.symptoms)

	entries := s.index.Entries()
	scored := make([]scoredMatch, 0, len(entries))
	for _, entry := range entries {
		scored = append(scored, s.scoreDoctor(entry.Doctor, mc))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.result.Score != b.result.Score {
			return a.result.Score > b.result.Score
		}
		if a.result.Doctor.Available != b.result.Doctor.Available {
			return a.result.Doctor.Available
		}
		if a.raw != b.raw {
			return a.raw > b.raw
		}
		return a.result.Doctor.ID < b.result.Doctor.ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	results := make([]*entities.MatchResult, len(scored))
	for i, sm := range scored {
		results[i] = sm.result
	}

	s.metrics.RecordMatch(ctx, string(mc.profile.Urgency))
	observability.LoggerFromContext(ctx).Debug().
		Str("patient_id", patientID).
		Str("inferred_speciality", mc.inferred).
		Int("candidates", len(entries)).
		Int("results", len(results)).
		Msg("Patient matched")
	return results, nil
}

// refreshIndex rebuilds from the directory in always-fresh mode, otherwise
// reuses the current index
func (s *PatientMatchService) refreshIndex(ctx context.Context) error {
	start := time.Now()
	if !s.cfg.AlwaysRebuild {
		built, err := s.index.EnsureBuilt(ctx, s.doctorRepo.ListAvailable)
		if err != nil {
			return err
		}
		if built {
			s.metrics.RecordIndexBuild(ctx, s.index.Size(), time.Since(start))
		}
		return nil
	}

	doctors, err := s.doctorRepo.ListAvailable(ctx)
	if err != nil {
		return err
	}
	s.index.Build(doctors)
	s.metrics.RecordIndexBuild(ctx, s.index.Size(), time.Since(start))
	return nil
}

func (s *PatientMatchService) scoreDoctor(d *entities.Doctor, mc matchContext) scoredMatch {
	breakdown := entities.ScoreBreakdown{
		Speciality:     s.specialityScore(d, mc),
		Symptom:        s.symptomScore(d, mc.symptoms),
		Preference:     preferenceScore(d, mc.profile),
		Experience:     experienceScore(d),
		Availability:   availabilityScore(d, mc.profile.Urgency),
		Location:       locationScore(d, mc.profile.Location),
		MedicalHistory: medicalHistoryScore(d, mc.history.ChronicConditions),
	}

	weighted := specialityFactorWeight*breakdown.Speciality +
		symptomFactorWeight*breakdown.Symptom +
		preferenceFactorWeight*breakdown.Preference +
		experienceFactorWeight*breakdown.Experience +
		availabilityFactorWeight*breakdown.Availability +
		locationFactorWeight*breakdown.Location +
		medicalHistoryFactorWeight*breakdown.MedicalHistory

	raw := weighted * mc.profile.Urgency.Multiplier()

	return scoredMatch{
		raw: raw,
		result: &entities.MatchResult{
			Doctor:             d,
			Score:              clip01(raw),
			Breakdown:          breakdown,
			Reasons:            s.reasons(d, mc, breakdown),
			RecommendedReason:  recommendedReason(breakdown),
			InferredSpeciality: mc.inferred,
		},
	}
}

func (s *PatientMatchService) specialityScore(d *entities.Doctor, mc matchContext) float64 {
	score := 0.0
	if s.isPreferred(d.Speciality, mc.profile.PreferredSpecialities) {
		score += preferredSpecialityBonus
	}
	if mc.inferred != "" {
		if s.mapper.SameSpeciality(d.Speciality, mc.inferred) {
			score += inferredSpecialityBonus
		} else if s.mapper.AreRelated(d.Speciality, mc.inferred) {
			score += relatedSpecialityBonus
		}
		score += specialityTextWeight * ngram.TextDice(d.Speciality, specialityLabel(mc.inferred), ngram.DefaultSize)
	}
	return clip01(score)
}

func (s *PatientMatchService) symptomScore(d *entities.Doctor, symptoms []string) float64 {
	if len(symptoms) == 0 {
		return neutralScore
	}
	points := 0.0
	for _, symptom := range symptoms {
		if s.mapper.IsCanonicalSymptom(symptom, d.Speciality) {
			points++
			continue
		}
		if sim := s.mapper.SymptomSimilarity(symptom, d.Speciality); sim > symptomSimilarityCutoff {
			points += sim
		}
	}
	return clip01(points / float64(len(symptoms)))
}

func preferenceScore(d *entities.Doctor, p entities.PreferenceProfile) float64 {
	score := 0.0
	switch {
	case p.MaxFee <= 0 || d.Fees <= p.MaxFee:
		score += 0.3
	default:
		score += 0.3 * p.MaxFee / d.Fees
	}
	if p.Gender == "" || strings.EqualFold(strings.TrimSpace(d.Gender), p.Gender) {
		score += 0.2
	}
	if p.AppointmentType == entities.AppointmentTypeConsultation && d.Available {
		score += 0.2
	}
	if p.MinExperience <= 0 {
		score += 0.3
	} else if years, ok := d.ExperienceYears(); ok && years >= p.MinExperience {
		score += 0.3
	}
	return clip01(score)
}

func experienceScore(d *entities.Doctor) float64 {
	years, ok := d.ExperienceYears()
	if !ok {
		return neutralScore
	}
	switch {
	case years >= 10:
		return 1.0
	case years >= 5:
		return 0.8
	case years >= 3:
		return 0.6
	case years >= 1:
		return 0.4
	default:
		return 0.2
	}
}

func availabilityScore(d *entities.Doctor, urgency entities.Urgency) float64 {
	if urgency.IsElevated() {
		if d.Available {
			return 1
		}
		return 0
	}
	if d.Available {
		return 0.8
	}
	return 0.2
}

func locationScore(d *entities.Doctor, location string) float64 {
	if strings.TrimSpace(location) == "" {
		return neutralScore
	}
	return ngram.TextDice(d.AddressText(), location, ngram.DefaultSize)
}

func medicalHistoryScore(d *entities.Doctor, conditions []string) float64 {
	if len(conditions) == 0 {
		return neutralScore
	}
	total := 0.0
	for _, condition := range conditions {
		if sim := ngram.TextDice(condition, d.Speciality, ngram.DefaultSize); sim > conditionCutoff {
			total += sim
		}
	}
	return clip01(total / float64(len(conditions)))
}

func (s *PatientMatchService) isPreferred(speciality string, preferred []string) bool {
	for _, p := range preferred {
		if s.mapper.SameSpeciality(speciality, p) {
			return true
		}
	}
	return false
}

func (s *PatientMatchService) reasons(d *entities.Doctor, mc matchContext, b entities.ScoreBreakdown) []string {
	reasons := make([]string, 0, 6)

	if s.isPreferred(d.Speciality, mc.profile.PreferredSpecialities) {
		reasons = append(reasons, fmt.Sprintf("Matches your preferred speciality (%s)", d.Speciality))
	}
	if mc.inferred != "" && s.mapper.SameSpeciality(d.Speciality, mc.inferred) {
		reasons = append(reasons, fmt.Sprintf("%s treats the symptoms you described", d.Speciality))
	} else if mc.inferred != "" && s.mapper.AreRelated(d.Speciality, mc.inferred) {
		reasons = append(reasons, fmt.Sprintf("Related to %s care", specialityLabel(mc.inferred)))
	}
	if len(mc.symptoms) > 0 && b.Symptom >= strongSymptom {
		reasons = append(reasons, "Experienced with symptoms like yours")
	}
	if years, ok := d.ExperienceYears(); ok && b.Experience >= strongExperience {
		reasons = append(reasons, fmt.Sprintf("%d years of experience", years))
	}
	if mc.profile.MaxFee > 0 && d.Fees <= mc.profile.MaxFee {
		reasons = append(reasons, "Within your budget")
	}
	if d.Available {
		if mc.profile.Urgency.IsElevated() {
			reasons = append(reasons, "Available for urgent care")
		} else {
			reasons = append(reasons, "Available for appointments")
		}
	}
	if mc.profile.Location != "" && b.Location >= neutralScore {
		reasons = append(reasons, "Close to your preferred location")
	}
	return reasons
}

func recommendedReason(b entities.ScoreBreakdown) string {
	switch {
	case b.Speciality >= strongSpeciality:
		return "Best speciality match for your needs"
	case b.Symptom >= strongSymptom:
		return "Strong match for your symptoms"
	case b.Experience >= strongExperience:
		return "Highly experienced doctor"
	case b.Preference >= strongPreference:
		return "Matches your preferences"
	default:
		return "Good overall match"
	}
}

// specialityLabel turns a table key into display text ("general_physician" -> "general physician")
func specialityLabel(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
