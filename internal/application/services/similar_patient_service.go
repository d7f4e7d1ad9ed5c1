package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

const (
	symptomBreadthWeight = 0.7
	visitFrequencyWeight = 0.3
	symptomBreadthCap    = 10.0
	visitFrequencyCap    = 5.0
	similarPatientCutoff = 0.5
)

// SimilarPatientService clusters a doctor's past patients by how many
// distinct symptoms they presented and how often they visited
type SimilarPatientService struct {
	appointmentRepo repositories.AppointmentRepository
	defaultLimit    int
}

// NewSimilarPatientService creates a new similar patient service
func NewSimilarPatientService(appointmentRepo repositories.AppointmentRepository, defaultLimit int) *SimilarPatientService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultResultLimit
	}
	return &SimilarPatientService{
		appointmentRepo: appointmentRepo,
		defaultLimit:    defaultLimit,
	}
}

type patientGroup struct {
	patient  entities.SimilarPatient
	symptoms map[string]struct{}
}

// GetSimilarPatients returns the doctor's patients scoring above the cutoff,
// best first
func (s *SimilarPatientService) GetSimilarPatients(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarPatient, error) {
	ctx, span := observability.StartSpan(ctx, "SimilarPatientService.GetSimilarPatients")
	defer span.End()

	if limit <= 0 {
		limit = s.defaultLimit
	}

	appointments, err := s.appointmentRepo.ListByDoctor(ctx, doctorID, true)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Str("doctor_id", doctorID).Msg("Failed to load appointments")
		return nil, err
	}

	groups := make(map[string]*patientGroup)
	for _, appt := range appointments {
		if appt == nil || appt.Cancelled || appt.PatientID == "" {
			continue
		}
		g, ok := groups[appt.PatientID]
		if !ok {
			g = &patientGroup{
				patient:  entities.SimilarPatient{PatientID: appt.PatientID},
				symptoms: make(map[string]struct{}),
			}
			groups[appt.PatientID] = g
		}
		g.patient.AppointmentCount++
		if !appt.SlotDate.Before(g.patient.LastVisit) {
			g.patient.LastVisit = appt.SlotDate
			g.patient.Patient = appt.PatientSnapshot
		}
		for _, symptom := range appt.Symptoms.Values() {
			g.symptoms[strings.ToLower(symptom)] = struct{}{}
		}
	}

	similar := make([]*entities.SimilarPatient, 0, len(groups))
	for _, g := range groups {
		score := ClusterScore(len(g.symptoms), g.patient.AppointmentCount)
		if score <= similarPatientCutoff {
			continue
		}
		p := g.patient
		p.SimilarityScore = score
		p.Symptoms = make([]string, 0, len(g.symptoms))
		for symptom := range g.symptoms {
			p.Symptoms = append(p.Symptoms, symptom)
		}
		sort.Strings(p.Symptoms)
		similar = append(similar, &p)
	}

	sort.Slice(similar, func(i, j int) bool {
		if similar[i].SimilarityScore != similar[j].SimilarityScore {
			return similar[i].SimilarityScore > similar[j].SimilarityScore
		}
		return similar[i].PatientID < similar[j].PatientID
	})
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

// ClusterScore weighs symptom breadth and visit frequency, each saturating
// at its cap
func ClusterScore(distinctSymptoms, appointments int) float64 {
	breadth := math.Min(float64(distinctSymptoms)/symptomBreadthCap, 1)
	frequency := math.Min(float64(appointments)/visitFrequencyCap, 1)
	return symptomBreadthWeight*breadth + visitFrequencyWeight*frequency
}
