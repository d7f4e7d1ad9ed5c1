package services

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

// MatchingEngine is the single entry point the transport layer talks to
type MatchingEngine struct {
	search   *DoctorSearchService
	matcher  *PatientMatchService
	patients *SimilarPatientService
	cache    *ResultCache
}

// NewMatchingEngine wires the engine services together
func NewMatchingEngine(search *DoctorSearchService, matcher *PatientMatchService, patients *SimilarPatientService, cache *ResultCache) *MatchingEngine {
	return &MatchingEngine{
		search:   search,
		matcher:  matcher,
		patients: patients,
		cache:    cache,
	}
}

// SearchDoctors runs a fuzzy free-text doctor search
func (e *MatchingEngine) SearchDoctors(ctx context.Context, query string, filters entities.SearchFilters, limit int) ([]*entities.DoctorSearchResult, error) {
	return e.search.SearchDoctors(ctx, query, filters, limit)
}

// GetSearchSuggestions returns type-ahead suggestions
func (e *MatchingEngine) GetSearchSuggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	return e.search.GetSearchSuggestions(ctx, partial, limit)
}

// FindSimilarDoctors returns doctors with profiles similar to doctorID
func (e *MatchingEngine) FindSimilarDoctors(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarDoctor, error) {
	return e.search.FindSimilarDoctors(ctx, doctorID, limit)
}

// MatchPatientWithDoctors ranks doctors for a patient
func (e *MatchingEngine) MatchPatientWithDoctors(ctx context.Context, patientID string, symptoms *entities.Symptoms, criteria entities.MatchCriteria, limit int) ([]*entities.MatchResult, error) {
	return e.matcher.MatchPatientWithDoctors(ctx, patientID, symptoms, criteria, limit)
}

// GetSimilarPatients clusters a doctor's past patients
func (e *MatchingEngine) GetSimilarPatients(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarPatient, error) {
	return e.patients.GetSimilarPatients(ctx, doctorID, limit)
}

// GetNgramStatistics summarises the doctor index
func (e *MatchingEngine) GetNgramStatistics(ctx context.Context) (*entities.NgramStatistics, error) {
	return e.search.GetNgramStatistics(ctx)
}

// ClearCache drops every memoized search and match result
func (e *MatchingEngine) ClearCache(ctx context.Context) error {
	if err := e.cache.Clear(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to clear matching caches")
		return err
	}
	return nil
}

// RebuildIndex rebuilds the doctor index and drops memoized results, which
// were computed against the previous index
func (e *MatchingEngine) RebuildIndex(ctx context.Context, doctors []*entities.Doctor) (int, error) {
	size, err := e.search.RebuildIndex(ctx, doctors)
	if err != nil {
		return 0, err
	}
	if err := e.ClearCache(ctx); err != nil {
		return size, err
	}
	return size, nil
}
