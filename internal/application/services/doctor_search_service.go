package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
	"github.com/zatekoja/doctordirectory/backend/pkg/ngram"
)

// Search scoring weights
const (
	bigramWeight     = 0.4
	trigramWeight    = 0.35
	fourgramWeight   = 0.25
	additionalWeight = 0.2

	nameHitBonus       = 0.8
	specialityHitBonus = 0.6
	experienceHitBonus = 0.4
	availableBonus     = 0.1
)

// Defaults for DoctorSearchConfig
const (
	DefaultSearchCacheTTL         = 15 * time.Minute
	DefaultSimilarDoctorThreshold = 0.6
	DefaultResultLimit            = 10
)

// DoctorSearchConfig tunes DoctorSearchService
type DoctorSearchConfig struct {
	CacheTTL         time.Duration
	SimilarThreshold float64
	DefaultLimit     int
}

func (c DoctorSearchConfig) withDefaults() DoctorSearchConfig {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultSearchCacheTTL
	}
	if c.SimilarThreshold <= 0 {
		c.SimilarThreshold = DefaultSimilarDoctorThreshold
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultResultLimit
	}
	return c
}

// DoctorSearchService serves fuzzy doctor search over the n-gram index
type DoctorSearchService struct {
	doctorRepo repositories.DoctorRepository
	index      *index.DoctorIndex
	cache      *ResultCache
	metrics    *observability.Metrics
	cfg        DoctorSearchConfig
}

// NewDoctorSearchService creates a new doctor search service
func NewDoctorSearchService(
	doctorRepo repositories.DoctorRepository,
	idx *index.DoctorIndex,
	cache *ResultCache,
	metrics *observability.Metrics,
	cfg DoctorSearchConfig,
) *DoctorSearchService {
	return &DoctorSearchService{
		doctorRepo: doctorRepo,
		index:      idx,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg.withDefaults(),
	}
}

type searchCacheKey struct {
	Query   string                 `json:"q"`
	Filters entities.SearchFilters `json:"f"`
	Limit   int                    `json:"l"`
}

// SearchDoctors ranks indexed doctors against a free-text query
func (s *DoctorSearchService) SearchDoctors(ctx context.Context, query string, filters entities.SearchFilters, limit int) ([]*entities.DoctorSearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "DoctorSearchService.SearchDoctors")
	defer span.End()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []*entities.DoctorSearchResult{}, nil
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	observability.SetSpanAttributes(span, attribute.String("search.query", query), attribute.Int("search.limit", limit))

	key := searchCacheKey{Query: query, Filters: filters, Limit: limit}
	results, err := cached(ctx, s.cache, searchCachePrefix, key, s.cfg.CacheTTL, func(ctx context.Context) ([]*entities.DoctorSearchResult, error) {
		return s.search(ctx, query, filters, limit)
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Str("query", query).Msg("Doctor search failed")
		return nil, err
	}

	s.metrics.RecordSearch(ctx, len(results))
	return results, nil
}

func (s *DoctorSearchService) search(ctx context.Context, query string, filters entities.SearchFilters, limit int) ([]*entities.DoctorSearchResult, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	queryGrams := ngram.Sets(query, ngram.IndexSizes...)
	candidates := s.index.Candidates(queryGrams)

	results := make([]*entities.DoctorSearchResult, 0, len(candidates))
	for _, id := range candidates {
		entry, ok := s.index.Entry(id)
		if !ok || !matchesFilters(entry.Doctor, filters) {
			continue
		}
		results = append(results, scoreCandidate(entry, query, queryGrams))
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.NgramMatches != b.NgramMatches {
			return a.NgramMatches > b.NgramMatches
		}
		return a.Doctor.ID < b.Doctor.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreCandidate(entry *index.Entry, query string, queryGrams map[int]ngram.Set) *entities.DoctorSearchResult {
	d := entry.Doctor

	score := bigramWeight*ngram.Jaccard(queryGrams[2], entry.Grams[2]) +
		trigramWeight*ngram.Dice(queryGrams[3], entry.Grams[3]) +
		fourgramWeight*ngram.OverlapCosine(queryGrams[4], entry.Grams[4])

	matches := 0
	for n, set := range queryGrams {
		matches += ngram.Intersection(set, entry.Grams[n])
	}

	reasons := make([]string, 0, 4)
	additional := 0.0
	if strings.Contains(strings.ToLower(d.Name), query) {
		additional += nameHitBonus
		reasons = append(reasons, "Name matches your search")
	}
	if strings.Contains(strings.ToLower(d.Speciality), query) {
		additional += specialityHitBonus
		reasons = append(reasons, fmt.Sprintf("Speciality: %s", d.Speciality))
	}
	if strings.Contains(strings.ToLower(d.Experience), query) {
		additional += experienceHitBonus
		reasons = append(reasons, fmt.Sprintf("Experience: %s", d.Experience))
	}
	if additional == 0 {
		reasons = append(reasons, fmt.Sprintf("Similar profile text (%d shared n-grams)", matches))
	}
	if d.Available {
		additional += availableBonus
		reasons = append(reasons, "Available for appointments")
	}

	score += additionalWeight * clip01(additional)

	return &entities.DoctorSearchResult{
		Doctor:       d,
		Score:        clip01(score),
		MatchReasons: reasons,
		NgramMatches: matches,
	}
}

func matchesFilters(d *entities.Doctor, f entities.SearchFilters) bool {
	if f.Speciality != "" && !strings.Contains(strings.ToLower(d.Speciality), strings.ToLower(strings.TrimSpace(f.Speciality))) {
		return false
	}
	if f.MinFee != nil && d.Fees < *f.MinFee {
		return false
	}
	if f.MaxFee != nil && d.Fees > *f.MaxFee {
		return false
	}
	if f.MinExperience != nil {
		years, ok := d.ExperienceYears()
		if !ok || years < *f.MinExperience {
			return false
		}
	}
	if f.Available != nil && d.Available != *f.Available {
		return false
	}
	return true
}

// GetSearchSuggestions returns capitalised profile words containing the
// partial query
func (s *DoctorSearchService) GetSearchSuggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	ctx, span := observability.StartSpan(ctx, "DoctorSearchService.GetSearchSuggestions")
	defer span.End()

	query := strings.ToLower(strings.TrimSpace(partial))
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if query == "" {
		return []string{}, nil
	}

	if err := s.ensureIndex(ctx); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	suggestions := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, gram := range ngram.Generate(query, 2) {
		for _, id := range s.index.Lookup(gram, 2) {
			entry, ok := s.index.Entry(id)
			if !ok {
				continue
			}
			for _, word := range strings.Fields(entry.Text) {
				if len(word) <= 2 || !strings.Contains(word, query) {
					continue
				}
				suggestion := capitalize(word)
				if _, dup := seen[suggestion]; dup {
					continue
				}
				seen[suggestion] = struct{}{}
				suggestions = append(suggestions, suggestion)
				if len(suggestions) >= limit {
					return suggestions, nil
				}
			}
		}
	}
	return suggestions, nil
}

// FindSimilarDoctors returns indexed doctors whose profile text resembles
// the given doctor's. An unknown doctor yields an empty list.
func (s *DoctorSearchService) FindSimilarDoctors(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarDoctor, error) {
	ctx, span := observability.StartSpan(ctx, "DoctorSearchService.FindSimilarDoctors")
	defer span.End()

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if err := s.ensureIndex(ctx); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	ref, ok := s.index.Entry(doctorID)
	if !ok {
		return []*entities.SimilarDoctor{}, nil
	}

	similar := make([]*entities.SimilarDoctor, 0)
	for _, entry := range s.index.Entries() {
		if entry.Doctor.ID == doctorID {
			continue
		}
		sim := ngram.Dice(ref.Grams[ngram.DefaultSize], entry.Grams[ngram.DefaultSize])
		if sim > s.cfg.SimilarThreshold {
			similar = append(similar, &entities.SimilarDoctor{Doctor: entry.Doctor, Similarity: sim})
		}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].Doctor.ID < similar[j].Doctor.ID
	})
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

// GetNgramStatistics summarises the doctor index, building it if needed
func (s *DoctorSearchService) GetNgramStatistics(ctx context.Context) (*entities.NgramStatistics, error) {
	ctx, span := observability.StartSpan(ctx, "DoctorSearchService.GetNgramStatistics")
	defer span.End()

	if err := s.ensureIndex(ctx); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	stats := s.index.Stats()
	return &stats, nil
}

// RebuildIndex replaces the index with doctors, or with the directory's
// available doctors when none are given. It returns the indexed count.
func (s *DoctorSearchService) RebuildIndex(ctx context.Context, doctors []*entities.Doctor) (int, error) {
	ctx, span := observability.StartSpan(ctx, "DoctorSearchService.RebuildIndex")
	defer span.End()

	if len(doctors) == 0 {
		var err error
		doctors, err = s.doctorRepo.ListAvailable(ctx)
		if err != nil {
			observability.RecordError(span, err)
			observability.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to load doctors for index rebuild")
			return 0, err
		}
	}

	start := time.Now()
	s.index.Build(doctors)
	s.recordBuild(ctx, start)
	return s.index.Size(), nil
}

// ensureIndex builds the index lazily when it is empty or stale
func (s *DoctorSearchService) ensureIndex(ctx context.Context) error {
	start := time.Now()
	built, err := s.index.EnsureBuilt(ctx, s.doctorRepo.ListAvailable)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("Failed to build doctor index")
		return err
	}
	if built {
		s.recordBuild(ctx, start)
	}
	return nil
}

func (s *DoctorSearchService) recordBuild(ctx context.Context, start time.Time) {
	elapsed := time.Since(start)
	size := s.index.Size()
	s.metrics.RecordIndexBuild(ctx, size, elapsed)
	observability.LoggerFromContext(ctx).Info().
		Int("doctors", size).
		Str("mode", string(s.index.Mode())).
		Dur("duration", elapsed).
		Msg("Doctor index built")
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return word
	}
	return string(unicode.ToUpper(r)) + word[size:]
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
