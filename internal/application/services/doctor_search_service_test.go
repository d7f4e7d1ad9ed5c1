package services_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheadapter "github.com/zatekoja/doctordirectory/backend/internal/adapters/cache"
	"github.com/zatekoja/doctordirectory/backend/internal/application/index"
	"github.com/zatekoja/doctordirectory/backend/internal/application/services"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

func newSearchService(t *testing.T, doctors []*entities.Doctor) (*services.DoctorSearchService, *MockDoctorRepository, *index.DoctorIndex, *fakeCache) {
	t.Helper()
	repo := new(MockDoctorRepository)
	repo.On("ListAvailable", mock.Anything).Return(doctors, nil)
	idx := index.NewDoctorIndex(index.ModeIsolated)
	cache := newFakeCache()
	svc := services.NewDoctorSearchService(repo, idx, services.NewResultCache(cache, nil), nil, services.DoctorSearchConfig{})
	return svc, repo, idx, cache
}

func resultIDs(results []*entities.DoctorSearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Doctor.ID
	}
	return ids
}

func TestDoctorSearchService_EmptyQuery(t *testing.T) {
	svc, repo, _, _ := newSearchService(t, sampleDoctors())

	for _, q := range []string{"", "   "} {
		results, err := svc.SearchDoctors(context.Background(), q, entities.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	repo.AssertNotCalled(t, "ListAvailable", mock.Anything)
}

func TestDoctorSearchService_NameMatchRanksFirst(t *testing.T) {
	svc, _, _, _ := newSearchService(t, sampleDoctors())

	results, err := svc.SearchDoctors(context.Background(), "  JANE ", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "doc1", top.Doctor.ID)
	assert.Contains(t, top.MatchReasons, "Name matches your search")
	assert.Contains(t, top.MatchReasons, "Available for appointments")
	assert.Greater(t, top.NgramMatches, 0)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestDoctorSearchService_SpecialityReason(t *testing.T) {
	svc, _, _, _ := newSearchService(t, sampleDoctors())

	results, err := svc.SearchDoctors(context.Background(), "cardiologist", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	assert.ElementsMatch(t, []string{"doc1", "doc3"}, resultIDs(results)[:2])
	assert.Contains(t, results[0].MatchReasons, "Speciality: Cardiologist")
}

func TestDoctorSearchService_Filters(t *testing.T) {
	svc, _, _, _ := newSearchService(t, sampleDoctors())
	ctx := context.Background()

	minExp := 10
	results, err := svc.SearchDoctors(ctx, "cardiologist", entities.SearchFilters{MinExperience: &minExp}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, resultIDs(results))

	maxFee := 100.0
	results, err = svc.SearchDoctors(ctx, "dr", entities.SearchFilters{Speciality: "CARDIO", MaxFee: &maxFee}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc3"}, resultIDs(results))

	unavailable := false
	results, err = svc.SearchDoctors(ctx, "dr", entities.SearchFilters{Available: &unavailable}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDoctorSearchService_Limit(t *testing.T) {
	svc, _, _, _ := newSearchService(t, sampleDoctors())

	results, err := svc.SearchDoctors(context.Background(), "dr", entities.SearchFilters{}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDoctorSearchService_ResultsAreCached(t *testing.T) {
	svc, repo, idx, cache := newSearchService(t, sampleDoctors())
	ctx := context.Background()

	first, err := svc.SearchDoctors(ctx, "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.setCount())

	// Replacing the index without clearing the cache still serves the memoized result
	idx.Build([]*entities.Doctor{{ID: "doc9", Name: "Dr. Jane Roe", Speciality: "Neurologist"}})
	second, err := svc.SearchDoctors(ctx, "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, resultIDs(first), resultIDs(second))
	assert.Equal(t, 1, cache.setCount())
	repo.AssertNumberOfCalls(t, "ListAvailable", 1)
}

func TestDoctorSearchService_CachedResultsExpire(t *testing.T) {
	clk := newFakeClock()
	repo := new(MockDoctorRepository)
	repo.On("ListAvailable", mock.Anything).Return(sampleDoctors(), nil)
	idx := index.NewDoctorIndex(index.ModeIsolated)
	svc := services.NewDoctorSearchService(repo, idx,
		services.NewResultCache(cacheadapter.NewMemoryAdapter(clk), nil), nil, services.DoctorSearchConfig{})
	ctx := context.Background()

	first, err := svc.SearchDoctors(ctx, "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, "doc1", first[0].Doctor.ID)

	idx.Build([]*entities.Doctor{{ID: "doc9", Name: "Dr. Jane Roe", Speciality: "Neurologist"}})

	clk.Advance(14 * time.Minute)
	cached, err := svc.SearchDoctors(ctx, "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, resultIDs(first), resultIDs(cached))

	clk.Advance(2 * time.Minute)
	fresh, err := svc.SearchDoctors(ctx, "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc9"}, resultIDs(fresh))
	repo.AssertNumberOfCalls(t, "ListAvailable", 1)
}

func TestDoctorSearchService_CacheFailureIsNotFatal(t *testing.T) {
	svc, _, _, cache := newSearchService(t, sampleDoctors())
	cache.failGet = errors.New("connection refused")

	results, err := svc.SearchDoctors(context.Background(), "jane", entities.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, "doc1", results[0].Doctor.ID)
}

func TestDoctorSearchService_LoadError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := new(MockDoctorRepository)
	repo.On("ListAvailable", mock.Anything).Return(nil, repoErr)
	svc := services.NewDoctorSearchService(repo, index.NewDoctorIndex(index.ModeMerged),
		services.NewResultCache(newFakeCache(), nil), nil, services.DoctorSearchConfig{})

	_, err := svc.SearchDoctors(context.Background(), "jane", entities.SearchFilters{}, 10)
	assert.ErrorIs(t, err, repoErr)
}

func TestDoctorSearchService_GetSearchSuggestions(t *testing.T) {
	svc, _, _, _ := newSearchService(t, sampleDoctors())
	ctx := context.Background()

	suggestions, err := svc.GetSearchSuggestions(ctx, "card", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiologist"}, suggestions)

	suggestions, err = svc.GetSearchSuggestions(ctx, " ", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	suggestions, err = svc.GetSearchSuggestions(ctx, "qqq", 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestDoctorSearchService_GetSearchSuggestionsKeepsMultibyteWords(t *testing.T) {
	doctors := []*entities.Doctor{
		{ID: "fr1", Name: "Dr. Émile Zola", Speciality: "Neurologist", Experience: "8 Years", Available: true},
	}
	svc, _, _, _ := newSearchService(t, doctors)

	suggestions, err := svc.GetSearchSuggestions(context.Background(), "mi", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Émile"}, suggestions)
	for _, s := range suggestions {
		assert.True(t, utf8.ValidString(s), "suggestion %q is not valid UTF-8", s)
	}
}

func TestDoctorSearchService_FindSimilarDoctors(t *testing.T) {
	doctors := []*entities.Doctor{
		{ID: "a", Name: "Dr. Sam Hill", Speciality: "Cardiologist", Experience: "10 Years", About: "Heart specialist", Available: true},
		{ID: "b", Name: "Dr. Sam Hall", Speciality: "Cardiologist", Experience: "10 Years", About: "Heart specialist", Available: true},
		{ID: "c", Name: "Dr. Zed Orr", Speciality: "Dermatologist", Experience: "2 Years", About: "Skin care", Available: true},
	}
	svc, _, _, _ := newSearchService(t, doctors)
	ctx := context.Background()

	similar, err := svc.FindSimilarDoctors(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "b", similar[0].Doctor.ID)
	assert.Greater(t, similar[0].Similarity, 0.6)

	similar, err = svc.FindSimilarDoctors(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestDoctorSearchService_GetNgramStatisticsBuildsLazily(t *testing.T) {
	svc, repo, _, _ := newSearchService(t, sampleDoctors())

	stats, err := svc.GetNgramStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDoctors)
	assert.Greater(t, stats.TotalNgrams, 0)
	assert.NotEmpty(t, stats.MostCommonNgrams)
	repo.AssertNumberOfCalls(t, "ListAvailable", 1)
}

func TestDoctorSearchService_RebuildIndex(t *testing.T) {
	svc, repo, idx, _ := newSearchService(t, sampleDoctors())
	ctx := context.Background()

	size, err := svc.RebuildIndex(ctx, []*entities.Doctor{{ID: "doc7", Name: "Dr. Who"}})
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	repo.AssertNotCalled(t, "ListAvailable", mock.Anything)

	size, err = svc.RebuildIndex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, size)
	assert.Equal(t, 3, idx.Size())
}
