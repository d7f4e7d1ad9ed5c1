package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctordirectory/backend/internal/api/handlers"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

type mockMatchingService struct {
	mock.Mock
}

func (m *mockMatchingService) SearchDoctors(ctx context.Context, query string, filters entities.SearchFilters, limit int) ([]*entities.DoctorSearchResult, error) {
	args := m.Called(ctx, query, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DoctorSearchResult), args.Error(1)
}

func (m *mockMatchingService) GetSearchSuggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	args := m.Called(ctx, partial, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMatchingService) FindSimilarDoctors(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarDoctor, error) {
	args := m.Called(ctx, doctorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SimilarDoctor), args.Error(1)
}

func (m *mockMatchingService) MatchPatientWithDoctors(ctx context.Context, patientID string, symptoms *entities.Symptoms, criteria entities.MatchCriteria, limit int) ([]*entities.MatchResult, error) {
	args := m.Called(ctx, patientID, symptoms, criteria, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MatchResult), args.Error(1)
}

func (m *mockMatchingService) GetSimilarPatients(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarPatient, error) {
	args := m.Called(ctx, doctorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SimilarPatient), args.Error(1)
}

func (m *mockMatchingService) GetNgramStatistics(ctx context.Context) (*entities.NgramStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.NgramStatistics), args.Error(1)
}

func (m *mockMatchingService) ClearCache(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockMatchingService) RebuildIndex(ctx context.Context, doctors []*entities.Doctor) (int, error) {
	args := m.Called(ctx, doctors)
	return args.Int(0), args.Error(1)
}

func TestMatchingHandler_SearchDoctors(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	minExp := 5
	available := true
	expectedFilters := entities.SearchFilters{Speciality: "cardio", MinExperience: &minExp, Available: &available}
	service.On("SearchDoctors", mock.Anything, "jane", expectedFilters, 5).Return([]*entities.DoctorSearchResult{
		{Doctor: &entities.Doctor{ID: "doc1", Name: "Dr. Jane Doe"}, Score: 0.8, MatchReasons: []string{"Name matches your search"}},
	}, nil)

	req := httptest.NewRequest("GET", "/api/doctors/search?q=jane&speciality=cardio&min_experience=5&available=true&limit=5", nil)
	w := httptest.NewRecorder()

	handler.SearchDoctors(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Results []entities.DoctorSearchResult `json:"results"`
		Count   int                           `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "doc1", response.Results[0].Doctor.ID)
	service.AssertExpectations(t)
}

func TestMatchingHandler_SearchDoctorsInvalidParams(t *testing.T) {
	handler := handlers.NewMatchingHandler(new(mockMatchingService))

	for _, target := range []string{
		"/api/doctors/search?q=a&limit=0",
		"/api/doctors/search?q=a&limit=abc",
		"/api/doctors/search?q=a&min_fee=cheap",
		"/api/doctors/search?q=a&available=maybe",
	} {
		w := httptest.NewRecorder()
		handler.SearchDoctors(w, httptest.NewRequest("GET", target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestMatchingHandler_SearchDoctorsUpstreamFailure(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("SearchDoctors", mock.Anything, "x", entities.SearchFilters{}, 0).
		Return(nil, apperrors.NewExternalError("doctor directory unavailable", errors.New("timeout")))

	w := httptest.NewRecorder()
	handler.SearchDoctors(w, httptest.NewRequest("GET", "/api/doctors/search?q=x", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestMatchingHandler_GetSuggestions(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("GetSearchSuggestions", mock.Anything, "car", 0).Return([]string{"Cardiologist"}, nil)

	w := httptest.NewRecorder()
	handler.GetSuggestions(w, httptest.NewRequest("GET", "/api/doctors/suggestions?q=car", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cardiologist")
}

func TestMatchingHandler_GetSimilarDoctors(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("FindSimilarDoctors", mock.Anything, "doc1", 3).Return([]*entities.SimilarDoctor{}, nil)

	req := httptest.NewRequest("GET", "/api/doctors/doc1/similar?limit=3", nil)
	req.SetPathValue("id", "doc1")
	w := httptest.NewRecorder()

	handler.GetSimilarDoctors(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"doctors":[],"count":0}`, w.Body.String())
}

func TestMatchingHandler_GetSimilarPatients(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("GetSimilarPatients", mock.Anything, "doc1", 0).Return([]*entities.SimilarPatient{
		{PatientID: "p1", AppointmentCount: 5, SimilarityScore: 0.65},
	}, nil)

	req := httptest.NewRequest("GET", "/api/doctors/doc1/similar-patients", nil)
	req.SetPathValue("id", "doc1")
	w := httptest.NewRecorder()

	handler.GetSimilarPatients(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"patient_id":"p1"`)
}

func TestMatchingHandler_MatchPatient(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	symptoms := &entities.Symptoms{Primary: "chest pain"}
	criteria := entities.MatchCriteria{Urgency: "emergency"}
	service.On("MatchPatientWithDoctors", mock.Anything, "p1", symptoms, criteria, 3).Return([]*entities.MatchResult{
		{Doctor: &entities.Doctor{ID: "doc1"}, Score: 0.9, RecommendedReason: "Best speciality match for your needs"},
	}, nil)

	body := `{"symptoms":{"primary":"chest pain"},"criteria":{"urgency":"emergency"},"limit":3}`
	req := httptest.NewRequest("POST", "/api/patients/p1/matches", strings.NewReader(body))
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.MatchPatient(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Best speciality match")
	service.AssertExpectations(t)
}

func TestMatchingHandler_MatchPatientNotFound(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("MatchPatientWithDoctors", mock.Anything, "ghost", (*entities.Symptoms)(nil), entities.MatchCriteria{}, 0).
		Return(nil, apperrors.NewNotFoundError("patient ghost not found"))

	req := httptest.NewRequest("POST", "/api/patients/ghost/matches", nil)
	req.SetPathValue("id", "ghost")
	w := httptest.NewRecorder()

	handler.MatchPatient(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "patient ghost not found")
}

func TestMatchingHandler_MatchPatientBadBody(t *testing.T) {
	handler := handlers.NewMatchingHandler(new(mockMatchingService))

	req := httptest.NewRequest("POST", "/api/patients/p1/matches", strings.NewReader(`{"symptoms":`))
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.MatchPatient(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchingHandler_GetStatistics(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("GetNgramStatistics", mock.Anything).Return(&entities.NgramStatistics{
		TotalDoctors:      3,
		TotalNgrams:       120,
		NgramDistribution: map[int]int{1: 100, 2: 15, 3: 5},
		MostCommonNgrams:  []entities.NgramCount{{Ngram: "dr", Doctors: 3}},
	}, nil)

	w := httptest.NewRecorder()
	handler.GetStatistics(w, httptest.NewRequest("GET", "/api/matching/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var stats entities.NgramStatistics
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TotalDoctors)
	assert.Equal(t, 5, stats.NgramDistribution[3])
}

func TestMatchingHandler_ClearCache(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("ClearCache", mock.Anything).Return(nil).Once()

	w := httptest.NewRecorder()
	handler.ClearCache(w, httptest.NewRequest("DELETE", "/api/matching/cache", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestMatchingHandler_RebuildIndex(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("RebuildIndex", mock.Anything, []*entities.Doctor(nil)).Return(42, nil)

	w := httptest.NewRecorder()
	handler.RebuildIndex(w, httptest.NewRequest("POST", "/api/matching/index/rebuild", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"rebuilt","indexed_doctors":42}`, w.Body.String())
}

func TestMatchingHandler_RebuildIndexWithDoctors(t *testing.T) {
	service := new(mockMatchingService)
	handler := handlers.NewMatchingHandler(service)

	service.On("RebuildIndex", mock.Anything, mock.MatchedBy(func(doctors []*entities.Doctor) bool {
		return len(doctors) == 1 && doctors[0].ID == "doc7"
	})).Return(1, nil)

	body := `{"doctors":[{"id":"doc7","name":"Dr. Who","speciality":"Neurologist","available":true}]}`
	w := httptest.NewRecorder()
	handler.RebuildIndex(w, httptest.NewRequest("POST", "/api/matching/index/rebuild", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}
