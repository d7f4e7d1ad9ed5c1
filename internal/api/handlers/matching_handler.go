package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

const maxLimit = 100

// MatchingService defines the engine operations used by the handler.
type MatchingService interface {
	SearchDoctors(ctx context.Context, query string, filters entities.SearchFilters, limit int) ([]*entities.DoctorSearchResult, error)
	GetSearchSuggestions(ctx context.Context, partial string, limit int) ([]string, error)
	FindSimilarDoctors(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarDoctor, error)
	MatchPatientWithDoctors(ctx context.Context, patientID string, symptoms *entities.Symptoms, criteria entities.MatchCriteria, limit int) ([]*entities.MatchResult, error)
	GetSimilarPatients(ctx context.Context, doctorID string, limit int) ([]*entities.SimilarPatient, error)
	GetNgramStatistics(ctx context.Context) (*entities.NgramStatistics, error)
	ClearCache(ctx context.Context) error
	RebuildIndex(ctx context.Context, doctors []*entities.Doctor) (int, error)
}

// MatchingHandler handles doctor search and patient matching requests
type MatchingHandler struct {
	service MatchingService
}

// NewMatchingHandler creates a new matching handler
func NewMatchingHandler(service MatchingService) *MatchingHandler {
	return &MatchingHandler{
		service: service,
	}
}

// SearchDoctors handles GET /api/doctors/search
func (h *MatchingHandler) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters, err := parseSearchFilters(q)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.service.SearchDoctors(r.Context(), q.Get("q"), filters, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// GetSuggestions handles GET /api/doctors/suggestions
func (h *MatchingHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestions, err := h.service.GetSearchSuggestions(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
	})
}

// GetSimilarDoctors handles GET /api/doctors/{id}/similar
func (h *MatchingHandler) GetSimilarDoctors(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	similar, err := h.service.FindSimilarDoctors(r.Context(), doctorID, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": similar,
		"count":   len(similar),
	})
}

// GetSimilarPatients handles GET /api/doctors/{id}/similar-patients
func (h *MatchingHandler) GetSimilarPatients(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	if doctorID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID is required")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	patients, err := h.service.GetSimilarPatients(r.Context(), doctorID, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

type matchRequest struct {
	Symptoms *entities.Symptoms     `json:"symptoms"`
	Criteria entities.MatchCriteria `json:"criteria"`
	Limit    int                    `json:"limit"`
}

// MatchPatient handles POST /api/patients/{id}/matches
func (h *MatchingHandler) MatchPatient(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	var req matchRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	matches, err := h.service.MatchPatientWithDoctors(r.Context(), patientID, req.Symptoms, req.Criteria, req.Limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// GetStatistics handles GET /api/matching/stats
func (h *MatchingHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetNgramStatistics(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// ClearCache handles DELETE /api/matching/cache
func (h *MatchingHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type rebuildRequest struct {
	Doctors []*entities.Doctor `json:"doctors"`
}

// RebuildIndex handles POST /api/matching/index/rebuild
func (h *MatchingHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	size, err := h.service.RebuildIndex(r.Context(), req.Doctors)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	observability.LoggerFromContext(r.Context()).Info().Int("doctors", size).Msg("Doctor index rebuilt on request")
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "rebuilt",
		"indexed_doctors": size,
	})
}

// decodeOptionalBody decodes a JSON body; an empty body leaves v untouched
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, errors.New("limit must be between 1 and 100")
	}
	return limit, nil
}

func parseSearchFilters(q map[string][]string) (entities.SearchFilters, error) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	filters := entities.SearchFilters{Speciality: get("speciality")}

	if raw := get("min_fee"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filters, errors.New("invalid min_fee")
		}
		filters.MinFee = &v
	}
	if raw := get("max_fee"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filters, errors.New("invalid max_fee")
		}
		filters.MaxFee = &v
	}
	if raw := get("min_experience"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filters, errors.New("invalid min_experience")
		}
		filters.MinExperience = &v
	}
	if raw := get("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, errors.New("invalid available")
		}
		filters.Available = &v
	}
	return filters, nil
}
