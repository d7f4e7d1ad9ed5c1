package routes

import (
	"net/http"

	"github.com/zatekoja/doctordirectory/backend/internal/api/handlers"
	"github.com/zatekoja/doctordirectory/backend/internal/api/middleware"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux             *http.ServeMux
	matchingHandler *handlers.MatchingHandler
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router. No allowed origins means any origin.
func NewRouter(matchingHandler *handlers.MatchingHandler, metrics *observability.Metrics, allowedOrigins []string) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		matchingHandler: matchingHandler,
		metrics:         metrics,
		allowedOrigins:  allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Doctor search
	r.mux.HandleFunc("GET /api/doctors/search", r.matchingHandler.SearchDoctors)
	r.mux.HandleFunc("GET /api/doctors/suggestions", r.matchingHandler.GetSuggestions)
	r.mux.HandleFunc("GET /api/doctors/{id}/similar", r.matchingHandler.GetSimilarDoctors)
	r.mux.HandleFunc("GET /api/doctors/{id}/similar-patients", r.matchingHandler.GetSimilarPatients)

	// Patient matching
	r.mux.HandleFunc("POST /api/patients/{id}/matches", r.matchingHandler.MatchPatient)

	// Index administration
	r.mux.HandleFunc("GET /api/matching/stats", r.matchingHandler.GetStatistics)
	r.mux.HandleFunc("DELETE /api/matching/cache", r.matchingHandler.ClearCache)
	r.mux.HandleFunc("POST /api/matching/index/rebuild", r.matchingHandler.RebuildIndex)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflight requests short-circuit early
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}
