package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TMind/SolMDb/internal/api/handlers"
	"github.com/TMind/SolMDb/internal/api/response"
	"github.com/TMind/SolMDb/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		synergyHandler := handlers.NewSynergyHandler(s.analysis.Registry())
		r.Get("/synergies", synergyHandler.GetSynergies)

		analyzeHandler := handlers.NewAnalyzeHandler(s.analysis)
		r.Post("/analyze", analyzeHandler.Analyze)

		metricsHandler := handlers.NewMetricsHandler(s.analysis.Metrics())
		r.Get("/metrics", metricsHandler.GetMetrics)

		if s.store == nil {
			return
		}

		deckHandler := handlers.NewDeckHandler(s.analysis, s.store)
		r.Route("/decks", func(r chi.Router) {
			r.Get("/", deckHandler.GetDecks)
			r.Post("/", deckHandler.CreateDecks)
			r.Get("/{name}", deckHandler.GetDeck)
			r.Delete("/{name}", deckHandler.DeleteDeck)
			r.Post("/{name}/analyze", deckHandler.AnalyzeDeck)
			r.Get("/{name}/analyses", deckHandler.GetAnalyses)
			r.Get("/{name}/analyses/latest", deckHandler.GetLatestAnalysis)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "solmdb-api",
		"version":  version.GetVersion(),
		"rules":    s.analysis.Registry().Len(),
		"database": s.store != nil,
	})
}
