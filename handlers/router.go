package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is everything the HTTP surface needs from persistence
type Store interface {
	StationRepository
	LineRepository
	SectionRepository
	HealthChecker
}

// NewRouter wires every endpoint onto a chi router
func NewRouter(store Store, allowedOrigins []string) chi.Router {
	stationHandler := NewStationHandler(store)
	lineHandler := NewLineHandler(store)
	sectionHandler := NewSectionHandler(store)
	healthHandler := NewHealthHandler(store)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.GetHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/stations", func(r chi.Router) {
		r.Post("/", stationHandler.CreateStation)
		r.Get("/", stationHandler.GetAllStations)
		r.Delete("/{stationId}", stationHandler.DeleteStation)
	})

	r.Route("/lines", func(r chi.Router) {
		r.Post("/", lineHandler.CreateLine)
		r.Get("/", lineHandler.GetAllLines)

		r.Route("/{lineId}", func(r chi.Router) {
			r.Get("/", lineHandler.GetLine)
			r.Put("/", lineHandler.UpdateLine)
			r.Delete("/", lineHandler.DeleteLine)
			r.Get("/stats", lineHandler.GetLineStats)

			r.Post("/sections", sectionHandler.AddSection)
			r.Delete("/sections", sectionHandler.RemoveStation)
		})
	})

	return r
}
