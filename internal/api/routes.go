package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxBodyBytes comfortably fits a full bulk batch.
const maxBodyBytes = 1 << 20

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))

	// CORS - public API, any origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", APIKeyHeader},
		MaxAge:         300,
	}))

	// No key required
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/generate-key", h.GenerateKey)

	// Each validation request consumes one unit of quota
	r.Group(func(r chi.Router) {
		r.Use(h.RequireQuota)
		r.Post("/validate", h.Validate)
		r.Post("/validate/bulk", h.ValidateBulk)
	})

	r.With(h.RequireKey).Get("/stats", h.Stats)

	return r
}
