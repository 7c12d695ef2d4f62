package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Household-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router of the operator API.
func NewRouter(
	systemService *service.SystemService,
	pipelineService *service.PipelineService,
	cfg *config.Config,
	log logrus.FieldLogger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	r.Use(custommiddleware.CORS(cfg.CORS))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/runs", func(r chi.Router) {
			runHandler := handlers.NewRunHandler(pipelineService)
			r.Get("/", runHandler.Runs)
			r.Post("/", runHandler.Trigger)
			r.With(custommiddleware.RequireUUID("uuid")).Get("/{uuid}", runHandler.Run)
		})
	})

	return r
}
