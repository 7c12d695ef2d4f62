package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
)

// CORS allows the configured origins to read run state and trigger runs.
// The request ID header is exposed so dashboards can correlate server logs.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
