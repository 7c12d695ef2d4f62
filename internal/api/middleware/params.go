// Package middleware holds the operator API's chi middleware.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api/response"
	"github.com/ndewijer/Household-Ledger-Backend/internal/validation"
)

// RequireUUID rejects requests whose URL parameter param is missing or not a
// UUID with 400 Bad Request.
//
//	r.With(middleware.RequireUUID("uuid")).Get("/{uuid}", runHandler.Run)
func RequireUUID(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if id == "" {
				response.Error(w, http.StatusBadRequest, param+" is required", nil)
				return
			}
			if err := validation.ValidateUUID(id); err != nil {
				response.Error(w, http.StatusBadRequest, "invalid "+param, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
