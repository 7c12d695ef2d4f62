package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/Household-Ledger-Backend/internal/api"
	"github.com/ndewijer/Household-Ledger-Backend/internal/config"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
	"github.com/ndewijer/Household-Ledger-Backend/internal/testutil"
)

// TestNewRouter tests route registration.
//
// WHY: Handlers are unit tested directly; this checks they are mounted at the
// documented paths with UUID validation in front of the run lookup.
func TestNewRouter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log, _ := testutil.NewTestLogger(t)
	cfg := &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}}
	router := api.NewRouter(
		testutil.NewTestSystemService(t, db),
		testutil.NewTestPipelineService(t, db, service.StaticLoader{}, ""),
		cfg,
		log,
	)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/api/system/health", http.StatusOK},
		{"version", http.MethodGet, "/api/system/version", http.StatusOK},
		{"list runs", http.MethodGet, "/api/runs", http.StatusOK},
		{"invalid run id", http.MethodGet, "/api/runs/not-a-uuid", http.StatusBadRequest},
		{"unknown run", http.MethodGet, "/api/runs/" + testutil.MakeID(), http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/ledger", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log, _ := testutil.NewTestLogger(t)
	cfg := &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}}}
	router := api.NewRouter(
		testutil.NewTestSystemService(t, db),
		testutil.NewTestPipelineService(t, db, service.StaticLoader{}, ""),
		cfg,
		log,
	)

	req := httptest.NewRequest(http.MethodOptions, "/api/runs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/runs", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
