package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/app"
	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/handlers"
	"github.com/ternarybob/valuator/internal/services/report"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	cfg.Reports.Dir = t.TempDir()

	reports, err := report.NewService(cfg.Reports, logger)
	require.NoError(t, err)

	return New(&app.App{
		Config:          cfg,
		Logger:          logger,
		AnalysisHandler: handlers.NewAnalysisHandler(nil, reports, "basic", false, logger),
		ReportHandler:   handlers.NewReportHandler(reports, logger),
		SystemHandler:   handlers.NewSystemHandler(),
	})
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/version", http.StatusOK},
		{http.MethodGet, "/api/reports", http.StatusOK},
		{http.MethodGet, "/api/reports/missing_analysis_20250101_000000.md", http.StatusNotFound},
		{http.MethodDelete, "/api/reports/notes.txt", http.StatusBadRequest},
		{http.MethodPost, "/api/analyze", http.StatusBadRequest},
		{http.MethodGet, "/api/analyze", http.StatusMethodNotAllowed},
		{http.MethodGet, "/", http.StatusFound},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "caller-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "caller-123", rec.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t)

	var seen string
	handler := s.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
