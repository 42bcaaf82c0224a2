package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Analysis
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler)             // POST
	mux.HandleFunc("/api/compare", s.app.AnalysisHandler.CompareHandler)             // POST
	mux.HandleFunc("/api/validate/{symbol}", s.app.AnalysisHandler.ValidateHandler) // GET

	// Reports
	mux.HandleFunc("/api/reports", s.app.ReportHandler.ListHandler)
	mux.HandleFunc("GET /api/reports/{filename}", s.app.ReportHandler.GetHandler)
	mux.HandleFunc("DELETE /api/reports/{filename}", s.app.ReportHandler.DeleteHandler)

	// System
	mux.HandleFunc("/api/health", s.app.SystemHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.SystemHandler.VersionHandler)

	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.Redirect(w, r, "/api/health", http.StatusFound)
		return
	}
	http.NotFound(w, r)
}
