package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/llm"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

// AnalysisService is the analysis pipeline used by the API
type AnalysisService interface {
	AnalyzeSymbol(ctx context.Context, symbol string, opts analysis.Options) (*valuation.AnalysisResult, error)
	Compare(ctx context.Context, symbols []string, opts analysis.Options) (*analysis.Comparison, error)
	Validate(ctx context.Context, symbol string) (bool, []string)
}

// ReportGenerator writes report files for API results
type ReportGenerator interface {
	GenerateIndividual(result map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error)
	GenerateComparison(results []map[string]interface{}, narrative string, format models.ReportFormat) (*models.ReportInfo, error)
}

// AnalysisHandler serves analyse, compare and validate requests
type AnalysisHandler struct {
	service      AnalysisService
	reports      ReportGenerator
	logger       arbor.ILogger
	defaultDepth llm.Depth
	narrative    bool
}

// NewAnalysisHandler creates an AnalysisHandler. narrative enables provider-written
// analyses; defaultDepth applies when a request omits depth.
func NewAnalysisHandler(service AnalysisService, reports ReportGenerator, defaultDepth string, narrative bool, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		reports:      reports,
		logger:       logger,
		defaultDepth: llm.ParseDepth(defaultDepth),
		narrative:    narrative,
	}
}

type analyzeRequest struct {
	Symbol string `json:"symbol" validate:"required,max=32"`
	Depth  string `json:"depth" validate:"omitempty,oneof=basic detailed comprehensive"`
	Format string `json:"format" validate:"omitempty,oneof=markdown md html json pdf"`
}

type compareRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=2,max=5,dive,required,max=32"`
	Depth   string   `json:"depth" validate:"omitempty,oneof=basic detailed comprehensive"`
	Format  string   `json:"format" validate:"omitempty,oneof=markdown md html json pdf"`
}

func (h *AnalysisHandler) options(depth string) analysis.Options {
	d := h.defaultDepth
	if depth != "" {
		d = llm.ParseDepth(depth)
	}
	return analysis.Options{Depth: d, Narrative: h.narrative}
}

// AnalyzeHandler handles POST /api/analyze
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if err := DecodeRequest(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.AnalyzeSymbol(r.Context(), req.Symbol, h.options(req.Depth))
	if err != nil {
		h.writeAnalysisError(w, req.Symbol, err)
		return
	}

	response := result.ToPlainMap()
	response["success"] = true

	if req.Format != "" {
		format, _ := models.ParseReportFormat(req.Format)
		info, err := h.reports.GenerateIndividual(result.ToPlainMap(), format)
		if err != nil {
			h.logger.Error().Err(err).Str("symbol", result.Symbol).Msg("Failed to write report")
			WriteError(w, http.StatusInternalServerError, "Failed to write report: "+err.Error())
			return
		}
		response["report"] = info
	}

	WriteJSON(w, http.StatusOK, response)
}

// CompareHandler handles POST /api/compare
func (h *AnalysisHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req compareRequest
	if err := DecodeRequest(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparison, err := h.service.Compare(r.Context(), req.Symbols, h.options(req.Depth))
	if err != nil {
		h.writeAnalysisError(w, "", err)
		return
	}

	results := comparison.PlainResults()
	symbols := make([]string, 0, len(results))
	for _, res := range comparison.Results {
		symbols = append(symbols, res.Symbol)
	}

	response := map[string]interface{}{
		"success":             true,
		"run_id":              comparison.RunID,
		"symbols":             symbols,
		"results":             results,
		"failures":            comparison.Failures,
		"comparison_analysis": comparison.Narrative,
		"analysis_date":       time.Now().Format(time.RFC3339),
	}

	if req.Format != "" {
		format, _ := models.ParseReportFormat(req.Format)
		info, err := h.reports.GenerateComparison(results, comparison.Narrative, format)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to write comparison report")
			WriteError(w, http.StatusInternalServerError, "Failed to write report: "+err.Error())
			return
		}
		response["report"] = info
	}

	WriteJSON(w, http.StatusOK, response)
}

// ValidateHandler handles GET /api/validate/{symbol}
func (h *AnalysisHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := r.PathValue("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	valid, suggestions := h.service.Validate(r.Context(), symbol)
	if suggestions == nil {
		suggestions = []string{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":       valid,
		"symbol":      models.NormalizeSymbol(symbol),
		"suggestions": suggestions,
	})
}

// writeAnalysisError maps pipeline errors onto status codes
func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, symbol string, err error) {
	switch {
	case analysis.IsUnknownSymbol(err):
		WriteError(w, http.StatusBadRequest, "Invalid symbol: "+models.NormalizeSymbol(symbol))
	case errors.Is(err, analysis.ErrTooManySymbols), errors.Is(err, analysis.ErrTooFewSymbols):
		WriteError(w, http.StatusBadRequest, err.Error())
	case valuation.IsDataUnavailable(err):
		WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
		WriteError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
	}
}
