package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/report"
)

// ReportStore lists and serves generated report files
type ReportStore interface {
	List() ([]models.ReportInfo, error)
	Get(filename string) (*models.ReportInfo, []byte, error)
	Delete(filename string) error
}

// ReportHandler serves the report directory
type ReportHandler struct {
	store  ReportStore
	logger arbor.ILogger
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(store ReportStore, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{store: store, logger: logger}
}

var contentTypes = map[models.ReportFormat]string{
	models.ReportFormatMarkdown: "text/markdown; charset=utf-8",
	models.ReportFormatHTML:     "text/html; charset=utf-8",
	models.ReportFormatJSON:     "application/json",
	models.ReportFormatPDF:      "application/pdf",
}

// ListHandler handles GET /api/reports. Reports are newest first; ?limit=N truncates.
func (h *ReportHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	reports, err := h.store.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list reports")
		WriteError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	total := len(reports)
	if limit := QueryInt(r, "limit", 0); limit > 0 && limit < total {
		reports = reports[:limit]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
		"total":   total,
	})
}

// GetHandler handles GET /api/reports/{filename} and returns the file itself
func (h *ReportHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	info, content, err := h.store.Get(r.PathValue("filename"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	contentType, ok := contentTypes[info.Format]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Content-Disposition", "inline; filename=\""+info.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// DeleteHandler handles DELETE /api/reports/{filename}
func (h *ReportHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := h.store.Delete(filename); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info().Str("filename", filename).Msg("Report deleted")
	WriteSuccess(w, "Report deleted")
}

func (h *ReportHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidFilename):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Report store failure")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
