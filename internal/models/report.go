package models

import (
	"fmt"
	"strings"
	"time"
)

// ReportFormat is an output format understood by the report renderer
type ReportFormat string

const (
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatHTML     ReportFormat = "html"
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatPDF      ReportFormat = "pdf"
)

// Extension returns the file extension used for the format
func (f ReportFormat) Extension() string {
	switch f {
	case ReportFormatMarkdown:
		return "md"
	case ReportFormatHTML:
		return "html"
	case ReportFormatJSON:
		return "json"
	case ReportFormatPDF:
		return "pdf"
	default:
		return string(f)
	}
}

// ParseReportFormat accepts a format name or file extension ("md", "markdown", ...)
func ParseReportFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return ReportFormatMarkdown, nil
	case "html", "htm":
		return ReportFormatHTML, nil
	case "json":
		return ReportFormatJSON, nil
	case "pdf":
		return ReportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// ReportKind identifies what a report file covers
type ReportKind string

const (
	ReportKindIndividual ReportKind = "individual"
	ReportKindComparison ReportKind = "comparison"
	ReportKindSummary    ReportKind = "summary"
)

// ReportInfo describes a report file on disk
type ReportInfo struct {
	Filename  string       `json:"filename"`
	Path      string       `json:"filepath"`
	Format    ReportFormat `json:"format"`
	Kind      ReportKind   `json:"report_type,omitempty"`
	Symbols   []string     `json:"symbols,omitempty"`
	Grade     string       `json:"grade,omitempty"`
	Size      int64        `json:"size"`
	PageCount int          `json:"page_count,omitempty"`
	CreatedAt time.Time    `json:"created"`
	UpdatedAt time.Time    `json:"modified"`
}
