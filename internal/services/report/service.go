// Package report renders analysis results as markdown, HTML, JSON or PDF files and
// manages the report directory.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
)

var (
	// ErrNotFound is returned when a report file does not exist
	ErrNotFound = errors.New("report not found")
	// ErrInvalidFilename is returned for names that could escape the report directory
	ErrInvalidFilename = errors.New("invalid report filename")
)

const timestampLayout = "20060102_150405"

// Service writes and manages report files. Inputs are AnalysisResult plain maps.
type Service struct {
	dir      string
	logger   arbor.ILogger
	markdown goldmark.Markdown
	now      func() time.Time
}

// NewService creates the report directory if needed
func NewService(cfg common.ReportsConfig, logger arbor.ILogger) (*Service, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "./reports"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory %s: %w", dir, err)
	}

	logger.Debug().Str("dir", dir).Msg("Report service initialised")

	return &Service{
		dir:      dir,
		logger:   logger,
		markdown: newMarkdown(),
		now:      time.Now,
	}, nil
}

// Dir returns the report directory
func (s *Service) Dir() string {
	return s.dir
}

// GenerateIndividual writes a single-stock report
func (s *Service) GenerateIndividual(result map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error) {
	now := s.now()
	symbol := toString(result["symbol"])
	meta := frontMatter{
		ReportType:  models.ReportKindIndividual,
		Symbols:     []string{symbol},
		GeneratedAt: now.Format(time.RFC3339),
		Grade:       toString(result["investment_grade"]),
	}

	data := map[string]interface{}{
		"result":       result,
		"generated_at": meta.GeneratedAt,
	}
	payload := map[string]interface{}{
		"report_type":     meta.ReportType,
		"generated_at":    meta.GeneratedAt,
		"analysis_result": result,
		"ai_analysis":     result["detailed_analysis"],
	}

	base := fmt.Sprintf("%s_analysis_%s", safeName(symbol), now.Format(timestampLayout))
	return s.write(base, format, individualTmpl, data, payload, meta)
}

// GenerateComparison writes a side-by-side report for several results
func (s *Service) GenerateComparison(results []map[string]interface{}, narrative string, format models.ReportFormat) (*models.ReportInfo, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("comparison report needs at least one result")
	}

	now := s.now()
	symbols := symbolsOf(results)
	meta := frontMatter{
		ReportType:  models.ReportKindComparison,
		Symbols:     symbols,
		GeneratedAt: now.Format(time.RFC3339),
	}

	data := map[string]interface{}{
		"results":      results,
		"symbols":      symbols,
		"narrative":    narrative,
		"generated_at": meta.GeneratedAt,
	}
	payload := map[string]interface{}{
		"report_type":      meta.ReportType,
		"generated_at":     meta.GeneratedAt,
		"symbols":          symbols,
		"analysis_results": results,
		"ai_analysis":      narrative,
	}

	safe := make([]string, len(symbols))
	for i, sym := range symbols {
		safe[i] = safeName(sym)
	}
	base := fmt.Sprintf("comparison_%s_%s", strings.Join(safe, "_vs_"), now.Format(timestampLayout))
	return s.write(base, format, comparisonTmpl, data, payload, meta)
}

// GenerateSummary writes a portfolio summary with aggregate statistics. extra is
// rendered as run details.
func (s *Service) GenerateSummary(results []map[string]interface{}, extra map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error) {
	if extra == nil {
		extra = map[string]interface{}{}
	}

	now := s.now()
	stats := ComputeSummaryStats(results)
	meta := frontMatter{
		ReportType:  models.ReportKindSummary,
		Symbols:     symbolsOf(results),
		GeneratedAt: now.Format(time.RFC3339),
	}

	data := map[string]interface{}{
		"results":      results,
		"stats":        stats,
		"grades":       stats.orderedGrades(),
		"extra":        extra,
		"generated_at": meta.GeneratedAt,
	}
	payload := map[string]interface{}{
		"report_type":      meta.ReportType,
		"generated_at":     meta.GeneratedAt,
		"analysis_results": results,
		"summary_stats":    stats,
		"additional_info":  extra,
	}

	base := "summary_report_" + now.Format(timestampLayout)
	return s.write(base, format, summaryTmpl, data, payload, meta)
}

func (s *Service) write(base string, format models.ReportFormat, tmpl *template.Template, data, payload map[string]interface{}, meta frontMatter) (*models.ReportInfo, error) {
	content, err := s.render(format, tmpl, data, payload, meta)
	if err != nil {
		return nil, err
	}

	path := s.uniquePath(base, format.Extension())
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report %s: %w", path, err)
	}

	s.logger.Info().
		Str("file", filepath.Base(path)).
		Str("format", string(format)).
		Str("type", string(meta.ReportType)).
		Int("bytes", len(content)).
		Msg("Report written")

	return s.describe(path)
}

func (s *Service) render(format models.ReportFormat, tmpl *template.Template, data, payload map[string]interface{}, meta frontMatter) ([]byte, error) {
	if format == models.ReportFormatJSON {
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return out, nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render %s template: %w", tmpl.Name(), err)
	}

	switch format {
	case models.ReportFormatMarkdown:
		out, err := withFrontMatter(meta, body.String())
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case models.ReportFormatHTML:
		return s.renderHTML(body.String(), meta)
	case models.ReportFormatPDF:
		return s.renderPDF(body.String(), strings.Join(meta.Symbols, ", "))
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// uniquePath appends a counter when a report with the same name already exists
func (s *Service) uniquePath(base, ext string) string {
	path := filepath.Join(s.dir, base+"."+ext)
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d.%s", base, i, ext))
	}
}

// List returns report files, newest first
func (s *Service) List() ([]models.ReportInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	reports := make([]models.ReportInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || formatOf(entry.Name()) == "" {
			continue
		}
		info, err := s.describe(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable report")
			continue
		}
		reports = append(reports, *info)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].UpdatedAt.Equal(reports[j].UpdatedAt) {
			return reports[i].Filename > reports[j].Filename
		}
		return reports[i].UpdatedAt.After(reports[j].UpdatedAt)
	})

	return reports, nil
}

// Get returns a report's metadata and raw content
func (s *Service) Get(filename string) (*models.ReportInfo, []byte, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read report: %w", err)
	}

	info, err := s.describe(path)
	if err != nil {
		return nil, nil, err
	}
	return info, content, nil
}

// Delete removes a report file
func (s *Service) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}

	s.logger.Info().Str("file", filename).Msg("Report deleted")
	return nil
}

// resolve maps a bare filename into the report directory, rejecting anything
// that is not a plain report name.
func (s *Service) resolve(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filename), nil
}

// ValidateFilename accepts only bare report names with a known extension
func ValidateFilename(filename string) error {
	if filename == "" ||
		filename != filepath.Base(filename) ||
		strings.ContainsAny(filename, `/\`) ||
		strings.HasPrefix(filename, ".") ||
		strings.Contains(filename, "..") ||
		formatOf(filename) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}

// describe stats a report file and fills metadata from its name, its front
// matter (markdown) or its page count (PDF).
func (s *Service) describe(path string) (*models.ReportInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	name := filepath.Base(path)
	info := &models.ReportInfo{
		Filename:  name,
		Path:      path,
		Format:    formatOf(name),
		Size:      stat.Size(),
		CreatedAt: stat.ModTime(),
		UpdatedAt: stat.ModTime(),
	}
	info.Kind, info.Symbols = parseFilename(name)

	switch info.Format {
	case models.ReportFormatMarkdown:
		if content, err := os.ReadFile(path); err == nil {
			if meta, _, ok := splitFrontMatter(content); ok {
				info.Kind = meta.ReportType
				info.Symbols = meta.Symbols
				info.Grade = meta.Grade
				if t, err := time.Parse(time.RFC3339, meta.GeneratedAt); err == nil {
					info.CreatedAt = t
				}
			}
		}
	case models.ReportFormatPDF:
		if ctx, err := api.ReadContextFile(path); err == nil {
			info.PageCount = ctx.PageCount
		} else {
			s.logger.Debug().Err(err).Str("file", name).Msg("Could not read PDF page count")
		}
	}

	return info, nil
}

func formatOf(filename string) models.ReportFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md":
		return models.ReportFormatMarkdown
	case ".html":
		return models.ReportFormatHTML
	case ".json":
		return models.ReportFormatJSON
	case ".pdf":
		return models.ReportFormatPDF
	default:
		return ""
	}
}

// parseFilename recovers report type and symbols from the naming scheme
func parseFilename(filename string) (models.ReportKind, []string) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	switch {
	case strings.HasPrefix(stem, "summary_report_"):
		return models.ReportKindSummary, nil
	case strings.HasPrefix(stem, "comparison_"):
		rest := strings.TrimPrefix(stem, "comparison_")
		if strings.Contains(rest, "_vs_") {
			// trailing _{date}_{time}
			if parts := strings.Split(rest, "_"); len(parts) > 2 {
				rest = strings.Join(parts[:len(parts)-2], "_")
			}
			return models.ReportKindComparison, strings.Split(rest, "_vs_")
		}
		return models.ReportKindComparison, nil
	case strings.Contains(stem, "_analysis_"):
		return models.ReportKindIndividual, []string{stem[:strings.Index(stem, "_analysis_")]}
	default:
		return "", nil
	}
}

func symbolsOf(results []map[string]interface{}) []string {
	symbols := make([]string, 0, len(results))
	for _, r := range results {
		symbols = append(symbols, toString(r["symbol"]))
	}
	return symbols
}

// safeName keeps symbol characters that are safe in a filename
func safeName(symbol string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(symbol) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "UNKNOWN"
	}
	return b.String()
}
