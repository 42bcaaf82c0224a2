package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta name="report-type" content="%s">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 1200px; margin: 0 auto; padding: 20px; background: #f9f9f9; }
        .container { background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1, h2, h3 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
        th { background-color: #3498db; color: white; }
        .grade { display: inline-block; padding: 4px 12px; border-radius: 4px; border: 1px solid currentColor; }
        .grade-strong-buy { color: #27ae60; font-weight: bold; }
        .grade-buy { color: #2ecc71; font-weight: bold; }
        .grade-hold { color: #f39c12; font-weight: bold; }
        .grade-sell { color: #e74c3c; font-weight: bold; }
        .grade-strong-sell { color: #c0392b; font-weight: bold; }
        .footer { text-align: center; margin-top: 40px; color: #7f8c8d; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
%s
%s
        <div class="footer">
            <p>Generated: %s</p>
        </div>
    </div>
</body>
</html>
`

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// GradeClass returns the CSS class for a grade label, e.g. "Strong Buy" -> "grade-strong-buy"
func GradeClass(grade string) string {
	return "grade-" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(grade)), " ", "-")
}

// renderHTML converts a markdown body into a styled standalone page. A non-empty
// grade adds a colour-coded badge above the content.
func (s *Service) renderHTML(body string, meta frontMatter) ([]byte, error) {
	var content bytes.Buffer
	if err := s.markdown.Convert([]byte(body), &content); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	badge := ""
	if meta.Grade != "" {
		badge = fmt.Sprintf(`        <div class="grade %s">%s</div>`, GradeClass(meta.Grade), html.EscapeString(meta.Grade))
	}

	title := "Value Analysis Report"
	if len(meta.Symbols) > 0 {
		title = strings.Join(meta.Symbols, ", ") + " - " + title
	}

	page := fmt.Sprintf(pageTemplate,
		html.EscapeString(string(meta.ReportType)),
		html.EscapeString(title),
		badge,
		content.String(),
		html.EscapeString(meta.GeneratedAt),
	)
	return []byte(page), nil
}
