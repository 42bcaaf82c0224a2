package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pdfFont       = "Arial"
	pdfBodySize   = 9.0
	pdfLineHeight = 5.0
	pdfPageWidth  = 190.0 // A4 minus 10mm margins
	pdfPageBottom = 287.0
)

// renderPDF lays out a markdown body on A4 pages by walking the goldmark AST
func (s *Service) renderPDF(body, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetCreator("valuator", true)
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.AddPage()
	doc.SetFont(pdfFont, "", pdfBodySize)

	source := []byte(body)
	root := s.markdown.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		pdf:    doc,
		source: source,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(root, w.visit); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) applyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(pdfFont, style, pdfBodySize)
}

func (w *pdfWriter) write(s string) {
	w.pdf.Write(pdfLineHeight, w.tr(s))
}

func (w *pdfWriter) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.pdf.Ln(5)
		if entering {
			sizes := map[int]float64{1: 14, 2: 12, 3: 11}
			size, ok := sizes[node.Level]
			if !ok {
				size = 10
			}
			w.pdf.SetFont(pdfFont, "B", size)
		} else {
			w.applyFont()
		}
	case *ast.Paragraph:
		if !entering && w.listDepth == 0 {
			w.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() {
				w.write(" ")
			}
			if node.HardLineBreak() {
				w.pdf.Ln(pdfLineHeight)
			}
		}
	case *ast.String:
		if entering {
			w.write(string(node.Value))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyFont()
	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", pdfBodySize)
			w.write(string(node.Text(w.source)))
			w.applyFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.codeBlock(n.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(7)
			}
		}
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(pdfLineHeight)
			w.pdf.SetX(12 + float64(w.listDepth)*5)
			w.write("- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			y := w.pdf.GetY()
			w.pdf.SetDrawColor(200, 200, 200)
			w.pdf.Line(10, y, 10+pdfPageWidth, y)
			w.pdf.SetDrawColor(0, 0, 0)
			w.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			w.table(w.tableRows(node))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", pdfBodySize)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		w.pdf.MultiCell(0, pdfLineHeight, w.tr(strings.TrimRight(string(line.Value(w.source)), "\n")), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.applyFont()
	w.pdf.Ln(2)
}

func (w *pdfWriter) tableRows(table *extast.Table) [][]string {
	var rows [][]string
	var collect func(ast.Node)
	collect = func(parent ast.Node) {
		for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var row []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					row = append(row, strings.TrimSpace(string(cell.Text(w.source))))
				}
				rows = append(rows, row)
			}
		}
	}
	collect(table)
	return rows
}

// table draws rows as a bordered grid; the first row is the header. Columns are
// sized to content and scaled to the page width.
func (w *pdfWriter) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	const fontSize, lineHeight = 8.0, 5.0
	cols := len(rows[0])

	w.pdf.SetFont(pdfFont, "B", fontSize)
	widths := make([]float64, cols)
	total := 0.0
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			if width := w.pdf.GetStringWidth(w.tr(row[j])) + 4; width > widths[j] {
				widths[j] = width
			}
		}
	}
	for j := range widths {
		if widths[j] < 15 {
			widths[j] = 15
		}
		total += widths[j]
	}
	if total > pdfPageWidth {
		for j := range widths {
			widths[j] *= pdfPageWidth / total
		}
	}

	w.pdf.Ln(2)
	for i, row := range rows {
		if w.pdf.GetY()+lineHeight > pdfPageBottom {
			w.pdf.AddPage()
		}
		style, fill := "", false
		if i == 0 {
			style, fill = "B", true
			w.pdf.SetFillColor(230, 230, 230)
		}
		w.pdf.SetFont(pdfFont, style, fontSize)
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = w.tr(row[j])
			}
			for len(cell) > 1 && w.pdf.GetStringWidth(cell) > widths[j]-2 {
				cell = cell[:len(cell)-1]
			}
			w.pdf.CellFormat(widths[j], lineHeight+1, cell, "1", 0, "L", fill, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.applyFont()
	w.pdf.Ln(3)
}
