package report

import (
	"fmt"
	"math"
	"strings"
	"text/template"
)

const disclaimer = "*This report was generated by an automated valuation system and is provided for reference only. It is not investment advice.*"

const individualTemplate = `# {{ .result.company_name }} ({{ .result.symbol }}) Value Analysis

**Generated:** {{ .generated_at }}  
**Investment grade:** {{ .result.investment_grade }}  
**Confidence:** {{ fixed .result.confidence_score 1 }}%  

---

## Overview

| Item | Value |
|------|-------|
| Current price | ${{ fixed .result.current_price 2 }} |
| Target price | ${{ fixed .result.target_price 2 }} |
| Upside potential | {{ fixed .result.upside_potential 1 }}% |
| Sector | {{ or .result.sector "Unknown" }} |

---

## Key Metrics

| Metric | Value |
|--------|-------|
| PE | {{ fixed .result.value_metrics.pe_ratio 2 }} |
| PB | {{ fixed .result.value_metrics.pb_ratio 2 }} |
| PEG | {{ fixed .result.value_metrics.peg_ratio 2 }} |
| ROE | {{ percent .result.value_metrics.roe 2 }}% |
| ROA | {{ percent .result.value_metrics.roa 2 }}% |
| Debt/Equity | {{ fixed .result.value_metrics.debt_to_equity 2 }} |
| Dividend yield | {{ percent .result.value_metrics.dividend_yield 2 }}% |
| Revenue growth | {{ fixed .result.value_metrics.revenue_growth 1 }}% |
| Net income growth | {{ fixed .result.value_metrics.income_growth 1 }}% |

---

## Strengths
{{ bullets .result.key_strengths }}

---

## Weaknesses
{{ bullets .result.key_weaknesses }}

---

## Risks
{{ bullets .result.risks }}

---

## Analysis

{{ .result.detailed_analysis }}

---

## Investment Opinion

**Grade:** {{ .result.investment_grade }}  
**Target price:** ${{ fixed .result.target_price 2 }}  
**Upside potential:** {{ fixed .result.upside_potential 1 }}%  
{{ with .result.grade_rationale }}**Rationale:** {{ . }}  
{{ end }}
---

` + disclaimer + "\n"

const comparisonTemplate = `# Stock Comparison Report

**Generated:** {{ .generated_at }}  
**Symbols:** {{ join .symbols ", " }}  

---

## Summary

| Symbol | Grade | Price | Target | Upside | PE | PB | ROE |
|--------|-------|-------|--------|--------|----|----|-----|
{{- range .results }}
| {{ .symbol }} | {{ .investment_grade }} | ${{ fixed .current_price 2 }} | ${{ fixed .target_price 2 }} | {{ fixed .upside_potential 1 }}% | {{ fixed .value_metrics.pe_ratio 1 }} | {{ fixed .value_metrics.pb_ratio 1 }} | {{ percent .value_metrics.roe 1 }}% |
{{- end }}

---

## Detail
{{ range .results }}
### {{ .symbol }} - {{ .company_name }}

**Grade:** {{ .investment_grade }}  
**Upside potential:** {{ fixed .upside_potential 1 }}%  

**Strengths:**
{{ bullets .key_strengths }}

**Weaknesses:**
{{ bullets .key_weaknesses }}

---
{{ end }}
## Comparative Analysis

{{ .narrative }}

---

` + disclaimer + "\n"

const summaryTemplate = `# Portfolio Summary Report

**Generated:** {{ .generated_at }}  
**Stocks analysed:** {{ .stats.TotalStocks }}  

---

## Grade Distribution
{{ range .grades }}
- {{ .Grade }}: {{ .Count }}
{{- end }}

---

## Average Metrics

| Metric | Average |
|--------|---------|
| PE | {{ fixed .stats.AvgPERatio 2 }} |
| PB | {{ fixed .stats.AvgPBRatio 2 }} |
| ROE | {{ percent .stats.AvgROE 2 }}% |
| Upside potential | {{ fixed .stats.AvgUpsidePotential 1 }}% |

---

## Highest Upside

**{{ .stats.BestPerformer }}**

## Lowest Upside

**{{ .stats.WorstPerformer }}**
{{- if .extra }}

---

## Run Details
{{ range $key, $value := .extra }}
- {{ $key }}: {{ $value }}
{{- end }}
{{- end }}

---

## All Stocks
{{ range .results }}
### {{ .symbol }} - {{ .company_name }}
- **Grade:** {{ .investment_grade }}
- **Upside potential:** {{ fixed .upside_potential 1 }}%
- **PE:** {{ fixed .value_metrics.pe_ratio 1 }}
- **ROE:** {{ percent .value_metrics.roe 1 }}%
{{ end }}
---

` + disclaimer + "\n"

var templateFuncs = template.FuncMap{
	"fixed":   fixed,
	"percent": percent,
	"bullets": bullets,
	"join":    joinStrings,
}

var (
	individualTmpl = template.Must(template.New("individual").Funcs(templateFuncs).Parse(individualTemplate))
	comparisonTmpl = template.Must(template.New("comparison").Funcs(templateFuncs).Parse(comparisonTemplate))
	summaryTmpl    = template.Must(template.New("summary").Funcs(templateFuncs).Parse(summaryTemplate))
)

// fixed formats a numeric plain-map value with the given decimals; missing values print as 0
func fixed(v interface{}, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, toFloat(v))
}

// percent formats a fraction as a percentage number (0.153 -> 15.3)
func percent(v interface{}, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, toFloat(v)*100)
}

func bullets(v interface{}) string {
	items := toStrings(v)
	if len(items) == 0 {
		return "\n- None identified"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
	return b.String()
}

func joinStrings(v interface{}, sep string) string {
	return strings.Join(toStrings(v), sep)
}

func toFloat(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toStrings(v interface{}) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
