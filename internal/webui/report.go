package webui

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/history"
)

// ReportMarkdown renders one history entry as a markdown report.
func ReportMarkdown(e history.Entry) string {
	var b strings.Builder
	b.WriteString("# Car Price Prediction\n\n")
	fmt.Fprintf(&b, "- **Reference:** %s\n", e.ID)
	fmt.Fprintf(&b, "- **Date:** %s\n", e.CreatedAt.UTC().Format("January 2, 2006 at 3:04 PM MST"))
	fmt.Fprintf(&b, "- **Outcome:** %s\n\n", e.Outcome)

	b.WriteString("## Result\n\n")
	switch e.Outcome {
	case history.OutcomeOK:
		b.WriteString(PriceMessage(e.Price) + "\n\n")
	case history.OutcomeInvalid:
		b.WriteString(msgInvalid + "\n\n")
		b.WriteString("Missing/invalid: " + strings.Join(e.Missing, ", ") + "\n\n")
	default:
		b.WriteString(msgFailed + "\n\n")
		if e.Detail != "" {
			b.WriteString("`" + strings.ReplaceAll(e.Detail, "`", "'") + "`\n\n")
		}
	}

	b.WriteString("## Vehicle\n\n")
	b.WriteString("| Field | Submitted | Model input |\n|---|---|---|\n")
	for _, f := range features.Columns() {
		def, _ := features.Definition(f)
		submitted := e.Input[f].String()
		if f == features.FieldOwner {
			submitted = e.OwnerText
			if submitted == "" {
				submitted = e.Input[f].String()
			}
		}
		used := ""
		if e.Row != nil {
			if def.Kind == features.KindNumeric {
				used = formatNumber(e.Row.Numeric(f))
			} else {
				used = e.Row.Categorical(f)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", def.Label, escapeCell(submitted), escapeCell(used))
	}
	b.WriteString("\n" + features.OwnerNote() + "\n")
	return b.String()
}

func formatNumber(v float64) string {
	return features.Number(v).String()
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReportHTML converts the markdown report into a standalone HTML page.
func ReportHTML(e history.Entry, css string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(ReportMarkdown(e)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	badge := ""
	if e.Outcome == history.OutcomeOK {
		badge = "<p><span class='report-badge'>" + html.EscapeString(PriceMessage(e.Price)) + "</span></p>"
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Car Price Prediction</title>" +
		"<style>" + css + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} }" +
		"</style></head><body><main class='page'>" + badge +
		"<div class='report-html'>" + content.String() + "</div></main></body></html>", nil
}
