package app

import (
	"fmt"
	"strings"

	"cropyield/domain/model"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// PerformanceReport renders the model comparison as markdown: one table row
// per candidate in roster order and a conclusion naming the champion.
func PerformanceReport(table model.PerformanceTable, champion string) string {
	var b strings.Builder
	b.WriteString("# Model Performance\n\n")
	b.WriteString("| Model | R-squared | RMSE | Note |\n")
	b.WriteString("|---|---:|---:|---|\n")
	for _, rec := range table.Records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			rec.ModelName, formatScore(rec.RSquared), formatScore(rec.RMSE), escapeCell(rec.Warning))
	}
	b.WriteString("\n")

	best, ok := table.Best()
	switch {
	case !ok:
		b.WriteString("No candidate produced a usable score.\n")
	case champion != "" && champion != best.ModelName:
		fmt.Fprintf(&b, "The published champion is **%s**; the best R-squared in this table is %s (%.4f).\n",
			champion, best.ModelName, *best.RSquared)
	default:
		fmt.Fprintf(&b, "Based on R-squared, the best model is **%s** (%.4f).\n", best.ModelName, *best.RSquared)
	}
	return b.String()
}

// PerformanceReportHTML renders the report as a complete HTML page.
func PerformanceReportHTML(table model.PerformanceTable, champion string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Model Performance",
	})
	return markdown.ToHTML([]byte(PerformanceReport(table, champion)), p, r)
}

func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
