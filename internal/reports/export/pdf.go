package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/stockapp/stockapp/internal/reports"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money":  formatDecimal,
	"metric": formatMetric,
	"keys":   metricKeys,
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
}).Parse(`<html><head><meta charset="utf-8"><title>{{.Title}}</title><style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:left;}th{background:#f5f5f5;}td.num{text-align:right;}
</style></head><body>
<h1>{{.Title}}</h1>
<p>{{.ReportType}} &middot; generated {{.GeneratedAt.UTC.Format "2006-01-02 15:04:05 MST"}}</p>
<section><table><thead><tr><th>Key</th><th>Value</th><th>Description</th><th>Category</th><th>Date</th></tr></thead><tbody>
{{range .Rows}}<tr><td>{{.Key}}</td><td class="num">{{.Value}}</td><td>{{.Description}}</td><td>{{.Category}}</td><td>{{date .Date}}</td></tr>
{{else}}<tr><td colspan="5">No data</td></tr>
{{end}}</tbody></table></section>
<section><h2>Summary</h2><table><tbody>
<tr><th>Total Records</th><td class="num">{{.Summary.TotalRecords}}</td></tr>
<tr><th>Total Value ({{.Summary.Currency}})</th><td class="num">{{money .Summary.TotalValue}}</td></tr>
{{$m := .Summary.AdditionalMetrics}}{{range keys $m}}<tr><th>{{.}}</th><td class="num">{{metric (index $m .)}}</td></tr>
{{end}}</tbody></table></section>
</body></html>`))

// RenderHTML renders the printable HTML document for a report.
func RenderHTML(report reports.Report) (string, error) {
	var b strings.Builder
	if err := reportTemplate.Execute(&b, report); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderPDF renders the report as HTML and hands it to the renderer.
func RenderPDF(ctx context.Context, renderer HTMLRenderer, report reports.Report) ([]byte, error) {
	if renderer == nil {
		return nil, fmt.Errorf("export: pdf renderer not configured")
	}
	html, err := RenderHTML(report)
	if err != nil {
		return nil, fmt.Errorf("export: render html: %w", err)
	}
	pdf, err := renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return pdf, nil
}
