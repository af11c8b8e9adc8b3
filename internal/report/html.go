package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"io"
	"time"

	"github.com/nao1215/cotestpilot/internal/model"
)

//go:embed report_template.html
var htmlTemplate string

// HTMLWriter outputs standalone HTML reports with embedded screenshots.
// This format is designed for sharing check results with people who don't
// run the tool, such as attaching a report to a bug tracker.
//
// Design decision: We use html/template from the standard library rather
// than a template engine dependency because the report is one fixed
// template and html/template gives contextual escaping for free, which
// matters when bug titles and descriptions come from a language model.
type HTMLWriter struct {
	baseWriter

	tmpl *template.Template
}

// htmlReportData is the root template context.
type htmlReportData struct {
	GeneratedAt   time.Time
	Results       []*model.CheckResult
	HighCount     int
	MediumCount   int
	LowCount      int
	CosmeticCount int
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) (*HTMLWriter, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
		tmpl:       tmpl,
	}, nil
}

// Write outputs one check result as an HTML document.
func (w *HTMLWriter) Write(result *model.CheckResult) (int, error) {
	return w.WriteBatch([]*model.CheckResult{result})
}

// WriteBatch outputs multiple check results as one HTML document.
func (w *HTMLWriter) WriteBatch(results []*model.CheckResult) (int, error) {
	data := htmlReportData{
		GeneratedAt: time.Now(),
		Results:     results,
	}
	for _, r := range results {
		data.HighCount += r.HighCount
		data.MediumCount += r.MediumCount
		data.LowCount += r.LowCount
		data.CosmeticCount += r.CosmeticCount
	}

	// Render to a buffer first so a template error doesn't leave a
	// half-written document in the output.
	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, data); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
