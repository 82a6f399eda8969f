package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

// Reporter prints advisory output to the console in a formatted text form.
type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) HandleReport(report *domain.AdvisoryReport) error {
	tmpl := `
Advisory Report for {{.ClinicID}}
Generated: {{.GeneratedAt.Format "2006-01-02 15:04"}} ({{.TriggerType}}, {{.ResponseCount}} responses)
{{- if .Priority}}
Top priority: {{.Priority}}
{{- end}}
{{range .Sections}}
=== {{.Title}} ===
{{.Content}}
{{end}}
`
	t, err := template.New("report").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}

func (c *Reporter) HandleProgress(clinicID string, progress *domain.AdvisoryProgress) error {
	tmpl := `
Advisory progress for {{.ClinicID}}
Responses since last report: {{.Progress.Current}} / {{.Progress.Threshold}} ({{.Progress.Percentage}}%)
Total responses: {{.Progress.TotalResponses}}
Eligible for a new report: {{if .Progress.CanGenerate}}yes{{else}}no{{end}}
{{- if .Progress.DaysSinceLastReport}}
Days since last report: {{.Progress.DaysSinceLastReport}}
{{- end}}
`
	t, err := template.New("progress").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, struct {
		ClinicID string
		Progress *domain.AdvisoryProgress
	}{ClinicID: clinicID, Progress: progress})
}
