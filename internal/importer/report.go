package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/model"
)

// ReportWriter persists run reports in both machine and operator forms.
type ReportWriter struct {
	dir string
}

// NewReportWriter creates the report directory if needed.
func NewReportWriter(dir string) (*ReportWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create dir %s", dir)
	}
	return &ReportWriter{dir: dir}, nil
}

// Write persists the JSON report and its text summary side by side, named
// after the session and run start time. It returns the JSON path.
func (w *ReportWriter) Write(report *model.ImportRunReport) (string, error) {
	stem := fmt.Sprintf("%s-%s", report.SessionID, report.StartedAt.Format("20060102-150405"))

	jsonPath := filepath.Join(w.dir, stem+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "report: encode")
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write %s", jsonPath)
	}

	textPath := filepath.Join(w.dir, stem+".txt")
	if err := os.WriteFile(textPath, []byte(RenderText(report)), 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write %s", textPath)
	}
	return jsonPath, nil
}

// RenderText formats the operator-facing summary. Every failed item appears
// with its source reference, category, and reason; failures are never folded
// into an aggregate count alone.
func RenderText(report *model.ImportRunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Import run %s\n", report.RunID)
	fmt.Fprintf(&b, "Session:  %s\n", report.SessionID)
	fmt.Fprintf(&b, "Source:   %s (%s)\n", report.Source, report.InputPath)
	fmt.Fprintf(&b, "Started:  %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", report.Duration.Round(time.Second))
	if report.Aborted {
		fmt.Fprintf(&b, "ABORTED:  %s\n", report.AbortReason)
	}
	b.WriteString("\n")

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Total", "Created", "Duplicates", "Failed", "Skipped"})
	summary.AppendRow(table.Row{
		report.Counts.Total,
		report.Counts.Succeeded - report.Counts.Duplicates,
		report.Counts.Duplicates,
		report.Counts.Failed,
		report.Counts.Skipped,
	})
	b.WriteString(summary.Render())
	b.WriteString("\n\n")

	items := table.NewWriter()
	items.SetStyle(table.StyleLight)
	items.AppendHeader(table.Row{"#", "Ref", "Outcome", "Artwork", "Score", "Detail"})
	items.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Detail", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, it := range report.Items {
		score := ""
		if it.Score != nil {
			score = fmt.Sprintf("%.2f", it.Score.Total)
		}
		detail := it.Error
		if it.Kind == model.OutcomeFailed && it.Category != "" {
			detail = fmt.Sprintf("[%s] %s", it.Category, it.Error)
		}
		items.AppendRow(table.Row{it.Index, it.SourceRef, it.Kind, it.ArtworkID, score, detail})
	}
	b.WriteString(items.Render())
	b.WriteString("\n")

	if n := len(report.AutoCreatedArtistIDs); n > 0 {
		fmt.Fprintf(&b, "\nAuto-created artists: %d (%s)\n", n, strings.Join(report.AutoCreatedArtistIDs, ", "))
	}
	return b.String()
}
