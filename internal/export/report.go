package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/progress"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts csv, xlsx and pdf. An empty string means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Columns of the step table, in order.
var Columns = []string{"Step", "Phase", "Title", "Status", "Percent", "Completed At", "Reminders", "Notes"}

// Row is one catalog step with its progress.
type Row struct {
	Number      int
	Phase       curriculum.Phase
	Title       string
	Status      string
	Percent     int
	CompletedAt *time.Time
	Reminders   int
	Notes       string
}

func (r Row) Cells() []string {
	completed := ""
	if r.CompletedAt != nil {
		completed = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		fmt.Sprint(r.Number),
		string(r.Phase),
		r.Title,
		r.Status,
		fmt.Sprint(r.Percent),
		completed,
		fmt.Sprint(r.Reminders),
		r.Notes,
	}
}

// PhaseLine is one line of the phase summary.
type PhaseLine struct {
	Phase   curriculum.Phase
	Percent int
}

// Report is the rendering-independent view of a project snapshot.
type Report struct {
	Title       string
	Project     progress.Project
	Rows        []Row
	Phases      []PhaseLine
	Overall     int
	GeneratedAt time.Time
}

// Build assembles a report. Rows follow catalog order and steps without a
// stored record use the default record.
func Build(snap *progress.Snapshot, now time.Time) Report {
	idx := progress.IndexByStep(snap.Progress)

	rows := make([]Row, 0, len(snap.Steps))
	for _, step := range snap.Steps {
		rec := progress.Lookup(idx, step.Number)
		rows = append(rows, Row{
			Number:      step.Number,
			Phase:       step.Phase,
			Title:       step.Title,
			Status:      rec.Status.Label(),
			Percent:     rec.ProgressPercent,
			CompletedAt: rec.CompletedAt,
			Reminders:   len(rec.Reminders),
			Notes:       rec.Notes,
		})
	}

	summary := progress.Rollup(snap.Steps, snap.Progress)
	phases := make([]PhaseLine, 0, len(summary))
	for _, s := range summary {
		phases = append(phases, PhaseLine{Phase: s.Phase, Percent: s.Percent})
	}

	return Report{
		Title:       snap.Project.Name,
		Project:     snap.Project,
		Rows:        rows,
		Phases:      phases,
		Overall:     snap.Project.OverallProgress,
		GeneratedAt: now.UTC(),
	}
}

// Render writes report in format f.
func Render(w io.Writer, f Format, report Report) error {
	switch f {
	case FormatCSV:
		return RenderCSV(w, report)
	case FormatXLSX:
		return RenderXLSX(w, report)
	case FormatPDF:
		return RenderPDF(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
