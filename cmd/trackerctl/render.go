package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/progress"
	"vibe-tracker/tracker-backend/pkg/apiclient"
)

const (
	barWidth   = 20
	notesWidth = 40
)

type theme struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	stale   lipgloss.Style
	errText lipgloss.Style
	done    lipgloss.Style
}

// newTheme binds styles to out so plain writers get no escape codes.
func newTheme(out io.Writer) theme {
	r := lipgloss.NewRenderer(out)
	return theme{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		stale:   r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		errText: r.NewStyle().Foreground(lipgloss.Color("1")),
		done:    r.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

// progressBar draws percent as a fixed width bar.
func progressBar(percent, width int) string {
	filled := progress.ClampBar(percent) * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func idleLabel(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func newTable() *table.Table {
	return table.New().Border(lipgloss.NormalBorder())
}

func (t theme) banner(w io.Writer, err error) {
	fmt.Fprintln(w, t.errText.Render("! "+describe(err)))
}

// renderProjects prints the dashboard list, most recently touched first.
func (t theme) renderProjects(w io.Writer, list []progress.Project, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, t.muted.Render("No projects yet. Create one with `trackerctl projects create <name>`."))
		return
	}
	if n := progress.CountStale(list, now); n > 0 {
		noun := "projects have"
		if n == 1 {
			noun = "project has"
		}
		fmt.Fprintln(w, t.stale.Render(fmt.Sprintf("%d %s had no progress for %d+ days.", n, noun, progress.StaleAfterDays)))
	}

	tbl := newTable().Headers("ID", "NAME", "PROGRESS", "UPDATED", "")
	for _, p := range progress.SortByRecent(list) {
		flag := ""
		if progress.IsStale(p, now) {
			flag = "stale"
		}
		tbl.Row(
			p.ID,
			p.Name,
			fmt.Sprintf("%s %3d%%", progressBar(p.OverallProgress, barWidth/2), p.OverallProgress),
			idleLabel(progress.DaysIdle(p.UpdatedAt, now)),
			flag,
		)
	}
	fmt.Fprintln(w, tbl.Render())
}

// renderSnapshot prints the project header, the phase rollup and one row
// per curriculum step.
func (t theme) renderSnapshot(w io.Writer, snap progress.Snapshot, now time.Time) {
	p := snap.Project
	fmt.Fprintln(w, t.title.Render(p.Name))
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	fmt.Fprintf(w, "Overall %s %d%%\n", progressBar(p.OverallProgress, barWidth), p.OverallProgress)
	if progress.IsStale(p, now) {
		fmt.Fprintln(w, t.stale.Render(fmt.Sprintf("No progress for %d days.", progress.DaysIdle(p.UpdatedAt, now))))
	}
	fmt.Fprintln(w)

	phases := newTable().Headers("PHASE", "", "PERCENT")
	for _, s := range progress.Rollup(snap.Steps, snap.Progress) {
		phases.Row(string(s.Phase), progressBar(s.Percent, barWidth), strconv.Itoa(s.Percent)+"%")
	}
	fmt.Fprintln(w, phases.Render())

	idx := progress.IndexByStep(snap.Progress)
	steps := newTable().Headers("#", "STEP", "STATUS", "PERCENT", "REMINDERS", "NOTES")
	for _, g := range progress.GroupByPhase(snap.Steps) {
		for _, tmpl := range g.Steps {
			rec := progress.Lookup(idx, tmpl.Number)
			steps.Row(stepRow(tmpl, rec)...)
		}
	}
	fmt.Fprintln(w, steps.Render())
}

func stepRow(tmpl curriculum.StepTemplate, rec progress.StepProgress) []string {
	reminders := ""
	if up := progress.UpcomingReminders(rec.Reminders, progress.DisplayedReminders); len(up) > 0 {
		reminders = fmt.Sprintf("%d (next %s)", len(rec.Reminders), up[0].RemindAt.Local().Format("Jan 2 15:04"))
	}
	return []string{
		strconv.Itoa(tmpl.Number),
		tmpl.Title,
		rec.Status.Label(),
		strconv.Itoa(rec.ProgressPercent) + "%",
		reminders,
		clip(rec.Notes, notesWidth),
	}
}

// renderStep prints one reconciled step record.
func (t theme) renderStep(w io.Writer, tmpl curriculum.StepTemplate, rec progress.StepProgress) {
	fmt.Fprintln(w, t.title.Render(fmt.Sprintf("Step %d: %s", tmpl.Number, tmpl.Title)))
	status := rec.Status.Label()
	if rec.Status == progress.StatusCompleted {
		status = t.done.Render(status)
	}
	fmt.Fprintf(w, "Status   %s\n", status)
	fmt.Fprintf(w, "Progress %s %d%%\n", progressBar(rec.ProgressPercent, barWidth), rec.ProgressPercent)
	if rec.CompletedAt != nil {
		fmt.Fprintf(w, "Done     %s\n", rec.CompletedAt.Local().Format(time.RFC1123))
	}
	if rec.Notes != "" {
		fmt.Fprintf(w, "Notes    %s\n", rec.Notes)
	}
	for _, r := range progress.UpcomingReminders(rec.Reminders, progress.DisplayedReminders) {
		sent := ""
		if r.Sent {
			sent = t.muted.Render(" (sent)")
		}
		fmt.Fprintf(w, "Remind   %s  %s%s\n", r.RemindAt.Local().Format("Jan 2 15:04"), r.Message, sent)
	}
}

func (t theme) renderReminders(w io.Writer, list []apiclient.Reminder) {
	if len(list) == 0 {
		fmt.Fprintln(w, t.muted.Render("No reminders."))
		return
	}
	tbl := newTable().Headers("ID", "PROJECT", "STEP", "WHEN", "MESSAGE", "SENT")
	for _, r := range list {
		sent := "no"
		if r.Sent {
			sent = "yes"
		}
		tbl.Row(r.ID, r.ProjectID, strconv.Itoa(r.StepNumber), r.RemindAt.Local().Format("2006-01-02 15:04"), r.Message, sent)
	}
	fmt.Fprintln(w, tbl.Render())
}

// clip collapses whitespace and shortens s to max runes.
func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
