package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/lipgloss"

	"github.com/EduMonSwent/EduMon-sub001/internal/planner"
	"github.com/EduMonSwent/EduMon-sub001/internal/storage/models"
	"github.com/EduMonSwent/EduMon-sub001/internal/unified"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	dayStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7a8599"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	doneStyle  = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#7a8599"))

	kindStyles = map[string]lipgloss.Style{
		"exam":       lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
		"submission": lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		"class":      lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		"activity":   lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac")),
		"work":       lipgloss.NewStyle(),
	}
)

func kindStyle(k unified.Kind) lipgloss.Style {
	switch {
	case k.IsExam():
		return kindStyles["exam"]
	case k.IsSubmission():
		return kindStyles["submission"]
	case k.IsClass():
		return kindStyles["class"]
	case k.IsActivity():
		return kindStyles["activity"]
	}
	return kindStyles["work"]
}

// eventLine renders one event as "time  KIND  title".
func eventLine(ev unified.Event) string {
	clock := "all day"
	if ev.Time != nil {
		clock = fmt.Sprintf("%02d:%02d", ev.Time.Hour, ev.Time.Minute)
	}

	title := ev.Title
	if ev.Completed {
		title = doneStyle.Render(title)
	}

	kind := kindStyle(ev.Kind).Render(string(ev.Kind))
	return fmt.Sprintf("  %s  %s%s  %s",
		mutedStyle.Render(fmt.Sprintf("%-7s", clock)),
		kind, strings.Repeat(" ", max(0, 20-lipgloss.Width(kind))),
		title,
	)
}

func renderWeek(start, end civil.Date, events []unified.Event) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Week %s to %s", start, end)))
	sb.WriteString("\n")

	i := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		sb.WriteString("\n")
		sb.WriteString(dayStyle.Render(fmt.Sprintf("%s %s", unified.Weekday(d), d)))
		sb.WriteString("\n")

		n := 0
		for ; i < len(events) && events[i].Date == d; i++ {
			sb.WriteString(eventLine(events[i]))
			sb.WriteString("\n")
			n++
		}
		if n == 0 {
			sb.WriteString(mutedStyle.Render("  nothing planned"))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderPlan(today civil.Date, plan planner.Plan) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Plan for %s", today)))
	sb.WriteString("\n")

	if plan.Empty() {
		sb.WriteString(mutedStyle.Render("  nothing to move"))
		return sb.String()
	}

	section := func(name string, events []unified.Event) {
		if len(events) == 0 {
			return
		}
		sb.WriteString("\n")
		sb.WriteString(dayStyle.Render(name))
		sb.WriteString("\n")
		for _, ev := range events {
			sb.WriteString(fmt.Sprintf("  %s -> %s", ev.Date.String(), ev.Title))
			sb.WriteString("\n")
		}
	}
	section("Missed, moved one week later", plan.MovedMissed)
	section("Pulled in from next week", plan.PulledEarlier)

	return strings.TrimRight(sb.String(), "\n")
}

func renderImport(res *models.ImportResult) string {
	line := fmt.Sprintf("%s from %s: %d parsed, %d written, %d replaced",
		res.Kind, res.Source, res.EventsParsed, res.EventsWritten, res.EventsDeleted)
	if res.Error != nil {
		return errorStyle.Render(line + " (" + res.Error.Error() + ")")
	}
	return titleStyle.Render(line)
}
