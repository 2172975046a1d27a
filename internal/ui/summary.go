package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"comptrace/internal/observ"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderSummary renders r as two aligned tables, categories then the longest
// events, fitted to width columns.
func RenderSummary(r observ.Report, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d events, %.2f ms wall", r.Events, r.WallMS)))
	b.WriteString("\n")
	if len(r.Categories) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-16s %8s %12s", "category", "count", "total ms")))
		b.WriteString("\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&b, "  %s %8d %12.2f\n", nameStyle.Render(fmt.Sprintf("%-16s", c.Category)), c.Count, c.TotalMS)
		}
	}
	if len(r.Top) == 0 {
		return b.String()
	}

	const fixed = 2 + 16 + 1 + 12 + 2
	nameWidth := max(width-fixed, 24)
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-*s %-16s %12s", nameWidth, "longest", "category", "ms")))
	b.WriteString("\n")
	for _, e := range r.Top {
		label := e.Name
		if e.File != "" {
			label += " (" + e.File + ")"
		}
		// выравниваем по видимой ширине до стилизации
		label = runewidth.FillRight(truncate(label, nameWidth), nameWidth)
		fmt.Fprintf(&b, "  %s %s %12.2f\n", nameStyle.Render(label), dimStyle.Render(fmt.Sprintf("%-16s", e.Category)), e.DurationMS)
	}
	return b.String()
}
