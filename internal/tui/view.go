package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"calorie/internal/core"
)

const helpLine = "tab/shift+tab move  ctrl+n/ctrl+p category  ctrl+a add  enter compute  ctrl+l clear  esc quit"

func (m Model) View() string {
	t := Active
	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Calorie Counter"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Budget  "))
	b.WriteString(m.budget.View())
	b.WriteString("\n\n")

	for i, c := range core.Categories() {
		b.WriteString(m.renderCategory(c, i == m.selected))
		b.WriteString("\n")
	}

	if m.summary != nil {
		b.WriteString("\n")
		b.WriteString(RenderSummary(*m.summary))
		b.WriteString("\n")
	}
	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(RenderAlert(m.alert))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Orange).Render(fmt.Sprintf("Error: %s", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(helpLine))
	return b.String()
}

func (m Model) renderCategory(c core.Category, selected bool) string {
	t := Active
	border := t.Border
	if selected {
		border = t.BorderFocus
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true).Render(c.Title()))
	for _, in := range m.entries {
		if in.entry.Category != c {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s %s",
			labelStyle.Render(fmt.Sprintf("Entry %d Name", in.entry.Position)),
			in.name.View(),
			labelStyle.Render(fmt.Sprintf("Entry %d Calories", in.entry.Position)),
			in.calories.View(),
		))
	}
	return box.Render(strings.Join(lines, "\n"))
}
