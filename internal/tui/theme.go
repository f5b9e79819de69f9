package tui

import (
	"github.com/charmbracelet/lipgloss"

	"calorie/internal/core"
)

// Theme defines the color roles used by the terminal views.
type Theme struct {
	Name        string
	Border      lipgloss.Color // panel borders
	BorderFocus lipgloss.Color // border of the selected category
	TextDim     lipgloss.Color // hints
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color
	Accent      lipgloss.Color
	Green       lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme.
var FlexokiDark = Theme{
	Name:        "flexoki-dark",
	Border:      lipgloss.Color("#403E3C"),
	BorderFocus: lipgloss.Color("#3AA99F"),
	TextDim:     lipgloss.Color("#575653"),
	TextMuted:   lipgloss.Color("#878580"),
	TextPrimary: lipgloss.Color("#FFFCF0"),
	Accent:      lipgloss.Color("#3AA99F"),
	Green:       lipgloss.Color("#879A39"),
	Orange:      lipgloss.Color("#DA702C"),
	Red:         lipgloss.Color("#D14D41"),
}

// CatppuccinMocha is a pastel alternative.
var CatppuccinMocha = Theme{
	Name:        "catppuccin-mocha",
	Border:      lipgloss.Color("#585B70"),
	BorderFocus: lipgloss.Color("#89B4FA"),
	TextDim:     lipgloss.Color("#6C7086"),
	TextMuted:   lipgloss.Color("#A6ADC8"),
	TextPrimary: lipgloss.Color("#CDD6F4"),
	Accent:      lipgloss.Color("#89B4FA"),
	Green:       lipgloss.Color("#A6E3A1"),
	Orange:      lipgloss.Color("#FAB387"),
	Red:         lipgloss.Color("#F38BA8"),
}

// All lists the available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha}

// SetActive switches the theme by name; unknown names keep the current one.
func SetActive(name string) bool {
	for _, t := range All {
		if t.Name == name {
			Active = t
			return true
		}
	}
	return false
}

// RenderSummary renders the headline and the three summary lines. Surplus is
// shown in red and deficit in green.
func RenderSummary(s core.Summary) string {
	t := Active
	color := t.Green
	if s.Label() == core.LabelSurplus {
		color = t.Red
	}
	headline := lipgloss.NewStyle().Foreground(color).Bold(true).Render(s.Headline())
	rule := lipgloss.NewStyle().Foreground(t.Border).Render("────────────────────")
	lineStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)

	out := headline + "\n" + rule
	for _, l := range s.Lines() {
		out += "\n" + lineStyle.Render(l)
	}
	return out
}

// RenderAlert renders a blocking message in the alert color.
func RenderAlert(msg string) string {
	return lipgloss.NewStyle().Foreground(Active.Red).Bold(true).Render(msg)
}
