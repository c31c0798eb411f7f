package theme

import "github.com/charmbracelet/lipgloss"

// Theme represents a color theme
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	TextMuted lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
}

// Default is the built-in theme
var Default = Theme{
	Primary:   lipgloss.AdaptiveColor{Light: "#1A73E8", Dark: "#8AB4F8"},
	Accent:    lipgloss.AdaptiveColor{Light: "#9334E6", Dark: "#C58AF9"},
	Text:      lipgloss.AdaptiveColor{Light: "#202124", Dark: "#E8EAED"},
	TextMuted: lipgloss.AdaptiveColor{Light: "#5F6368", Dark: "#9AA0A6"},
	Error:     lipgloss.AdaptiveColor{Light: "#D93025", Dark: "#F28B82"},
	Border:    lipgloss.AdaptiveColor{Light: "#DADCE0", Dark: "#5F6368"},
}

// CurrentTheme is the active theme
var CurrentTheme = Default

// Styles are the lipgloss styles derived from a theme
type Styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Model     lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Badge     lipgloss.Style
	Sidebar   lipgloss.Style
	Panel     lipgloss.Style
	Modal     lipgloss.Style
	StatusBar lipgloss.Style
}

// NewStyles builds styles for t
func NewStyles(t Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		User:      lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Model:     lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Error:     lipgloss.NewStyle().Foreground(t.Error),
		Muted:     lipgloss.NewStyle().Foreground(t.TextMuted),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(t.Text).Background(t.Border),
		Badge:     lipgloss.NewStyle().Foreground(t.Accent).Border(lipgloss.RoundedBorder()).BorderForeground(t.Accent).Padding(0, 1),
		Sidebar:   lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(t.Border).Padding(0, 1),
		Panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		Modal:     lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(t.Primary).Padding(1, 2),
		StatusBar: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}

// Current returns styles for the current theme
func Current() Styles {
	return NewStyles(CurrentTheme)
}
