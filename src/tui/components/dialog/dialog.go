package dialog

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elee1766/lumen/src/theme"
)

// Result is the outcome of a key press on a dialog
type Result int

const (
	Pending Result = iota
	Confirmed
	Cancelled
)

// Dialog is a yes/no confirmation prompt
type Dialog struct {
	Title   string
	Message string

	// yes is the highlighted choice
	yes bool
}

// NewConfirm creates a confirmation dialog with "No" highlighted
func NewConfirm(title, message string) *Dialog {
	return &Dialog{Title: title, Message: message}
}

// Update handles a key press
func (d *Dialog) Update(msg tea.KeyMsg) Result {
	switch msg.String() {
	case "left", "right", "tab", "h", "l":
		d.yes = !d.yes
	case "y", "Y":
		return Confirmed
	case "n", "N", "esc", "q":
		return Cancelled
	case "enter":
		if d.yes {
			return Confirmed
		}
		return Cancelled
	}
	return Pending
}

// View renders the dialog
func (d *Dialog) View() string {
	s := theme.Current()
	no, yes := s.Muted.Render(" No "), s.Muted.Render(" Yes ")
	if d.yes {
		yes = s.Selected.Render(" Yes ")
	} else {
		no = s.Selected.Render(" No ")
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render(d.Title),
		"",
		d.Message,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, no, "   ", yes),
	)
	return s.Modal.Render(body)
}
