package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/theme"
)

type editKind int

const (
	editNone editKind = iota
	editTone
	editMemory
)

// settingsModel is the settings modal. Every change is applied to the
// store right away.
type settingsModel struct {
	settings chat.Settings
	cursor   int
	editing  editKind

	name        textinput.Model
	instruction textinput.Model
	memory      textarea.Model
	err         string
}

func newSettingsModel(s chat.Settings) *settingsModel {
	name := textinput.New()
	name.Placeholder = "Tone name"
	name.CharLimit = 40
	instruction := textinput.New()
	instruction.Placeholder = "How should the assistant respond?"
	instruction.Width = 60

	memory := textarea.New()
	memory.ShowLineNumbers = false
	memory.SetWidth(60)
	memory.SetHeight(8)

	return &settingsModel{
		settings:    s,
		name:        name,
		instruction: instruction,
		memory:      memory,
	}
}

// rows: tones, then output length, then memory
func (s *settingsModel) rowCount() int { return len(s.settings.Tones()) + 2 }
func (s *settingsModel) outputRow() int { return len(s.settings.Tones()) }
func (s *settingsModel) memoryRow() int { return len(s.settings.Tones()) + 1 }

// update handles a key press and reports whether the modal should close
func (s *settingsModel) update(msg tea.KeyMsg, store *chat.Store) bool {
	apply := func(fn func(chat.Settings) chat.Settings) {
		store.UpdateSettings(fn)
		s.settings = store.Snapshot().Settings
		if s.cursor >= s.rowCount() {
			s.cursor = s.rowCount() - 1
		}
	}

	switch s.editing {
	case editTone:
		return s.updateToneForm(msg, apply)
	case editMemory:
		switch msg.String() {
		case "esc":
			s.editing = editNone
		case "ctrl+s":
			memory := strings.TrimSpace(s.memory.Value())
			apply(func(cur chat.Settings) chat.Settings {
				cur.Memory = memory
				return cur
			})
			s.editing = editNone
		default:
			s.memory, _ = s.memory.Update(msg)
		}
		return false
	}

	s.err = ""
	tones := s.settings.Tones()
	switch msg.String() {
	case "esc", "q", "ctrl+s":
		return true
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < s.rowCount()-1 {
			s.cursor++
		}
	case "enter", " ":
		switch {
		case s.cursor < len(tones):
			id := tones[s.cursor].ID
			apply(func(cur chat.Settings) chat.Settings { return cur.WithSelectedTone(id) })
		case s.cursor == s.outputRow():
			apply(cycleOutputLength(1))
		case s.cursor == s.memoryRow():
			s.memory.SetValue(s.settings.Memory)
			s.memory.Focus()
			s.editing = editMemory
		}
	case "left", "h":
		if s.cursor == s.outputRow() {
			apply(cycleOutputLength(-1))
		}
	case "right", "l":
		if s.cursor == s.outputRow() {
			apply(cycleOutputLength(1))
		}
	case "n":
		s.name.SetValue("")
		s.instruction.SetValue("")
		s.instruction.Blur()
		s.name.Focus()
		s.editing = editTone
	case "d", "delete":
		if s.cursor < len(tones) {
			t := tones[s.cursor]
			if !t.IsCustom {
				s.err = "built-in tones cannot be deleted"
				break
			}
			apply(func(cur chat.Settings) chat.Settings { return cur.WithoutTone(t.ID) })
		}
	case "c":
		if s.cursor == s.memoryRow() {
			apply(func(cur chat.Settings) chat.Settings {
				cur.Memory = ""
				return cur
			})
		}
	}
	return false
}

func (s *settingsModel) updateToneForm(msg tea.KeyMsg, apply func(func(chat.Settings) chat.Settings)) bool {
	switch msg.String() {
	case "esc":
		s.editing = editNone
		return false
	case "tab", "shift+tab":
		if s.name.Focused() {
			s.name.Blur()
			s.instruction.Focus()
		} else {
			s.instruction.Blur()
			s.name.Focus()
		}
		return false
	case "enter":
		name := strings.TrimSpace(s.name.Value())
		instruction := strings.TrimSpace(s.instruction.Value())
		if name == "" || instruction == "" {
			s.err = "a tone needs a name and an instruction"
			return false
		}
		tone := chat.Tone{ID: chat.NewID(), Name: name, Instruction: instruction}
		apply(func(cur chat.Settings) chat.Settings {
			return cur.WithCustomTone(tone).WithSelectedTone(tone.ID)
		})
		s.err = ""
		s.editing = editNone
		return false
	}
	if s.name.Focused() {
		s.name, _ = s.name.Update(msg)
	} else {
		s.instruction, _ = s.instruction.Update(msg)
	}
	return false
}

func cycleOutputLength(delta int) func(chat.Settings) chat.Settings {
	return func(cur chat.Settings) chat.Settings {
		lengths := chat.OutputLengths()
		idx := 0
		for i, l := range lengths {
			if l == cur.OutputLength {
				idx = i
			}
		}
		cur.OutputLength = lengths[(idx+delta+len(lengths))%len(lengths)]
		return cur
	}
}

func (s *settingsModel) view() string {
	st := theme.Current()
	var b strings.Builder
	b.WriteString(st.Title.Render("Settings") + "\n\n")

	switch s.editing {
	case editTone:
		b.WriteString("New tone\n\n")
		b.WriteString(s.name.View() + "\n")
		b.WriteString(s.instruction.View() + "\n\n")
		b.WriteString(st.Muted.Render("tab switch field · enter save · esc cancel"))
	case editMemory:
		b.WriteString("Memory\n\n")
		b.WriteString(s.memory.View() + "\n\n")
		b.WriteString(st.Muted.Render("ctrl+s save · esc cancel"))
	default:
		b.WriteString(st.Muted.Render("Tone") + "\n")
		for i, t := range s.settings.Tones() {
			mark := "  "
			if t.ID == s.settings.ResolveTone().ID {
				mark = "● "
			}
			label := mark + t.Name
			if t.IsCustom {
				label += st.Muted.Render(" (custom)")
			}
			b.WriteString(s.row(i, label, st) + "\n")
		}
		b.WriteString("\n")
		b.WriteString(s.row(s.outputRow(), fmt.Sprintf("Output length: ‹ %s ›", s.settings.OutputLength), st) + "\n")

		memory := s.settings.Memory
		if memory == "" {
			memory = "(empty)"
		}
		summary := strings.ReplaceAll(memory, "\n", " ")
		b.WriteString(s.row(s.memoryRow(), "Memory: "+ansi.Truncate(summary, 50, "…"), st) + "\n\n")
		b.WriteString(st.Muted.Render("enter select · n new tone · d delete tone · c clear memory · esc close"))
	}
	if s.err != "" {
		b.WriteString("\n" + st.Error.Render(s.err))
	}
	return st.Modal.Render(b.String())
}

func (s *settingsModel) row(i int, label string, st theme.Styles) string {
	if i == s.cursor {
		return st.Selected.Render("› " + label)
	}
	return "  " + label
}
