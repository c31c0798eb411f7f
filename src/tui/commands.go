package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/gateway"
)

type command struct {
	name  string
	args  string
	usage string
}

var commands = []command{
	{"new", "", "start a new conversation"},
	{"delete", "", "delete the current conversation"},
	{"rename", "<title>", "rename the current conversation"},
	{"mode", "[name]", "select a mode, or list them"},
	{"attach", "<path>", "attach an image or video file"},
	{"image", "[ratio] [model]", "generate an image from the next message"},
	{"clear", "", "drop the staged attachment, link or mode"},
	{"settings", "", "open settings"},
	{"preview", "", "open the last code block in the browser"},
	{"remember", "<fact>", "add a fact to memory"},
	{"help", "", "show this help"},
	{"quit", "", "exit"},
}

// helpText lists the slash commands and key bindings
func helpText() string {
	var b strings.Builder
	b.WriteString("Commands\n")
	for _, c := range commands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(&b, "  %-24s %s\n", usage, c.usage)
	}
	b.WriteString("\nKeys\n")
	for _, k := range [][2]string{
		{"enter", "send"},
		{"alt+enter, ctrl+j", "new line"},
		{"tab", "cycle mode"},
		{"ctrl+n", "new conversation"},
		{"alt+up, alt+down", "switch conversation"},
		{"ctrl+d", "delete conversation"},
		{"ctrl+s", "settings"},
		{"ctrl+o", "preview last code block"},
		{"ctrl+x", "clear staged input"},
		{"pgup, pgdown", "scroll"},
		{"ctrl+c", "quit"},
	} {
		fmt.Fprintf(&b, "  %-24s %s\n", k[0], k[1])
	}
	return strings.TrimRight(b.String(), "\n")
}

// runCommand executes a slash command line
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "new":
		m.newConversation()
	case "delete":
		m.askDelete()
	case "rename":
		c := m.snap.Active()
		switch {
		case c == nil:
			m.setError("no conversation selected")
		case arg == "":
			m.setError("usage: /rename <title>")
		default:
			m.store.RenameConversation(c.ID, arg)
			m.sync()
		}
	case "mode":
		if arg == "" {
			m.setStatus("modes: " + modeList())
			break
		}
		mode, ok := chat.ParseMode(arg)
		if !ok {
			m.setError(fmt.Sprintf("unknown mode %q, try one of: %s", arg, modeList()))
			break
		}
		m.selectMode(mode)
	case "attach":
		if arg == "" {
			m.setError("usage: /attach <path>")
			break
		}
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		err := m.composer.Attach(ctx, arg)
		cancel()
		if err != nil {
			m.setError(err.Error())
			break
		}
		m.setStatus("attached " + m.composer.Staged().Describe())
	case "image":
		opts := m.imageOpt
		for _, f := range strings.Fields(arg) {
			if strings.Contains(f, ":") {
				opts.AspectRatio = f
			} else {
				opts.Model = f
			}
		}
		if err := gateway.ValidateImageOptions(&opts); err != nil {
			m.setError(err.Error())
			break
		}
		if err := m.composer.SelectMode(chat.ModeImageGeneration, &opts); err != nil {
			m.setError(err.Error())
			break
		}
		m.clearStatus()
	case "clear":
		m.composer.Clear()
		m.setStatus("cleared")
	case "settings":
		m.openSettings()
	case "preview":
		cmd := m.previewLast()
		return m, cmd
	case "remember":
		if arg == "" {
			m.setError("usage: /remember <fact>")
			break
		}
		m.store.UpdateSettings(func(s chat.Settings) chat.Settings { return s.WithMemoryFact(arg) })
		m.setStatus("remembered")
	case "help", "?":
		m.help = true
	case "quit", "exit", "q":
		return m, tea.Quit
	default:
		m.setError(fmt.Sprintf("unknown command /%s, see /help", name))
	}
	return m, nil
}

func modeList() string {
	names := make([]string, 0, len(chat.Modes()))
	for _, mode := range chat.Modes() {
		if mode == chat.ModeDefault {
			names = append(names, "chat")
			continue
		}
		names = append(names, string(mode))
	}
	return strings.Join(names, ", ")
}
