// Package tui is the interactive terminal chat client.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elee1766/lumen/src/chat"
	"github.com/elee1766/lumen/src/composer"
	"github.com/elee1766/lumen/src/executor"
	"github.com/elee1766/lumen/src/preview"
	"github.com/elee1766/lumen/src/theme"
	"github.com/elee1766/lumen/src/tui/components/dialog"
)

const sidebarWidth = 28

// Runner executes a turn. It blocks until the reply is final.
type Runner interface {
	Send(ctx context.Context, conversationID string, req *composer.Request) (executor.Result, error)
}

// Publisher serves code blocks to the browser
type Publisher interface {
	PublishCode(block preview.CodeBlock) string
}

// Config configures the chat model
type Config struct {
	Store    *chat.Store
	Runner   Runner
	Composer *composer.Composer
	// Preview returns the preview server, starting it if needed
	Preview      func() (Publisher, error)
	ImageOptions chat.ImageOptions
	ModelName    string
	GlamourStyle string
	Logger       *slog.Logger
}

type (
	snapshotMsg struct {
		snap *chat.Snapshot
	}
	turnDoneMsg struct {
		result executor.Result
		err    error
	}
	previewMsg struct {
		url string
		err error
	}
)

// Model is the bubbletea model of the chat screen
type Model struct {
	ctx      context.Context
	store    *chat.Store
	runner   Runner
	composer *composer.Composer
	preview  func() (Publisher, error)
	imageOpt chat.ImageOptions
	model    string
	logger   *slog.Logger

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	render   *renderer
	styles   theme.Styles

	snap      *chat.Snapshot
	pending   int
	status    string
	statusErr bool

	confirm   *dialog.Dialog
	confirmID string
	settings  *settingsModel
	help      bool

	width  int
	height int
	ready  bool
	follow bool
}

// New creates the chat model
func New(ctx context.Context, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GlamourStyle == "" {
		cfg.GlamourStyle = "dark"
	}

	ta := textarea.New()
	ta.Placeholder = "Message Gemini..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle = ta.FocusedStyle
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	styles := theme.Current()
	sp.Style = styles.Model

	return Model{
		ctx:      ctx,
		store:    cfg.Store,
		runner:   cfg.Runner,
		composer: cfg.Composer,
		preview:  cfg.Preview,
		imageOpt: cfg.ImageOptions,
		model:    cfg.ModelName,
		logger:   cfg.Logger.With("component", "tui"),
		textarea: ta,
		spinner:  sp,
		render:   newRenderer(cfg.GlamourStyle),
		styles:   styles,
		snap:     cfg.Store.Snapshot(),
		follow:   true,
	}
}

// Init starts the cursor blink and spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case snapshotMsg:
		if msg.snap.Version < m.snap.Version {
			return m, nil
		}
		m.snap = msg.snap
		if m.settings != nil {
			m.settings.settings = msg.snap.Settings
		}
		m.refresh()
		return m, nil

	case turnDoneMsg:
		m.pending--
		if msg.err != nil {
			if errors.Is(msg.err, executor.ErrConversationBusy) {
				m.setError("a reply is still being generated in this conversation")
			} else {
				m.logger.Debug("turn failed", "error", msg.err)
			}
		} else if len(msg.result.MemoryFacts) > 0 {
			m.setStatus("memory updated: " + strings.Join(msg.result.MemoryFacts, "; "))
		}
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.setError("preview: " + msg.err.Error())
		} else {
			m.setStatus("preview at " + msg.url)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		if m.help {
			m.help = false
			return m, nil
		}
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.settings != nil {
			done := m.settings.update(msg, m.store)
			if done {
				m.settings = nil
				m.textarea.Focus()
			}
			return m, nil
		}
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}
	}

	var cmd tea.Cmd
	before := m.textarea.Value()
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	if after := m.textarea.Value(); after != before {
		m.composer.Observe(after)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true
	case "ctrl+n":
		m.newConversation()
		return m, nil, true
	case "alt+up":
		m.cycleConversation(-1)
		return m, nil, true
	case "alt+down":
		m.cycleConversation(1)
		return m, nil, true
	case "ctrl+d":
		m.askDelete()
		return m, nil, true
	case "ctrl+s":
		m.openSettings()
		return m, nil, true
	case "ctrl+o":
		cmd := m.previewLast()
		return m, cmd, true
	case "ctrl+x":
		m.composer.Clear()
		m.setStatus("cleared")
		return m, nil, true
	case "tab":
		m.cycleMode()
		return m, nil, true
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd, true
	case "enter":
		model, cmd := m.submit()
		return model, cmd, true
	}
	return m, nil, false
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.confirm.Update(msg) {
	case dialog.Confirmed:
		if m.store.DeleteConversation(m.confirmID) {
			m.setStatus("conversation deleted")
		}
		m.confirm, m.confirmID = nil, ""
		m.sync()
	case dialog.Cancelled:
		m.confirm, m.confirmID = nil, ""
	}
	return m, nil
}

// submit sends the input or runs a slash command
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.textarea.Value()
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		m.textarea.Reset()
		return m.runCommand(strings.TrimSpace(text))
	}

	id := m.snap.ActiveID
	if id != "" && m.store.Busy(id) {
		m.setError("a reply is still being generated in this conversation")
		return m, nil
	}
	req, err := m.composer.Build(text)
	if err != nil {
		if !errors.Is(err, composer.ErrEmptyMessage) {
			m.setError(err.Error())
		}
		return m, nil
	}
	if id == "" {
		id = m.store.CreateConversation()
	}
	m.textarea.Reset()
	m.clearStatus()
	m.follow = true
	m.pending++
	m.sync()
	return m, m.send(id, req)
}

func (m Model) send(id string, req *composer.Request) tea.Cmd {
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		res, err := runner.Send(ctx, id, req)
		return turnDoneMsg{result: res, err: err}
	}
}

func (m *Model) newConversation() {
	m.store.CreateConversation()
	m.composer.Clear()
	m.follow = true
	m.sync()
}

func (m *Model) cycleConversation(delta int) {
	order := m.snap.Order
	if len(order) == 0 {
		return
	}
	idx := 0
	for i, id := range order {
		if id == m.snap.ActiveID {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(order)) % len(order)
	m.store.SelectConversation(order[idx])
	m.follow = true
	m.sync()
}

func (m *Model) askDelete() {
	c := m.snap.Active()
	if c == nil {
		return
	}
	m.confirmID = c.ID
	m.confirm = dialog.NewConfirm("Delete conversation", fmt.Sprintf("Delete %q?", c.Title))
}

func (m *Model) openSettings() {
	m.settings = newSettingsModel(m.snap.Settings)
	m.textarea.Blur()
}

// cycleMode advances to the next mode. Image generation carries the
// default image options.
func (m *Model) cycleMode() {
	modes := chat.Modes()
	cur := m.composer.Mode()
	next := modes[0]
	for i, mode := range modes {
		if mode == cur {
			next = modes[(i+1)%len(modes)]
			break
		}
	}
	m.selectMode(next)
}

func (m *Model) selectMode(mode chat.Mode) {
	var opts *chat.ImageOptions
	if mode == chat.ModeImageGeneration {
		o := m.imageOpt
		opts = &o
	}
	if err := m.composer.SelectMode(mode, opts); err != nil {
		m.setError(err.Error())
		return
	}
	m.clearStatus()
}

// previewLast publishes the last code block of the latest model reply
func (m *Model) previewLast() tea.Cmd {
	c := m.snap.Active()
	if c == nil {
		m.setError("nothing to preview")
		return nil
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if !msg.Completed() {
			continue
		}
		if block, ok := preview.LastCodeBlock(msg.Content); ok {
			return m.publish(block)
		}
	}
	m.setError("no code block to preview")
	return nil
}

func (m Model) publish(block preview.CodeBlock) tea.Cmd {
	open := m.preview
	if open == nil {
		return nil
	}
	return func() tea.Msg {
		pub, err := open()
		if err != nil {
			return previewMsg{err: err}
		}
		return previewMsg{url: pub.PublishCode(block)}
	}
}

func (m Model) loading() bool {
	if m.pending > 0 {
		return true
	}
	if c := m.snap.Active(); c != nil {
		if last, ok := c.LastMessage(); ok && last.IsLoading {
			return true
		}
	}
	return false
}

// sync adopts the store's current snapshot after a local mutation
func (m *Model) sync() {
	if snap := m.store.Snapshot(); snap.Version >= m.snap.Version {
		m.snap = snap
	}
	m.refresh()
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *Model) setError(s string)  { m.status, m.statusErr = s, true }
func (m *Model) clearStatus()       { m.status, m.statusErr = "", false }

func (m *Model) layout() {
	contentWidth := m.width - sidebarWidth - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	// input (3 + border) + staged line + status bar
	vpHeight := m.height - 5 - 1 - 1
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth)
	m.render.setWidth(contentWidth)
}

// refresh re-renders the active conversation into the viewport
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.render.conversation(m.snap.Active(), m.spinner.View()))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// View renders the screen
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.confirm != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.confirm.View())
	}
	if m.settings != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.settings.view())
	}
	if m.help {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.styles.Modal.Render(helpText()))
	}

	side := m.styles.Sidebar.
		Width(sidebarWidth).
		Height(m.height - 1).
		Render(m.render.sidebar(m.snap, sidebarWidth, m.height-2, m.spinner.View()))

	staged := m.composer.Staged().Describe()
	if staged == "" {
		staged = m.composer.Mode().Label()
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.styles.Badge.Render(staged),
		m.styles.Panel.Render(m.textarea.View()),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, side, main)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m Model) statusBar() string {
	left := m.model
	if m.loading() {
		left += " " + m.spinner.View()
	}
	right := "enter send · alt+enter newline · tab mode · ctrl+s settings · /help"
	if m.status != "" {
		right = m.status
		if m.statusErr {
			right = m.styles.Error.Render(right)
		}
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}
