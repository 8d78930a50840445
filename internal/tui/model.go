// Package tui is the interactive three-pane console.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/kalambet/chatdesk/internal/session"
)

// Options configures a console.
type Options struct {
	Initial   session.State
	Executor  *session.Executor
	ExportDir string
	// Now is used for export file names. Defaults to time.Now.
	Now func() time.Time
}

// mode is the modal input currently capturing keys.
type mode int

const (
	modeNone mode = iota
	modePassword
	modeConfirm
	modeTitle
	modePersonaName
	modeInstructions
	modePaths
	modeChunkSize
)

var panes = []session.Pane{session.PaneChat, session.PanePersonas, session.PaneDocuments}

var sortKeys = []session.SortKey{session.SortName, session.SortDate, session.SortType}

// settledMsg carries the event an effect settled into.
type settledMsg struct{ ev session.Event }

type exportedMsg struct {
	path string
	err  error
}

// Model is the bubbletea model of the console. Session state changes only
// through session.Reduce.
type Model struct {
	ctx       context.Context
	state     session.State
	exec      *session.Executor
	exportDir string
	now       func() time.Time

	input      textarea.Model
	prompt     textinput.Model
	transcript viewport.Model
	help       help.Model
	styles     styles

	renderer     *glamour.TermRenderer
	renderedFor  renderKey
	mode         mode
	modalTitle   string
	editing      string
	notice       *session.Notice
	personaIndex int
	docIndex     int
	width        int
	height       int
}

type renderKey struct {
	messages int
	dark     bool
	width    int
}

// New builds a console model around opts.Initial.
func New(ctx context.Context, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question…"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Cursor.SetMode(cursor.CursorStatic)

	ti := textinput.New()
	ti.Cursor.SetMode(cursor.CursorStatic)

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	m := Model{
		ctx:        ctx,
		state:      opts.Initial,
		exec:       opts.Executor,
		exportDir:  exportDir,
		now:        now,
		input:      ta,
		prompt:     ti,
		transcript: viewport.New(80, 12),
		help:       help.New(),
		styles:     newStyles(opts.Initial.DarkMode),
		width:      80,
		height:     24,
	}
	m.renderedFor = renderKey{messages: -1}
	m.sync()
	return m
}

// Run starts the console on the terminal and blocks until it quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// State returns the current session state.
func (m Model) State() session.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case settledMsg:
		if msg.ev == nil {
			return m, nil
		}
		return m.apply(msg.ev)
	case exportedMsg:
		if msg.err != nil {
			m.notice = &session.Notice{Level: session.NoticeFailure, Text: "Export failed: " + msg.err.Error()}
		} else {
			m.notice = &session.Notice{Level: session.NoticeSuccess, Text: "Transcript saved to " + msg.path}
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.mode != modeNone {
			return m.updateModal(msg)
		}
		if next, ok := m.paneKey(msg); ok {
			return m.apply(session.PaneRequested{Pane: next})
		}
		switch m.state.Pane {
		case session.PanePersonas:
			return m.updatePersonas(msg)
		case session.PaneDocuments:
			return m.updateDocuments(msg)
		default:
			return m.updateChat(msg)
		}
	}
	return m, nil
}

// apply reduces ev and turns the resulting effects into commands.
func (m Model) apply(ev session.Event) (Model, tea.Cmd) {
	var effects []session.Effect
	m.state, effects = session.Reduce(m.state, ev)

	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case session.Notify:
			n := eff.Notice
			m.notice = &n
		case session.AskConfirmation:
			m.mode = modeConfirm
			m.modalTitle = eff.Prompt
		case session.AskPassword:
			m.openPrompt(modePassword, "Admin password", "")
		default:
			cmds = append(cmds, m.run(eff))
		}
	}
	m.sync()
	return m, tea.Batch(cmds...)
}

func (m Model) run(eff session.Effect) tea.Cmd {
	ctx, exec := m.ctx, m.exec
	return func() tea.Msg {
		return settledMsg{ev: exec.Run(ctx, eff)}
	}
}

// sync mirrors session state into the widgets.
func (m *Model) sync() {
	if m.input.Value() != m.state.Chat.Input {
		m.input.SetValue(m.state.Chat.Input)
	}
	if m.state.Pane == session.PaneChat && m.state.Chat.Focused && m.mode == modeNone {
		m.input.Focus()
	} else {
		m.input.Blur()
	}

	if m.styles.dark != m.state.DarkMode {
		m.styles = newStyles(m.state.DarkMode)
	}
	rk := renderKey{messages: len(m.state.Chat.Messages), dark: m.state.DarkMode, width: m.transcript.Width}
	if rk != m.renderedFor {
		if rk.dark != m.renderedFor.dark || rk.width != m.renderedFor.width || m.renderer == nil {
			m.renderer = newRenderer(rk.dark, rk.width)
		}
		m.transcript.SetContent(m.renderTranscript())
		m.transcript.GotoBottom()
		m.renderedFor = rk
	}

	m.personaIndex = clampIndex(m.personaIndex, len(m.state.Personas.Names()))
	m.docIndex = clampIndex(m.docIndex, len(m.state.Corpus.View()))
}

func newRenderer(dark bool, width int) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(glamour.WithStylePath(style), glamour.WithWordWrap(max(width-4, 20)))
	if err != nil {
		return nil
	}
	return r
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.SetWidth(max(width-2, 10))
	m.transcript.Width = width
	m.transcript.Height = max(height-11, 3)
	m.help.Width = width
	m.sync()
}

// paneKey resolves pane navigation keys.
func (m Model) paneKey(msg tea.KeyMsg) (session.Pane, bool) {
	i := slices.Index(panes, m.state.Pane)
	switch {
	case key.Matches(msg, keys.NextPane):
		return panes[(i+1)%len(panes)], true
	case key.Matches(msg, keys.PrevPane):
		return panes[(i+len(panes)-1)%len(panes)], true
	case key.Matches(msg, keys.Chat):
		return session.PaneChat, true
	case key.Matches(msg, keys.Personas):
		return session.PanePersonas, true
	case key.Matches(msg, keys.Docs):
		return session.PaneDocuments, true
	}
	return "", false
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Newline):
		return m.apply(session.SubmitKeyPressed{Newline: true})
	case key.Matches(msg, keys.Send) && !msg.Paste:
		return m.apply(session.SubmitKeyPressed{})
	case key.Matches(msg, keys.Clear):
		return m.apply(session.ClearRequested{})
	case key.Matches(msg, keys.Theme):
		return m.apply(session.DarkModeToggled{})
	case key.Matches(msg, keys.Title):
		m.openPrompt(modeTitle, "Title", m.state.Title)
		return m, nil
	case key.Matches(msg, keys.Export):
		return m, m.export()
	case key.Matches(msg, keys.Scroll):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if !m.input.Focused() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.state.Chat.Input {
		next, more := m.apply(session.InputChanged{Text: v})
		return next, tea.Batch(cmd, more)
	}
	return m, cmd
}

func (m Model) updatePersonas(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.state.Personas.Names()
	current := ""
	if m.personaIndex < len(names) {
		current = names[m.personaIndex]
	}
	switch {
	case key.Matches(msg, keys.Up):
		m.personaIndex = clampIndex(m.personaIndex-1, len(names))
	case key.Matches(msg, keys.Down):
		m.personaIndex = clampIndex(m.personaIndex+1, len(names))
	case key.Matches(msg, keys.Select):
		return m.apply(session.PersonaSelected{Name: current})
	case key.Matches(msg, keys.New):
		m.openPrompt(modePersonaName, "New persona name", "")
	case key.Matches(msg, keys.Edit):
		if current == "" {
			return m, nil
		}
		instructions, _ := m.state.Personas.Instructions(current)
		m.editing = current
		m.openPrompt(modeInstructions, "Instructions for "+current, instructions)
	case key.Matches(msg, keys.Delete):
		return m.apply(session.PersonaDeleteRequested{Name: current})
	case key.Matches(msg, keys.Refresh):
		return m.apply(session.PersonasRefreshRequested{})
	}
	return m, nil
}

func (m Model) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		paths := ParseDroppedPaths(string(msg.Runes))
		return m.apply(session.FilesDropped{Files: session.FilesFromPaths(paths)})
	}

	docs := m.state.Corpus.View()
	switch {
	case key.Matches(msg, keys.Up):
		m.docIndex = clampIndex(m.docIndex-1, len(docs))
	case key.Matches(msg, keys.Down):
		m.docIndex = clampIndex(m.docIndex+1, len(docs))
	case key.Matches(msg, keys.Upload):
		m.openPrompt(modePaths, "Paths to upload", "")
	case key.Matches(msg, keys.Delete):
		if m.docIndex < len(docs) {
			return m.apply(session.DocumentDeleteRequested{ID: docs[m.docIndex].ID})
		}
	case key.Matches(msg, keys.Filter):
		filters := append([]string{session.FilterAll}, session.Extensions(m.state.Corpus.Cache.Data)...)
		next := (slices.Index(filters, m.state.Corpus.Filter) + 1) % len(filters)
		return m.apply(session.FilterChanged{Filter: filters[next]})
	case key.Matches(msg, keys.Sort):
		next := (slices.Index(sortKeys, m.state.Corpus.Sort) + 1) % len(sortKeys)
		return m.apply(session.SortChanged{Sort: sortKeys[next]})
	case key.Matches(msg, keys.Chunk):
		m.openPrompt(modeChunkSize, "Chunk size", strconv.Itoa(m.state.Corpus.ChunkSize))
	case key.Matches(msg, keys.Refresh):
		return m.apply(session.DocumentsRefreshRequested{})
	}
	return m, nil
}

func (m *Model) openPrompt(md mode, title, value string) {
	m.mode = md
	m.modalTitle = title
	m.prompt.Reset()
	m.prompt.EchoMode = textinput.EchoNormal
	if md == modePassword {
		m.prompt.EchoMode = textinput.EchoPassword
	}
	m.prompt.SetValue(value)
	m.prompt.Focus()
	m.input.Blur()
}

func (m *Model) closePrompt() string {
	v := m.prompt.Value()
	m.prompt.Reset()
	m.prompt.Blur()
	m.mode = modeNone
	m.modalTitle = ""
	return v
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirm {
		switch {
		case key.Matches(msg, keys.Yes):
			m.mode = modeNone
			return m.apply(session.ConfirmationAnswered{Yes: true})
		case key.Matches(msg, keys.No):
			m.mode = modeNone
			return m.apply(session.ConfirmationAnswered{Yes: false})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Cancel):
		md := m.mode
		m.closePrompt()
		if md == modePassword {
			return m.apply(session.PasswordCancelled{})
		}
		m.sync()
		return m, nil
	case key.Matches(msg, keys.Submit) && !msg.Paste:
		md, editing := m.mode, m.editing
		value := m.closePrompt()
		m.editing = ""
		return m.submitPrompt(md, editing, value)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt(md mode, editing, value string) (tea.Model, tea.Cmd) {
	switch md {
	case modePassword:
		return m.apply(session.PasswordSubmitted{Password: value})
	case modeTitle:
		return m.apply(session.TitleChanged{Title: value})
	case modePersonaName:
		name := strings.TrimSpace(value)
		next, cmd := m.apply(session.PersonaDrafted{Name: name})
		if !next.state.Personas.IsDraft(name) {
			return next, cmd
		}
		next.personaIndex = slices.Index(next.state.Personas.Names(), name)
		next.editing = name
		next.openPrompt(modeInstructions, "Instructions for "+name, "")
		return next, cmd
	case modeInstructions:
		return m.apply(session.PersonaSaveRequested{Name: editing, Instructions: value})
	case modePaths:
		paths := ParseDroppedPaths(value)
		return m.apply(session.UploadRequested{Files: session.FilesFromPaths(paths)})
	case modeChunkSize:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			n = 0
		}
		return m.apply(session.ChunkSizeChanged{Size: n})
	}
	m.sync()
	return m, nil
}

func (m Model) export() tea.Cmd {
	if len(m.state.Chat.Messages) == 0 {
		return func() tea.Msg {
			return exportedMsg{err: fmt.Errorf("the conversation is empty")}
		}
	}
	dir, title, now := m.exportDir, m.state.Title, m.now()
	msgs := slices.Clone(m.state.Chat.Messages)
	return func() tea.Msg {
		path, err := exportTranscript(dir, title, msgs, now)
		return exportedMsg{path: path, err: err}
	}
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
