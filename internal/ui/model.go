package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"querychat/internal/clipboard"
	"querychat/internal/config"
	"querychat/internal/export"
	"querychat/internal/highlight"
	"querychat/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
)

const (
	welcomeText      = "Ask a question about your data to get started."
	inputPlaceholder = "Ask a question about the database..."
	typingText       = "thinking..."
)

type Options struct {
	Endpoint string
	Exporter *export.Exporter
	Logger   zerolog.Logger
}

type Model struct {
	chat     *session.Controller
	exporter *export.Exporter
	log      zerolog.Logger
	endpoint string

	viewport viewport.Model
	input    textinput.Model
	search   textinput.Model
	help     help.Model
	spinner  spinner.Model
	keys     keyMap

	width  int
	height int

	// rendered caches the glamour output for renderKey; the transcript is
	// append-only so its length identifies its content.
	rendered    string
	renderKey   string
	renderedLen int
	wasBusy     bool

	searchMode  bool
	searchQuery string
	matchLines  []int
	matchCount  int
	matchIndex  int

	status string
	err    error
}

type answerMsg struct {
	outcome session.Outcome
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	err error
}

func NewModel(chat *session.Controller, opts Options) Model {
	vp := viewport.New(60, 20)
	vp.SetContent(welcomeText)

	in := textinput.New()
	in.Placeholder = inputPlaceholder
	in.Prompt = "> "
	in.Focus()

	search := textinput.New()
	search.Placeholder = "Search the conversation..."
	search.Prompt = "/ "
	search.CharLimit = 256

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	return Model{
		chat:     chat,
		exporter: opts.Exporter,
		log:      opts.Logger.With().Str("component", "ui").Logger(),
		endpoint: opts.Endpoint,

		viewport: vp,
		input:    in,
		search:   search,
		help:     h,
		spinner:  sp,
		keys:     defaultKeys(),

		matchIndex: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) askCmd(p session.Pending) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		return answerMsg{outcome: chat.Ask(context.Background(), p)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	transcript := m.chat.Transcript()
	exp := m.exporter
	return func() tea.Msg {
		path, err := exp.Export(transcript, time.Now())
		return exportMsg{path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	query, ok := m.chat.LastSQLQuery()
	if !ok {
		return func() tea.Msg { return copyMsg{err: clipboard.ErrNothingToCopy} }
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: clipboard.Copy(ctx, query)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()

	case answerMsg:
		if !m.chat.Settle(msg.outcome) {
			return m, nil
		}
		if msg.outcome.Err != nil {
			m.err = msg.outcome.Err
			m.status = "Request failed"
		} else {
			m.err = nil
			m.status = ""
		}
		m.refresh()

	case exportMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("export transcript")
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.log.Info().Str("path", msg.path).Msg("transcript exported")
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		switch {
		case msg.err == nil:
			m.status = "Copied SQL query to clipboard"
		case errors.Is(msg.err, clipboard.ErrNothingToCopy):
			m.status = "No SQL query to copy yet"
		case errors.Is(msg.err, clipboard.ErrToolNotFound):
			m.err = msg.err
			m.status = "Could not copy: clipboard tool not found"
		default:
			m.log.Warn().Err(msg.err).Msg("copy sql query")
			m.err = msg.err
			m.status = "Could not copy: " + msg.err.Error()
		}

	case spinner.TickMsg:
		if m.chat.Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.refresh()
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.ToggleTheme):
			if err := m.chat.ToggleTheme(); err != nil {
				m.err = err
				m.status = "Theme not saved: " + err.Error()
			} else {
				m.status = "Theme: " + themeName(m.chat.DarkMode())
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Search):
			m.searchMode = true
			m.input.Blur()
			m.search.SetValue(m.searchQuery)
			m.search.CursorEnd()
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.NextMatch):
			m.jumpToMatch(1)
			return m, nil
		case key.Matches(msg, m.keys.PrevMatch):
			m.jumpToMatch(-1)
			return m, nil
		case key.Matches(msg, m.keys.Esc):
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.viewport.LineUp(1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.viewport.LineDown(1)
			return m, nil
		case key.Matches(msg, m.keys.CopySQL):
			return m, m.copyCmd()
		case key.Matches(msg, m.keys.Export):
			return m, m.exportCmd()
		}

		// Typing stays possible while an answer is pending.
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.chat.UpdateDraft(m.input.Value())
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	m.chat.UpdateDraft(text)
	if m.chat.Busy() {
		m.status = "Still waiting for the previous answer"
		return m, nil
	}
	p, ok := m.chat.Begin(text)
	if !ok {
		return m, nil
	}
	m.input.SetValue(m.chat.Draft())
	m.status = ""
	m.err = nil
	m.refresh()
	return m, tea.Batch(m.askCmd(p), m.spinner.Tick)
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.search.SetValue("")
		m.search.Blur()
		m.refresh()
		return m, m.input.Focus()
	case "enter":
		m.searchMode = false
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.search.Blur()
		m.refresh()
		m.jumpToMatch(0)
		return m, m.input.Focus()
	}

	before := strings.TrimSpace(m.search.Value())
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if after := strings.TrimSpace(m.search.Value()); after != before {
		m.searchQuery = after
		m.refresh()
	}
	return m, cmd
}

// refresh rebuilds the viewport content. Markdown is only re-rendered when
// the transcript, the width or the theme changed, and the view follows the
// newest entry whenever the transcript grows or the typing indicator appears.
func (m *Model) refresh() {
	transcript := m.chat.Transcript()
	dark := m.chat.DarkMode()
	busy := m.chat.Busy()
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}

	cacheKey := fmt.Sprintf("n=%d|w=%d|dark=%t", len(transcript), wrap, dark)
	if cacheKey != m.renderKey {
		m.rendered = renderTranscript(transcript, wrap, dark)
		m.renderKey = cacheKey
	}

	content := m.rendered
	if busy {
		content = strings.TrimRight(content, "\n") + "\n\n  " +
			paletteFor(dark).typing.Render(m.spinner.View()+" "+typingText)
	}

	if h := highlight.New(m.searchQuery, func(s string) string { return paletteFor(dark).searchMatch.Render(s) }); h != nil {
		res := h.Apply(content)
		content = res.Text
		m.setMatches(res)
	} else {
		m.clearMatches()
	}

	offset := m.viewport.YOffset
	m.viewport.SetContent(content)
	grew := len(transcript) > m.renderedLen || (busy && !m.wasBusy)
	if grew {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(m.clampViewportOffset(offset))
	}
	m.renderedLen = len(transcript)
	m.wasBusy = busy
}

// renderTranscript draws message text verbatim; only the SQL sections go
// through glamour.
func renderTranscript(transcript []session.Message, wrap int, dark bool) string {
	if len(transcript) == 0 {
		return welcomeText
	}
	p := paletteFor(dark)
	body := lipgloss.NewStyle().Width(wrap).PaddingLeft(2)

	var sql *glamour.TermRenderer
	var blocks []string
	for _, msg := range transcript {
		switch {
		case msg.Role == session.RoleUser:
			blocks = append(blocks, p.userLabel.Render("You"), body.Render(plainText(msg.Text)))
		case msg.IsError:
			blocks = append(blocks, p.errorText.Bold(true).Render("Assistant (error)"),
				body.Inherit(p.errorText).Render(plainText(msg.Text)))
		default:
			blocks = append(blocks, p.assistantLabel.Render("Assistant"), body.Render(plainText(msg.Text)))
			if !msg.HasSQL() {
				break
			}
			if sql == nil {
				sql = newSQLRenderer(wrap, dark)
			}
			blocks = append(blocks, renderSQL(sql, msg))
		}
		blocks = append(blocks, "")
	}
	return strings.Join(blocks, "\n")
}

func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(empty)"
	}
	return s
}

func newSQLRenderer(wrap int, dark bool) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(config.GlamourStyle(dark)),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

func renderSQL(r *glamour.TermRenderer, msg session.Message) string {
	md := export.SQLMarkdown(msg)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) setMatches(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		if m.searchQuery != "" {
			m.status = "No search matches in conversation"
		}
		return
	}

	switch {
	case m.matchIndex < 0 || m.matchIndex >= len(m.matchLines):
		m.matchIndex = 0
	case delta > 0:
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	case delta < 0:
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// Layout: title, status, transcript panel, input panel, help.
func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}
	bodyHeight := m.height - 7
	if bodyHeight < 4 {
		bodyHeight = 4
	}
	m.viewport.Width = inner
	m.viewport.Height = bodyHeight
	m.input.Width = inner - lipgloss.Width(m.input.Prompt) - 1
	m.search.Width = inner - lipgloss.Width(m.search.Prompt) - 1
	m.help.Width = m.width
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}
	p := paletteFor(m.chat.DarkMode())

	title := p.title.Render(export.Title)
	body := p.panel(!m.searchMode).Width(m.width - 2).Render(m.viewport.View())

	prompt := m.input.View()
	if m.searchMode {
		prompt = m.search.View()
	}
	inputPane := p.panel(true).Width(m.width - 2).Render(prompt)

	helpView := m.help.View(m.keys)
	if !m.searchMode && m.searchQuery != "" {
		helpView = "search: " + m.searchQuery + "  " + helpView
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.statusLine(p),
		body,
		inputPane,
		helpView,
	)
}

func (m Model) statusLine(p palette) string {
	parts := []string{
		"endpoint=" + m.endpoint,
		"theme=" + themeName(m.chat.DarkMode()),
		fmt.Sprintf("messages=%d", m.chat.Len()),
	}
	if m.chat.Busy() {
		parts = append(parts, "[waiting]")
	}
	if strings.TrimSpace(m.searchQuery) != "" {
		if m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			parts = append(parts, fmt.Sprintf("[match %d/%d]", cur, m.matchCount))
		} else {
			parts = append(parts, "[match 0]")
		}
	}
	if s := strings.TrimSpace(m.status); s != "" {
		parts = append(parts, s)
	}
	if m.err != nil {
		parts = append(parts, p.errorText.Render("err="+m.err.Error()))
	}

	line := strings.Join(parts, "  ")
	if m.width > 4 {
		line = ansi.Truncate(line, m.width-2, "…")
	}
	return p.status.Render(line)
}

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}
