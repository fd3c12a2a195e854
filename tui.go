//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/leaf/internal/reader"
	"github.com/metcalfc/leaf/internal/session"
	"github.com/metcalfc/leaf/internal/span"
	"github.com/metcalfc/leaf/internal/translate"
)

type mode int

const (
	modeRead mode = iota
	modeComment
	modeGoto
	modeTOC
)

// Lines used by the header, translation panel, message and controls.
const chromeHeight = 6

type lookupMsg session.LookupResult

type model struct {
	ctx  context.Context
	sess *session.Session
	tr   translate.Translator

	toc       []reader.TOCEntry
	tocCursor int

	mode     mode
	input    textinput.Model
	viewport viewport.Model

	tokens []span.Token
	cursor int // token index
	mark   int // token index where a range selection starts, or -1

	message  string
	quitting bool
	width    int
	height   int
}

func newModel(ctx context.Context, sess *session.Session, tr translate.Translator, toc []reader.TOCEntry, showTOC bool) model {
	ti := textinput.New()
	ti.CharLimit = 500

	m := model{
		ctx:      ctx,
		sess:     sess,
		tr:       tr,
		toc:      toc,
		input:    ti,
		viewport: viewport.New(80, 24-chromeHeight),
		mark:     -1,
		width:    80,
		height:   24,
	}
	if showTOC && len(toc) > 0 {
		m.openTOC()
	}
	m.loadPage()
	return m
}

func (m *model) loadPage() {
	m.tokens = span.Tokens(m.sess.PageText())
	m.cursor = 0
	m.mark = -1
	m.viewport.GotoTop()
	m.refresh()
}

func (m *model) refresh() {
	text := renderSegments(m.sess.Render(), m.cursorRange(), defaultSegmentStyles)
	if m.viewport.Width > 0 {
		text = lipgloss.NewStyle().Width(m.viewport.Width).Render(text)
	}
	m.viewport.SetContent(text)
}

func (m model) cursorRange() cursorRange {
	if len(m.tokens) == 0 {
		return noCursor
	}
	from, to := m.cursor, m.cursor
	if m.mark >= 0 {
		from, to = min(m.mark, m.cursor), max(m.mark, m.cursor)
	}
	return cursorRange{m.tokens[from].Start, m.tokens[to].End}
}

func (m *model) openTOC() {
	m.mode = modeTOC
	m.tocCursor = 0
	for i, e := range m.toc {
		if e.Page <= m.sess.Page() {
			m.tocCursor = i
		}
	}
}

func (m model) lookupCmd(l session.Lookup) tea.Cmd {
	ctx, tr := m.ctx, m.tr
	return func() tea.Msg {
		return lookupMsg(l.Run(ctx, tr))
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.refresh()
		return m, nil

	case lookupMsg:
		if m.sess.Resolve(session.LookupResult(msg)) {
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeComment, modeGoto:
			return m.updateInput(msg)
		case modeTOC:
			return m.updateTOC(msg)
		}
		return m.updateRead(msg)
	}

	return m, nil
}

func (m model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "right", "l", "w":
		if m.cursor < len(m.tokens)-1 {
			m.cursor++
			m.refresh()
		}

	case "left", "h", "b":
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
		}

	case "down", "j":
		m.viewport.LineDown(1)

	case "up", "k":
		m.viewport.LineUp(1)

	case "n", "pgdown", "]":
		if m.sess.Page() < m.sess.TotalPages() {
			m.sess.NextPage()
			m.loadPage()
		}

	case "p", "pgup", "[":
		if m.sess.Page() > 1 {
			m.sess.PrevPage()
			m.loadPage()
		}

	case "enter", " ":
		if len(m.tokens) == 0 {
			return m, nil
		}
		tok := m.tokens[m.cursor]
		l, ok := m.sess.Select(tok.Text, tok.Start, tok.End)
		if !ok {
			m.message = fmt.Sprintf("%q is too short to translate", tok.Text)
			return m, nil
		}
		m.mark = -1
		m.refresh()
		return m, m.lookupCmd(l)

	case "a":
		w, err := m.sess.AddSelectionToDictionary()
		switch {
		case errors.Is(err, session.ErrNothingToAdd):
			m.message = "Translate a word before adding it"
		case errors.Is(err, session.ErrAlreadyInDictionary):
			m.message = fmt.Sprintf("%q is already in the dictionary", w.Word)
		case err != nil:
			m.message = err.Error()
		default:
			m.message = fmt.Sprintf("Added %q to the dictionary", w.Word)
		}
		m.refresh()

	case "esc", "d":
		m.sess.Dismiss()
		m.mark = -1
		m.refresh()

	case "v":
		if m.mark >= 0 {
			m.mark = -1
		} else {
			m.mark = m.cursor
		}
		m.refresh()

	case "c":
		if len(m.tokens) == 0 {
			return m, nil
		}
		m.mode = modeComment
		m.input.Reset()
		m.input.Placeholder = "comment"
		m.input.Prompt = "Comment: "
		return m, m.input.Focus()

	case "g":
		m.mode = modeGoto
		m.input.Reset()
		m.input.Placeholder = fmt.Sprintf("1-%d", m.sess.TotalPages())
		m.input.Prompt = "Go to page: "
		return m, m.input.Focus()

	case "t":
		if len(m.toc) > 0 {
			m.openTOC()
		}

	case "s":
		m.sess.SetShowComments(!m.sess.ShowComments())
		m.refresh()
	}

	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeRead
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		current := m.mode
		m.mode = modeRead
		m.input.Blur()

		switch current {
		case modeComment:
			rng := m.cursorRange()
			c, err := m.sess.AddCommentAt(rng.start, rng.end, value, "")
			if errors.Is(err, session.ErrSelectionTooShort) {
				m.message = "Select at least three characters to comment on"
			} else if err != nil {
				m.message = err.Error()
			} else {
				m.message = fmt.Sprintf("Comment added to %q", c.SelectedText)
				m.mark = -1
			}
			m.refresh()

		case modeGoto:
			n, err := strconv.Atoi(value)
			if err != nil {
				m.message = fmt.Sprintf("Not a page number: %q", value)
				return m, nil
			}
			m.sess.ChangePage(n)
			m.loadPage()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc", "t":
		m.mode = modeRead
	case "up", "k":
		if m.tocCursor > 0 {
			m.tocCursor--
		}
	case "down", "j":
		if m.tocCursor < len(m.toc)-1 {
			m.tocCursor++
		}
	case "enter":
		m.mode = modeRead
		m.sess.ChangePage(m.toc[m.tocCursor].Page)
		m.loadPage()
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	snap := m.sess.Snapshot()
	comments := ""
	if !snap.ShowComments {
		comments = " | comments hidden"
	}
	sb.WriteString(titleStyle.Render(m.sess.Book().Title))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("Page %d/%d%s", snap.Page, snap.TotalPages, comments)))
	sb.WriteString("\n")

	if m.mode == modeTOC {
		sb.WriteString(m.tocView())
	} else {
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	sb.WriteString(translationView(snap))
	sb.WriteString("\n")

	switch {
	case m.mode == modeComment || m.mode == modeGoto:
		sb.WriteString(m.input.View())
	case m.message != "":
		sb.WriteString(errorStyle.Render(m.message))
	}
	sb.WriteString("\n")

	var controls string
	switch m.mode {
	case modeTOC:
		controls = "↑/↓: move  ENTER: jump  T/ESC: close  Q: quit"
	case modeComment, modeGoto:
		controls = "ENTER: confirm  ESC: cancel"
	default:
		controls = "←/→: word  ENTER: translate  A: add  V: range  C: comment  N/P: page  G: go to  S: comments  Q: quit"
		if len(m.toc) > 0 {
			controls += "  T: TOC"
		}
	}
	sb.WriteString(controlsStyle.Render(controls))

	return sb.String()
}

func translationView(snap session.Snapshot) string {
	if snap.Selection == nil {
		return ""
	}
	word := snap.Selection.Word

	switch snap.State {
	case session.WordSelected:
		return statusStyle.Render(word + ": translating...")
	case session.WordTranslated:
		if snap.Err != nil || snap.Translation == nil {
			return errorStyle.Render(word + ": no translation found")
		}
		tr := snap.Translation
		return translationStyle.Render(fmt.Sprintf("%s %s: %s", word, tr.Transcription, strings.Join(tr.Meanings, "; ")))
	}
	return ""
}

func (m model) tocView() string {
	height := max(1, m.viewport.Height)
	first := 0
	if m.tocCursor >= height {
		first = m.tocCursor - height + 1
	}

	var lines []string
	for i := first; i < len(m.toc) && i < first+height; i++ {
		e := m.toc[i]
		line := fmt.Sprintf("%s%s  (p. %d)", strings.Repeat("  ", e.Level), e.Title, e.Page)
		if i == m.tocCursor {
			line = translationStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func runReader(ctx context.Context, a *app, sess *session.Session, toc []reader.TOCEntry, showTOC bool) error {
	m := newModel(ctx, sess, a.tr, toc, showTOC)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
