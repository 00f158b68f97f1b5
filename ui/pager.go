package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/aminemaliki7/NEWS/internal/article"
)

const (
	statusBarHeight = 1
	listenBarHeight = 2
)

var pagerHelpHeight int

type pagerState int

const (
	pagerStateBrowse pagerState = iota
	pagerStateStatusMessage
)

type pagerModel struct {
	common   *commonModel
	viewport viewport.Model
	state    pagerState
	showHelp bool

	statusMessage      statusMessage
	statusMessageTimer *time.Timer

	// The article being shown and its position in the narrator's list.
	index   int
	article article.Article
}

func newPagerModel(common *commonModel) pagerModel {
	// Init viewport
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	return pagerModel{
		common:   common,
		state:    pagerStateBrowse,
		viewport: vp,
	}
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight - listenBarHeight

	if m.showHelp {
		if pagerHelpHeight == 0 {
			pagerHelpHeight = strings.Count(m.helpView(), "\n")
		}
		m.viewport.Height -= (statusBarHeight + pagerHelpHeight)
	}
}

func (m *pagerModel) setContent(s string) {
	m.viewport.SetContent(s)
}

func (m *pagerModel) setArticle(index int, a article.Article) {
	m.index = index
	m.article = a
	m.viewport.GotoTop()
}

func (m *pagerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *pagerModel) showStatusMessage(msg statusMessage) tea.Cmd {
	m.state = pagerStateStatusMessage
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(pagerContext, m.statusMessageTimer)
}

func (m *pagerModel) unload() {
	log.Debug("unload")
	if m.showHelp {
		m.toggleHelp()
	}
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.state = pagerStateBrowse
	m.article = article.Article{}
	m.viewport.SetContent("")
	m.viewport.YOffset = 0
}

// markdown lays the article out for glamour.
func (m pagerModel) markdown() string {
	a := m.article
	var b strings.Builder

	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	var byline []string
	if a.Source.Name != "" {
		byline = append(byline, a.Source.Name)
	}
	if !a.PublishedAt.IsZero() {
		byline = append(byline, a.PublishedAt.Local().Format("Jan 2, 2006 15:04"))
	}
	if len(byline) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(byline, " · "))
	}

	desc := strings.TrimSpace(a.Description)
	body := strings.TrimSpace(a.FullContent)
	if body == "" {
		body = strings.TrimSpace(a.Content)
	}
	if desc != "" && desc != body {
		fmt.Fprintf(&b, "> %s\n\n", desc)
	}
	if body != "" {
		fmt.Fprintf(&b, "%s\n\n", body)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "[Read the full story](%s)\n", a.URL)
	}
	return b.String()
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)
	n := m.common.narrator()
	ctx := m.common.ctx

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.showHelp {
				m.toggleHelp()
				return m, nil
			}
			if m.state != pagerStateBrowse {
				m.state = pagerStateBrowse
				return m, nil
			}
		case "home", "g":
			m.viewport.GotoTop()
		case "end", "G":
			m.viewport.GotoBottom()

		case "c":
			if m.article.URL == "" {
				return m, m.showStatusMessage(statusMessage{"No link to copy", true})
			}
			// Copy using OSC 52
			termenv.Copy(m.article.URL)
			// Copy using native system clipboard
			_ = clipboard.WriteAll(m.article.URL)
			cmds = append(cmds, m.showStatusMessage(statusMessage{"Copied link", false}))

		case " ":
			return m, listen(m.common, m.index)

		case "s":
			return m, stopAll(n)

		case "v", "V":
			return m, changeVoice(ctx, n, m.index, msg.String() == "v")

		case "?":
			m.toggleHelp()
		}

	// Glamour rendering has completed.
	case contentRenderedMsg:
		log.Debug("content rendered", "article", m.index)
		m.setContent(string(msg))

	case statusMessageTimeoutMsg:
		if applicationContext(msg) == pagerContext {
			m.state = pagerStateBrowse
			m.statusMessage = statusMessage{}
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m pagerModel) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")
	fmt.Fprint(&b, m.listenBarView()+"\n\n")

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

// listenBarView shows the article's listen control above the status bar.
func (m pagerModel) listenBarView() string {
	n := m.common.narrator()
	control := n.Control(m.index)
	s := "  " + listenButton(m.common, control) + "  " + dimStyle(voiceName(n.Voice(m.index)))
	if note := controlNote(control); note != "" {
		s += "  " + note
	}
	if m.common.width > 0 {
		s = truncate.StringWithTail(s, uint(m.common.width), ellipsis) //nolint:gosec
	}
	return s
}

func (m pagerModel) statusBarView(b *strings.Builder) {
	const (
		minPercent               float64 = 0.0
		maxPercent               float64 = 1.0
		percentToStringMagnitude float64 = 100.0
	)

	showStatusMessage := m.state == pagerStateStatusMessage

	// Logo
	logo := logoView()

	// Scroll percent
	percent := math.Max(minPercent, math.Min(maxPercent, m.viewport.ScrollPercent()))
	scrollPercent := fmt.Sprintf(" %3.f%% ", percent*percentToStringMagnitude)
	scrollPercent = statusBarVoiceStyle(scrollPercent)

	// "Help" note
	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	// Note
	var note string
	if showStatusMessage {
		note = m.statusMessage.message
	} else {
		note = m.article.Title
		if !m.article.PublishedAt.IsZero() {
			note += " • " + humanize.Time(m.article.PublishedAt)
		}
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	if showStatusMessage {
		style = statusBarMessageStyle
		if m.statusMessage.isError {
			style = statusBarErrorStyle
		}
	}
	note = style(note)

	// Empty space
	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		scrollPercent,
		helpNote,
	)
}

func (m pagerModel) helpView() (s string) {
	col1 := []string{
		"space   listen / pause",
		"s       stop",
		"v/V     next/previous voice",
		"c       copy link",
		"esc     back to articles",
		"q       quit",
	}

	s += "\n"
	s += "k/↑      up                  " + col1[0] + "\n"
	s += "j/↓      down                " + col1[1] + "\n"
	s += "b/pgup   page up             " + col1[2] + "\n"
	s += "f/pgdn   page down           " + col1[3] + "\n"
	s += "u        ½ page up           " + col1[4] + "\n"
	s += "d        ½ page down         " + col1[5]

	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

// COMMANDS

func renderWithGlamour(m pagerModel, md string) tea.Cmd {
	return func() tea.Msg {
		s, err := glamourRender(m, md)
		if err != nil {
			log.Error("error rendering with Glamour", "error", err)
			return errMsg{err}
		}
		return contentRenderedMsg(s)
	}
}

// This is where the magic happens.
func glamourRender(m pagerModel, markdown string) (string, error) {
	width := max(0, min(int(m.common.cfg.GlamourMaxWidth), m.viewport.Width)) //nolint:gosec
	if m.common.cfg.GlamourMaxWidth == 0 {
		width = m.viewport.Width
	}

	if !m.common.cfg.GlamourEnabled {
		if width > 0 {
			return wordwrap.String(markdown, width), nil
		}
		return markdown, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.common.cfg.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}

	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return out, nil
}
