package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"

	"github.com/aminemaliki7/NEWS/internal/article"
)

const (
	listHeaderHeight = 3
	listFooterHeight = 2
	listItemHeight   = 4
	listGutter       = 2
)

type filterState int

const (
	unfiltered    filterState = iota // no filter set
	filtering                        // user is actively setting a filter
	filterApplied                    // a filter is applied and user is not editing filter
)

type statusMessage struct {
	message string
	isError bool
}

type listModel struct {
	common   *commonModel
	articles []article.Article
	query    article.Query
	loading  bool
	loadErr  error
	showHelp bool

	// visible maps rows on screen to article indices.
	visible []int
	cursor  int
	offset  int

	categoryIndex int

	filterState filterState
	filterInput textinput.Model

	statusMessage      statusMessage
	statusMessageTimer *time.Timer
}

func newListModel(common *commonModel) listModel {
	si := textinput.New()
	si.Prompt = "Find:"
	si.PromptStyle = lipgloss.NewStyle().Foreground(yellowGreen).MarginRight(1)
	si.Cursor.Style = lipgloss.NewStyle().Foreground(fuchsia)
	si.Placeholder = "title or source, enter searches the news"
	si.CharLimit = 120

	m := listModel{
		common:      common,
		loading:     true,
		filterInput: si,
	}
	if !m.selectCategory(common.cfg.Category) {
		m.selectCategory(article.Categories[0])
	}
	return m
}

// selectCategory switches the listing to category. It reports false for
// unknown categories.
func (m *listModel) selectCategory(category string) bool {
	for i, c := range article.Categories {
		if strings.EqualFold(c, category) {
			m.categoryIndex = i
			m.query = article.Query{Category: c, Language: m.common.cfg.Language}
			return true
		}
	}
	return false
}

// cycleCategory moves delta categories along, wrapping around, and returns
// the new category.
func (m *listModel) cycleCategory(delta int) string {
	n := len(article.Categories)
	m.categoryIndex = ((m.categoryIndex+delta)%n + n) % n
	category := article.Categories[m.categoryIndex]
	m.query = article.Query{Category: category, Language: m.common.cfg.Language}
	return category
}

func (m *listModel) setSize(_, _ int) {
	m.clampOffset()
}

func (m *listModel) setArticles(q article.Query, articles []article.Article) {
	m.query = q
	m.articles = articles
	m.loading = false
	m.loadErr = nil
	m.cursor = 0
	m.offset = 0
	m.resetFilter()
}

func (m *listModel) resetFilter() {
	m.filterState = unfiltered
	m.filterInput.Reset()
	m.filterInput.Blur()
	m.applyFilter("")
}

// applyFilter fuzzy-matches pattern against titles and sources. An empty
// pattern shows everything in listing order.
func (m *listModel) applyFilter(pattern string) {
	m.visible = m.visible[:0]
	if strings.TrimSpace(pattern) == "" {
		for i := range m.articles {
			m.visible = append(m.visible, i)
		}
	} else {
		targets := make([]string, len(m.articles))
		for i, a := range m.articles {
			targets[i] = strings.TrimSpace(a.Title + " " + a.Source.Name)
		}
		for _, match := range fuzzy.Find(pattern, targets) {
			m.visible = append(m.visible, match.Index)
		}
	}
	m.cursor = 0
	m.offset = 0
}

// selected returns the article index under the cursor.
func (m listModel) selected() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[m.cursor], true
}

func (m listModel) perPage() int {
	h := m.common.height - listHeaderHeight - listFooterHeight
	if m.showHelp {
		h -= strings.Count(m.helpView(), "\n") + 1
	}
	return max(1, h/listItemHeight)
}

func (m *listModel) clampOffset() {
	per := m.perPage()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+per {
		m.offset = m.cursor - per + 1
	}
	m.offset = max(0, m.offset)
}

func (m *listModel) moveCursor(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.visible)-1)
	m.clampOffset()
}

func (m *listModel) showStatusMessage(msg statusMessage) tea.Cmd {
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(listContext, m.statusMessageTimer)
}

func (m listModel) update(msg tea.Msg) (listModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMessageTimeoutMsg:
		if applicationContext(msg) == listContext {
			m.statusMessage = statusMessage{}
		}
		return m, nil

	case tea.KeyMsg:
		if m.filterState == filtering {
			return m.handleFiltering(msg)
		}
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m listModel) handleFiltering(msg tea.KeyMsg) (listModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.resetFilter()
		return m, nil

	case "enter":
		term := strings.TrimSpace(m.filterInput.Value())
		m.filterInput.Blur()
		if term == "" {
			m.resetFilter()
			return m, nil
		}
		log.Debug("searching", "query", term)
		m.query = article.Query{Search: term, Language: m.common.cfg.Language}
		m.loading = true
		m.filterState = filterApplied
		return m, loadArticles(m.common, m.query)

	case "up", "down", "ctrl+k", "ctrl+j":
		m.filterState = filterApplied
		m.filterInput.Blur()
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter(m.filterInput.Value())
	return m, cmd
}

func (m listModel) handleKeys(msg tea.KeyMsg) (listModel, tea.Cmd) {
	n := m.common.narrator()
	ctx := m.common.ctx

	switch msg.String() {
	case "k", "up", "ctrl+k":
		m.moveCursor(-1)

	case "j", "down", "ctrl+j":
		m.moveCursor(1)

	case "pgup", "b":
		m.moveCursor(-m.perPage())

	case "pgdown", "f":
		m.moveCursor(m.perPage())

	case "home", "g":
		m.moveCursor(-len(m.visible))

	case "end", "G":
		m.moveCursor(len(m.visible))

	case "/":
		m.filterState = filtering
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()

	case "esc":
		switch {
		case m.query.Search != "":
			m.selectCategory(article.Categories[m.categoryIndex])
			m.resetFilter()
			m.loading = true
			return m, loadArticles(m.common, m.query)
		case m.filterState == filterApplied:
			m.resetFilter()
		}

	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		category := m.cycleCategory(delta)
		m.resetFilter()
		m.loading = true
		return m, tea.Batch(
			loadArticles(m.common, m.query),
			persistCategory(m.common.deps.Preferences, category),
		)

	case "enter", "l":
		if i, ok := m.selected(); ok {
			return m, func() tea.Msg { return openArticleMsg(i) }
		}

	case " ":
		if i, ok := m.selected(); ok {
			return m, listen(m.common, i)
		}

	case "s":
		return m, stopAll(n)

	case "v", "V":
		if i, ok := m.selected(); ok {
			return m, changeVoice(ctx, n, i, msg.String() == "v")
		}

	case "?":
		m.showHelp = !m.showHelp
		m.clampOffset()
	}

	return m, nil
}

// VIEW

func (m listModel) view() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	body := m.bodyView()
	b.WriteString(body)

	// Push the footer to the bottom of the screen.
	used := listHeaderHeight + strings.Count(body, "\n")
	if m.showHelp {
		used += strings.Count(m.helpView(), "\n") + 1
	}
	if gap := m.common.height - used - listFooterHeight + 1; gap > 0 {
		b.WriteString(strings.Repeat("\n", gap))
	}

	if m.filterState == filtering {
		b.WriteString(" " + m.filterInput.View() + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.statusBarView())
	if m.showHelp {
		b.WriteString("\n" + m.helpView())
	}
	return b.String()
}

func (m listModel) headerView() string {
	if m.query.Search != "" {
		return " " + logoView() + "  " + activeTabStyle("Search: "+m.query.Search) +
			"  " + subtleStyle("esc to go back")
	}
	var tabs []string
	for i, c := range article.Categories {
		if i == m.categoryIndex {
			tabs = append(tabs, activeTabStyle(c))
		} else {
			tabs = append(tabs, tabStyle(c))
		}
	}
	s := " " + logoView() + "  " + strings.Join(tabs, "")
	if m.common.width > 0 {
		s = truncate.StringWithTail(s, uint(m.common.width), ellipsis) //nolint:gosec
	}
	return s
}

func (m listModel) bodyView() string {
	switch {
	case m.loading && len(m.articles) == 0:
		return "  " + m.common.spinner.View() + " Loading news..."
	case m.loadErr != nil:
		return "  " + errorStyle("Couldn't load the news: "+m.loadErr.Error()) + "\n\n  " +
			subtleStyle("press r to try again")
	case len(m.articles) == 0:
		return "  " + grayStyle("No articles here. Try another category.")
	case len(m.visible) == 0:
		return "  " + grayStyle("Nothing matched. Press enter to search the news.")
	}

	n := m.common.narrator()
	per := m.perPage()
	end := min(m.offset+per, len(m.visible))

	var b strings.Builder
	for row := m.offset; row < end; row++ {
		i := m.visible[row]
		m.itemView(&b, i, m.articles[i], row == m.cursor, n)
	}
	if len(m.visible) > per {
		fmt.Fprintf(&b, "  %s", dimStyle(fmt.Sprintf("%d–%d of %d", m.offset+1, end, len(m.visible))))
	}
	return b.String()
}

func (m listModel) itemView(b *strings.Builder, index int, a article.Article, selected bool, n Narrator) {
	width := max(10, m.common.width-listGutter-2)

	gutter := "  "
	title := a.Title
	if strings.TrimSpace(title) == "" {
		title = "(untitled)"
	}
	title = runewidth.Truncate(title, width, ellipsis)
	if selected {
		gutter = selectedStyle("│ ")
		title = selectedStyle(title)
	} else {
		title = brightStyle(title)
	}

	var meta []string
	if a.Source.Name != "" {
		meta = append(meta, a.Source.Name)
	}
	if !a.PublishedAt.IsZero() {
		meta = append(meta, humanize.Time(a.PublishedAt))
	}
	meta = append(meta, voiceName(n.Voice(index)))
	metaLine := truncate.StringWithTail(strings.Join(meta, " • "), uint(width), ellipsis) //nolint:gosec

	control := n.Control(index)
	button := listenButton(m.common, control)
	if note := controlNote(control); note != "" {
		room := width - ansi.PrintableRuneWidth(button) - 2
		if room > 0 {
			button += "  " + truncate.StringWithTail(note, uint(room), ellipsis) //nolint:gosec
		}
	}

	fmt.Fprintf(b, " %s%s\n", gutter, title)
	fmt.Fprintf(b, " %s%s\n", gutter, dimStyle(metaLine))
	fmt.Fprintf(b, " %s%s\n", gutter, button)
	b.WriteString("\n")
}

func (m listModel) statusBarView() string {
	showMessage := m.statusMessage.message != ""

	logo := logoView()

	var note string
	switch {
	case showMessage:
		note = m.statusMessage.message
	case m.loading:
		note = "Loading..."
	case m.query.Search != "":
		note = fmt.Sprintf("%d results for %q", len(m.articles), m.query.Search)
	default:
		note = fmt.Sprintf("%d articles in %s", len(m.articles), m.query.Category)
	}
	if !showMessage && m.common.cfg.ShowStats {
		st := m.common.narrator().Stats()
		note += fmt.Sprintf(" • cache %d/%d • generated %d • failed %d",
			st.CacheHits, st.CacheHits+st.CacheMisses, st.Generations, st.Failures)
	}

	voiceNote := " " + voiceName(m.common.narrator().DefaultVoice()) + " "
	helpNote := " ? Help "
	if showMessage {
		helpNote = statusBarMessageHelpStyle(helpNote)
	} else {
		helpNote = statusBarHelpStyle(helpNote)
	}
	voiceNote = statusBarVoiceStyle(voiceNote)

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(voiceNote)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	if showMessage {
		style = statusBarMessageStyle
		if m.statusMessage.isError {
			style = statusBarErrorStyle
		}
	}
	note = style(note)

	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(voiceNote)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	return logo + note + emptySpace + voiceNote + helpNote
}

func (m listModel) helpView() string {
	s := "\n"
	s += "k/↑      up                  space   listen / pause\n"
	s += "j/↓      down                s       stop\n"
	s += "←/→      category            v/V     next/previous voice\n"
	s += "enter    read article        /       find or search\n"
	s += "r        reload              q       quit"

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
