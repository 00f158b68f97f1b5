// Package ui provides the interactive news reader.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/narration"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

// ArticleLister fetches article listings.
type ArticleLister interface {
	List(ctx context.Context, q article.Query) ([]article.Article, error)
}

// Narrator narrates the listed articles. *narration.Orchestrator satisfies
// it.
type Narrator interface {
	SetArticles(articles []article.Article)
	Articles() []article.Article
	Voice(index int) voice.ID
	DefaultVoice() voice.ID
	SetDefaultVoice(v voice.ID)
	Preload(ctx context.Context, n int) int
	Control(index int) narration.ControlState
	Subscribe(fn func(narration.Event)) func()
	Stats() narration.Stats
	StopAll()
	RequestNarration(ctx context.Context, index int, autoPlay bool) error
	ChangeVoice(ctx context.Context, index int, v voice.ID) error
}

// Preferences persists choices made in the UI.
type Preferences interface {
	SetCategory(category string) error
}

// Deps are the services the UI runs against. Preferences may be nil.
type Deps struct {
	Articles    ArticleLister
	Narrator    Narrator
	Preferences Preferences
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug(
		"Starting newsreader",
		"category",
		cfg.Category,
		"glamour",
		cfg.GlamourEnabled,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	m := newModel(cfg, deps)
	return tea.NewProgram(m, opts...)
}

// PreferencesChangedMsg tells a running program that the configuration file
// changed on disk.
type PreferencesChangedMsg struct {
	Category string
	Voice    voice.ID
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	articlesLoadedMsg struct {
		query    article.Query
		articles []article.Article
	}
	articlesFailedMsg struct {
		query article.Query
		err   error
	}
	openArticleMsg          int
	contentRenderedMsg      string
	narrationEventMsg       narration.Event
	statusMessageTimeoutMsg applicationContext
)

// narrationDoneMsg is sent when a listen or voice change returns.
type narrationDoneMsg struct {
	index int
	err   error
}

// applicationContext indicates the area of the application something applies
// to. Occasionally used as an argument to commands and messages.
type applicationContext int

const (
	listContext applicationContext = iota
	pagerContext
)

// state is the top-level application state.
type state int

const (
	stateShowList state = iota
	stateShowArticle
)

func (s state) String() string {
	return map[state]string{
		stateShowList:    "showing article list",
		stateShowArticle: "showing article",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	deps   Deps
	ctx    context.Context
	width  int
	height int

	spinner  spinner.Model
	spinning bool
	progress progress.Model
}

func (c *commonModel) narrator() Narrator { return c.deps.Narrator }

type model struct {
	common   *commonModel
	state    state
	fatalErr error

	// Sub-models
	list  listModel
	pager pagerModel

	// Orchestrator events arrive here from whatever goroutine produced
	// them.
	events      chan narration.Event
	unsubscribe func()
	cancel      context.CancelFunc
}

func newModel(cfg Config, deps Deps) model {
	if cfg.GlamourStyle == "" || cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	common := commonModel{
		cfg:  cfg,
		deps: deps,
		ctx:  ctx,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(spinnerStyle),
		),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(progressWidth),
			progress.WithoutPercentage(),
		),
	}

	events, unsubscribe := subscribe(deps.Narrator)
	return model{
		common:      &common,
		state:       stateShowList,
		list:        newListModel(&common),
		pager:       newPagerModel(&common),
		events:      events,
		unsubscribe: unsubscribe,
		cancel:      cancel,
	}
}

func (m model) Init() tea.Cmd {
	m.common.spinning = true
	return tea.Batch(
		loadArticles(m.common, m.list.query),
		waitForEvent(m.events),
		m.common.spinner.Tick,
	)
}

// shutdown stops playback and releases the orchestrator subscription.
func (m model) shutdown() tea.Cmd {
	log.Debug("shutting down")
	m.unsubscribe()
	m.common.narrator().StopAll()
	m.cancel()
	return tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, m.shutdown()
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "h", "delete":
			if m.state == stateShowArticle && !m.pager.showHelp {
				m.state = stateShowList
				m.pager.unload()
				return m, nil
			}

		case "r":
			if m.state == stateShowList && m.list.filterState != filtering {
				m.list.loading = true
				return m, tea.Batch(loadArticles(m.common, m.list.query), m.startSpinner())
			}

		case "q":
			if m.state == stateShowList && m.list.filterState == filtering {
				break
			}
			return m, m.shutdown()

		case "ctrl+z":
			return m, tea.Suspend

		// Ctrl+C always quits no matter where in the application you are.
		case "ctrl+c":
			return m, m.shutdown()
		}

	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.list.setSize(msg.Width, msg.Height)
		m.pager.setSize(msg.Width, msg.Height)
		if m.state == stateShowArticle {
			cmds = append(cmds, renderWithGlamour(m.pager, m.pager.markdown()))
		}

	case errMsg:
		m.fatalErr = msg
		return m, nil

	case articlesLoadedMsg:
		if msg.query != m.list.query {
			// a newer listing was requested
			return m, nil
		}
		log.Debug("articles loaded", "count", len(msg.articles), "category", msg.query.Category, "search", msg.query.Search)
		m.common.narrator().SetArticles(msg.articles)
		m.list.setArticles(msg.query, msg.articles)
		cmds = append(cmds, preload(m.common.ctx, m.common.narrator()))
		if m.state == stateShowArticle {
			m.state = stateShowList
			m.pager.unload()
		}

	case articlesFailedMsg:
		if msg.query != m.list.query {
			return m, nil
		}
		log.Error("failed to load articles", "error", msg.err)
		m.list.loading = false
		m.list.loadErr = msg.err

	case openArticleMsg:
		articles := m.common.narrator().Articles()
		index := int(msg)
		if index < 0 || index >= len(articles) {
			return m, nil
		}
		m.state = stateShowArticle
		m.pager.setArticle(index, articles[index])
		return m, renderWithGlamour(m.pager, m.pager.markdown())

	case narrationEventMsg:
		cmds = append(cmds, waitForEvent(m.events))
		if msg.Control.Phase == narration.PhaseLoading {
			cmds = append(cmds, m.startSpinner())
		}

	case narrationDoneMsg:
		if text := narration.UserMessage(msg.err); text != "" {
			log.Warn("narration failed", "article", msg.index, "error", msg.err)
			status := statusMessage{message: text, isError: true}
			if m.state == stateShowArticle {
				cmds = append(cmds, m.pager.showStatusMessage(status))
			} else {
				cmds = append(cmds, m.list.showStatusMessage(status))
			}
		}

	case PreferencesChangedMsg:
		if msg.Voice != "" {
			m.common.narrator().SetDefaultVoice(msg.Voice)
		}
		if msg.Category != "" && m.list.query.Search == "" && !strings.EqualFold(msg.Category, m.list.query.Category) {
			if m.list.selectCategory(msg.Category) {
				m.list.loading = true
				cmds = append(cmds, loadArticles(m.common, m.list.query), m.startSpinner())
			}
		}

	case spinner.TickMsg:
		if !m.shouldSpin() {
			m.common.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.common.spinner, cmd = m.common.spinner.Update(msg)
		return m, cmd
	}

	// Process children
	switch m.state {
	case stateShowList:
		newListModel, cmd := m.list.update(msg)
		m.list = newListModel
		cmds = append(cmds, cmd)

	case stateShowArticle:
		newPagerModel, cmd := m.pager.update(msg)
		m.pager = newPagerModel
		cmds = append(cmds, cmd)
	}

	if m.list.loading {
		cmds = append(cmds, m.startSpinner())
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	switch m.state {
	case stateShowArticle:
		return m.pager.View()
	default:
		return m.list.view()
	}
}

// shouldSpin reports whether anything on screen is waiting.
func (m model) shouldSpin() bool {
	if m.list.loading {
		return true
	}
	n := m.common.narrator()
	for i := range n.Articles() {
		if n.Control(i).Phase == narration.PhaseLoading {
			return true
		}
	}
	return false
}

// startSpinner returns the first tick if the spinner is not already running.
func (m model) startSpinner() tea.Cmd {
	if m.common.spinning {
		return nil
	}
	m.common.spinning = true
	return m.common.spinner.Tick
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%s\n\n%s",
		errorTitleStyle(" ERROR "),
		err,
		subtleStyle(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func loadArticles(common *commonModel, q article.Query) tea.Cmd {
	lister := common.deps.Articles
	ctx := common.ctx
	return func() tea.Msg {
		articles, err := lister.List(ctx, q)
		if err != nil {
			return articlesFailedMsg{query: q, err: err}
		}
		return articlesLoadedMsg{query: q, articles: articles}
	}
}

func persistCategory(prefs Preferences, category string) tea.Cmd {
	if prefs == nil {
		return nil
	}
	return func() tea.Msg {
		if err := prefs.SetCategory(category); err != nil {
			log.Warn("could not save category", "category", category, "error", err)
		}
		return nil
	}
}

func waitForStatusMessageTimeout(appCtx applicationContext, t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg(appCtx)
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
