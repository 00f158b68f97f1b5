package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/narration"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

type voiceChange struct {
	index int
	voice voice.ID
}

type fakeNarrator struct {
	mu           sync.Mutex
	articles     []article.Article
	voices       map[int]voice.ID
	defaultVoice voice.ID
	controls     map[int]narration.ControlState
	requests     []int
	changes      []voiceChange
	stops        int
	subscribers  []func(narration.Event)
	unsubscribed bool
	preloads     []int
	err          error
}

func newFakeNarrator() *fakeNarrator {
	return &fakeNarrator{
		voices:       make(map[int]voice.ID),
		defaultVoice: voice.DefaultID,
		controls:     make(map[int]narration.ControlState),
	}
}

func (f *fakeNarrator) SetArticles(articles []article.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = articles
}

func (f *fakeNarrator) Articles() []article.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]article.Article(nil), f.articles...)
}

func (f *fakeNarrator) Voice(index int) voice.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.voices[index]; ok {
		return v
	}
	return f.defaultVoice
}

func (f *fakeNarrator) DefaultVoice() voice.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultVoice
}

func (f *fakeNarrator) SetDefaultVoice(v voice.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultVoice = v
}

func (f *fakeNarrator) Preload(_ context.Context, n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloads = append(f.preloads, n)
	return 0
}

func (f *fakeNarrator) Control(index int) narration.ControlState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.controls[index]
}

func (f *fakeNarrator) Subscribe(fn func(narration.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
	}
}

func (f *fakeNarrator) emit(e narration.Event) {
	f.mu.Lock()
	subs := append(([]func(narration.Event))(nil), f.subscribers...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

func (f *fakeNarrator) Stats() narration.Stats { return narration.Stats{} }

func (f *fakeNarrator) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeNarrator) RequestNarration(_ context.Context, index int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, index)
	return f.err
}

func (f *fakeNarrator) ChangeVoice(_ context.Context, index int, v voice.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, voiceChange{index, v})
	f.voices[index] = v
	return f.err
}

type fakeLister struct {
	mu       sync.Mutex
	queries  []article.Query
	articles []article.Article
	err      error
}

func (f *fakeLister) List(_ context.Context, q article.Query) ([]article.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.articles, f.err
}

type fakePrefs struct {
	mu         sync.Mutex
	categories []string
}

func (f *fakePrefs) SetCategory(category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, category)
	return nil
}

var testArticles = []article.Article{
	{
		Title:       "Council approves budget",
		Description: "The city council voted on Tuesday.",
		Content:     "The council approved the budget after a long debate.",
		URL:         "https://news.example.com/budget",
		Source:      article.Source{Name: "City Desk"},
	},
	{
		Title:   "Storm hits the coast",
		Content: "A storm is expected on the coast tonight.",
		URL:     "https://news.example.com/storm",
		Source:  article.Source{Name: "Weather Wire"},
	},
}

type testApp struct {
	m        model
	narrator *fakeNarrator
	lister   *fakeLister
	prefs    *fakePrefs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	app := &testApp{
		narrator: newFakeNarrator(),
		lister:   &fakeLister{articles: testArticles},
		prefs:    &fakePrefs{},
	}
	cfg := Config{
		Category:     "general",
		Language:     "en",
		GlamourStyle: "dark",
	}
	app.m = newModel(cfg, Deps{
		Articles:    app.lister,
		Narrator:    app.narrator,
		Preferences: app.prefs,
	})
	app.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app
}

func (app *testApp) send(msg tea.Msg) tea.Cmd {
	next, cmd := app.m.Update(msg)
	app.m = next.(model)
	return cmd
}

func (app *testApp) load() {
	app.send(articlesLoadedMsg{query: app.m.list.query, articles: testArticles})
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and any batched commands it yields. Only use it on
// commands that return without waiting on timers or channels.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func TestListenLabel(t *testing.T) {
	tests := []struct {
		control narration.ControlState
		want    string
	}{
		{narration.ControlState{}, "▶ Listen"},
		{narration.ControlState{Phase: narration.PhaseLoading}, "Preparing"},
		{narration.ControlState{Phase: narration.PhaseLoading, Progress: 42}, "Generating 42%"},
		{narration.ControlState{Phase: narration.PhaseAwaitingGesture}, "▶ Press space to play"},
		{narration.ControlState{Phase: narration.PhasePlaying, Progress: 10}, "❚❚ Pause"},
		{narration.ControlState{Phase: narration.PhasePaused}, "▶ Resume"},
	}

	for _, tt := range tests {
		t.Run(tt.control.Phase.String(), func(t *testing.T) {
			if got := listenLabel(tt.control); got != tt.want {
				t.Errorf("listenLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArticlesLoaded(t *testing.T) {
	app := newTestApp(t)
	app.load()

	if got := len(app.narrator.Articles()); got != len(testArticles) {
		t.Errorf("narrator has %d articles, want %d", got, len(testArticles))
	}
	if app.m.list.loading {
		t.Error("list still loading")
	}
	if got := len(app.m.list.visible); got != len(testArticles) {
		t.Errorf("visible = %d, want %d", got, len(testArticles))
	}

	view := app.m.View()
	for _, want := range []string{"Council approves budget", "Storm hits the coast", "Listen"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestArticlesLoadedPreloadsContent(t *testing.T) {
	app := newTestApp(t)
	collect(app.send(articlesLoadedMsg{query: app.m.list.query, articles: testArticles}))

	app.narrator.mu.Lock()
	defer app.narrator.mu.Unlock()
	if len(app.narrator.preloads) != 1 || app.narrator.preloads[0] != narration.DefaultPreloadCount {
		t.Errorf("preloads = %v, want [%d]", app.narrator.preloads, narration.DefaultPreloadCount)
	}
}

func TestStaleListingIsIgnored(t *testing.T) {
	app := newTestApp(t)

	app.send(articlesLoadedMsg{
		query:    article.Query{Category: "sports", Language: "en"},
		articles: testArticles,
	})

	if got := len(app.narrator.Articles()); got != 0 {
		t.Errorf("narrator got %d articles from a stale listing", got)
	}
	if !app.m.list.loading {
		t.Error("list should still be waiting for its own listing")
	}
}

func TestListingFailure(t *testing.T) {
	app := newTestApp(t)

	app.send(articlesFailedMsg{query: app.m.list.query, err: errors.New("connection refused")})

	if app.m.list.loading {
		t.Error("list still loading")
	}
	if view := app.m.View(); !strings.Contains(view, "connection refused") {
		t.Errorf("view does not show the error:\n%s", view)
	}
}

func TestSpaceRequestsNarration(t *testing.T) {
	app := newTestApp(t)
	app.load()

	app.send(tea.KeyMsg{Type: tea.KeyDown})
	msgs := collect(app.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}))

	if len(app.narrator.requests) != 1 || app.narrator.requests[0] != 1 {
		t.Fatalf("requests = %v, want [1]", app.narrator.requests)
	}
	if len(msgs) != 1 {
		t.Fatalf("msgs = %v", msgs)
	}
	done, ok := msgs[0].(narrationDoneMsg)
	if !ok || done.index != 1 || done.err != nil {
		t.Errorf("msg = %#v, want narrationDoneMsg for article 1", msgs[0])
	}
}

func TestVoiceKeys(t *testing.T) {
	tests := []struct {
		key  string
		want voice.ID
	}{
		{"v", voice.Next(voice.DefaultID)},
		{"V", voice.Previous(voice.DefaultID)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			app := newTestApp(t)
			app.load()

			collect(app.send(keyRunes(tt.key)))

			if len(app.narrator.changes) != 1 {
				t.Fatalf("changes = %v", app.narrator.changes)
			}
			if got := app.narrator.changes[0]; got.index != 0 || got.voice != tt.want {
				t.Errorf("change = %+v, want article 0 to %s", got, tt.want)
			}
		})
	}
}

func TestStopKey(t *testing.T) {
	app := newTestApp(t)
	app.load()

	collect(app.send(keyRunes("s")))

	if app.narrator.stops != 1 {
		t.Errorf("stops = %d, want 1", app.narrator.stops)
	}
}

func TestCategoryKeys(t *testing.T) {
	tests := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyRight, "world"},
		{tea.KeyLeft, "health"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			app := newTestApp(t)
			app.load()

			msgs := collect(app.send(tea.KeyMsg{Type: tt.key}))

			if got := app.m.list.query.Category; got != tt.want {
				t.Errorf("category = %q, want %q", got, tt.want)
			}
			if !app.m.list.loading {
				t.Error("list is not loading")
			}
			if len(app.prefs.categories) != 1 || app.prefs.categories[0] != tt.want {
				t.Errorf("saved categories = %v", app.prefs.categories)
			}

			var loaded bool
			for _, msg := range msgs {
				if l, ok := msg.(articlesLoadedMsg); ok && l.query.Category == tt.want {
					loaded = true
				}
			}
			if !loaded {
				t.Errorf("no listing requested for %q: %v", tt.want, msgs)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	app := newTestApp(t)
	app.load()

	app.send(keyRunes("/"))
	if app.m.list.filterState != filtering {
		t.Fatalf("filter state = %v, want filtering", app.m.list.filterState)
	}
	app.send(keyRunes("storm"))

	if len(app.m.list.visible) != 1 || app.m.list.visible[0] != 1 {
		t.Fatalf("visible = %v, want [1]", app.m.list.visible)
	}

	// Narration still addresses the article by its listing index.
	app.send(tea.KeyMsg{Type: tea.KeyDown})
	collect(app.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}))
	if len(app.narrator.requests) != 1 || app.narrator.requests[0] != 1 {
		t.Errorf("requests = %v, want [1]", app.narrator.requests)
	}

	app.send(tea.KeyMsg{Type: tea.KeyEsc})
	if got := len(app.m.list.visible); got != len(testArticles) {
		t.Errorf("visible after reset = %d, want %d", got, len(testArticles))
	}
}

func TestFilterEnterSearches(t *testing.T) {
	app := newTestApp(t)
	app.load()

	app.send(keyRunes("/"))
	app.send(keyRunes("budget"))
	msgs := collect(app.send(tea.KeyMsg{Type: tea.KeyEnter}))

	if got := app.m.list.query.Search; got != "budget" {
		t.Fatalf("search = %q, want budget", got)
	}
	if len(app.lister.queries) == 0 {
		t.Fatal("backend was not searched")
	}
	if q := app.lister.queries[len(app.lister.queries)-1]; q.Search != "budget" || q.Language != "en" {
		t.Errorf("query = %+v", q)
	}

	for _, msg := range msgs {
		if l, ok := msg.(articlesLoadedMsg); ok {
			app.send(l)
		}
	}
	if !strings.Contains(app.m.View(), "Search: budget") {
		t.Error("header does not show the search")
	}

	// esc returns to the category listing
	app.send(tea.KeyMsg{Type: tea.KeyEsc})
	if app.m.list.query.Search != "" || app.m.list.query.Category != "general" {
		t.Errorf("query = %+v, want general listing", app.m.list.query)
	}
}

func TestNarrationErrorsShowStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg bool
	}{
		{"no text", narration.ErrNoUsableText, true},
		{"generation", &narration.Error{Op: "generate", Err: narration.ErrGenerationFailed}, true},
		{"superseded", narration.ErrSuperseded, false},
		{"success", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.load()

			app.send(narrationDoneMsg{index: 0, err: tt.err})

			got := app.m.list.statusMessage
			if !tt.wantMsg {
				if got.message != "" {
					t.Errorf("status = %q, want none", got.message)
				}
				return
			}
			if !got.isError || got.message != narration.UserMessage(tt.err) {
				t.Errorf("status = %+v, want error %q", got, narration.UserMessage(tt.err))
			}
		})
	}
}

func TestPreferencesChanged(t *testing.T) {
	app := newTestApp(t)
	app.load()

	msgs := collect(app.send(PreferencesChangedMsg{Category: "Sports", Voice: "fr-FR-DeniseNeural"}))

	if got := app.narrator.DefaultVoice(); got != "fr-FR-DeniseNeural" {
		t.Errorf("default voice = %q", got)
	}
	if got := app.m.list.query.Category; got != "sports" {
		t.Errorf("category = %q, want sports", got)
	}
	if len(msgs) == 0 {
		t.Error("no reload requested")
	}
	// Persisting is the config watcher's job.
	if len(app.prefs.categories) != 0 {
		t.Errorf("saved categories = %v", app.prefs.categories)
	}
}

func TestOpenArticle(t *testing.T) {
	app := newTestApp(t)
	app.load()

	msgs := collect(app.send(tea.KeyMsg{Type: tea.KeyEnter}))
	for _, msg := range msgs {
		app.send(msg)
	}
	if app.m.state != stateShowArticle {
		t.Fatalf("state = %v", app.m.state)
	}

	msgs = collect(app.send(openArticleMsg(0)))
	if len(msgs) != 1 {
		t.Fatalf("msgs = %v", msgs)
	}
	rendered, ok := msgs[0].(contentRenderedMsg)
	if !ok {
		t.Fatalf("msg = %#v, want rendered content", msgs[0])
	}
	if !strings.Contains(string(rendered), "council approved the budget") {
		t.Errorf("rendered content is missing the body:\n%s", rendered)
	}
	app.send(rendered)

	collect(app.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}))
	if len(app.narrator.requests) != 1 || app.narrator.requests[0] != 0 {
		t.Errorf("requests = %v, want [0]", app.narrator.requests)
	}

	app.send(tea.KeyMsg{Type: tea.KeyEsc})
	if app.m.state != stateShowList {
		t.Errorf("state = %v, want list", app.m.state)
	}
}

func TestPagerMarkdown(t *testing.T) {
	app := newTestApp(t)
	app.m.pager.setArticle(0, testArticles[0])

	md := app.m.pager.markdown()
	for _, want := range []string{
		"# Council approves budget",
		"*City Desk*",
		"> The city council voted on Tuesday.",
		"The council approved the budget",
		"(https://news.example.com/budget)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown is missing %q:\n%s", want, md)
		}
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	n := newFakeNarrator()
	ch, unsubscribe := subscribe(n)
	defer unsubscribe()

	for i := 0; i < eventBufferSize*2; i++ {
		n.emit(narration.Event{Index: i})
	}
	if len(ch) != eventBufferSize {
		t.Errorf("buffered = %d, want %d", len(ch), eventBufferSize)
	}
	if e := <-ch; e.Index != 0 {
		t.Errorf("first event = %d, want 0", e.Index)
	}
}

func TestNarrationEventsAreDelivered(t *testing.T) {
	app := newTestApp(t)
	app.load()

	app.narrator.emit(narration.Event{Index: 1, Control: narration.ControlState{Phase: narration.PhasePlaying}})
	msg := waitForEvent(app.m.events)()

	e, ok := msg.(narrationEventMsg)
	if !ok || e.Index != 1 || e.Control.Phase != narration.PhasePlaying {
		t.Errorf("msg = %#v", msg)
	}
}

func TestQuitStopsPlayback(t *testing.T) {
	app := newTestApp(t)
	app.load()

	cmd := app.send(keyRunes("q"))
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if app.narrator.stops != 1 {
		t.Errorf("stops = %d, want 1", app.narrator.stops)
	}
	if !app.narrator.unsubscribed {
		t.Error("subscription was not released")
	}
}
