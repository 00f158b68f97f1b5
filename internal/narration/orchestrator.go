// Package narration coordinates narration requests: it resolves article
// text, consults the cache, generates audio on a miss and hands the result
// to the playback controller, keeping every article's control in a
// consistent state.
package narration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/cache"
	"github.com/aminemaliki7/NEWS/internal/playback"
	"github.com/aminemaliki7/NEWS/internal/tts"
	"github.com/aminemaliki7/NEWS/internal/voice"
	"github.com/charmbracelet/log"
)

// DefaultEnrichThreshold is the content length at or below which full
// article text is fetched before narrating.
const DefaultEnrichThreshold = 500

// DefaultPreloadCount is how many articles at the top of a listing have their
// full text fetched before anyone asks to hear them.
const DefaultPreloadCount = 3

// Synthesizer generates audio for text.
type Synthesizer interface {
	Generate(ctx context.Context, req tts.Request, onProgress func(int)) (string, error)
}

// ContentSource fetches the full text of an article.
type ContentSource interface {
	Content(ctx context.Context, url string) (string, error)
}

// Preferences persists the user's voice choice.
type Preferences interface {
	SetDefaultVoice(v voice.ID) error
}

// Options configures an Orchestrator. Store, Synthesizer and Player are
// required.
type Options struct {
	Store       *cache.Store
	Synthesizer Synthesizer
	Player      *playback.Controller

	Translator  tts.Translator
	Content     ContentSource
	Preferences Preferences

	DefaultVoice    voice.ID
	SourceLanguage  string
	EnrichThreshold int
	Logger          *log.Logger
}

// inflight is a generation in progress.
type inflight struct {
	index  int
	voice  voice.ID
	token  uint64
	cancel context.CancelFunc
}

type translationKey struct {
	ref  article.Ref
	lang string
}

// Orchestrator owns the article list, per-article voice selection and
// control state, the narration cache and the playback controller.
type Orchestrator struct {
	store       *cache.Store
	synth       Synthesizer
	player      *playback.Controller
	translator  tts.Translator
	content     ContentSource
	prefs       Preferences
	source      string
	enrichLimit int
	logger      *log.Logger

	// startMu serialises the final token check with starting playback.
	startMu sync.Mutex

	mu           sync.Mutex
	articles     []article.Article
	refs         []article.Ref
	defaultVoice voice.ID
	voices       map[int]voice.ID
	controls     map[int]ControlState
	token        uint64
	pending      *inflight
	invalidated  map[cache.Key]uint64
	prepared     map[article.Ref]string
	translated   map[translationKey]string
	enriched     map[article.Ref]string
	subscribers  map[int]func(Event)
	nextSubID    int
	stats        Stats
}

// New returns an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	def := opts.DefaultVoice
	if def == "" {
		def = voice.DefaultID
	}
	source := opts.SourceLanguage
	if source == "" {
		source = voice.SourceLanguage
	}
	limit := opts.EnrichThreshold
	if limit <= 0 {
		limit = DefaultEnrichThreshold
	}
	store := opts.Store
	if store == nil {
		store = cache.NewStore(cache.DefaultCapacity)
	}

	return &Orchestrator{
		store:        store,
		synth:        opts.Synthesizer,
		player:       opts.Player,
		translator:   opts.Translator,
		content:      opts.Content,
		prefs:        opts.Preferences,
		source:       source,
		enrichLimit:  limit,
		logger:       logger,
		defaultVoice: def,
		voices:       make(map[int]voice.ID),
		controls:     make(map[int]ControlState),
		invalidated:  make(map[cache.Key]uint64),
		prepared:     make(map[article.Ref]string),
		translated:   make(map[translationKey]string),
		enriched:     make(map[article.Ref]string),
		subscribers:  make(map[int]func(Event)),
	}
}

// SetArticles replaces the article list, as when the category or search
// changes. Playback stops, in-flight requests are superseded and every
// control returns to idle.
func (o *Orchestrator) SetArticles(articles []article.Article) {
	o.player.Stop("article list changed")

	o.mu.Lock()
	o.supersedeLocked()
	o.articles = append([]article.Article(nil), articles...)
	o.refs = make([]article.Ref, len(articles))
	for i, a := range o.articles {
		o.refs[i] = article.RefOf(a, i)
	}
	o.voices = make(map[int]voice.ID)
	o.controls = make(map[int]ControlState)
	o.invalidated = make(map[cache.Key]uint64)
	o.mu.Unlock()
}

// Articles returns the current article list.
func (o *Orchestrator) Articles() []article.Article {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]article.Article(nil), o.articles...)
}

// Voice returns the voice selected for the article at index.
func (o *Orchestrator) Voice(index int) voice.ID {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.voiceLocked(index)
}

// DefaultVoice returns the voice used for articles without a selection.
func (o *Orchestrator) DefaultVoice() voice.ID {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.defaultVoice
}

// SetDefaultVoice changes the voice used for idle articles without a
// selection. Articles that are loading or own the playback session keep the
// voice they started with. The choice is not persisted.
func (o *Orchestrator) SetDefaultVoice(v voice.ID) {
	if v == "" {
		return
	}
	active := o.activeArticle()

	o.mu.Lock()
	defer o.mu.Unlock()

	if v == o.defaultVoice {
		return
	}
	o.pinDefaultLocked(active)
	o.defaultVoice = v
}

// Preload fetches the full text of the first n articles whose listing
// content is short, so narrating them later skips that request. Failures
// are only logged. It returns the number of articles fetched.
func (o *Orchestrator) Preload(ctx context.Context, n int) int {
	if o.content == nil || n <= 0 {
		return 0
	}

	type target struct {
		a   article.Article
		ref article.Ref
	}
	var targets []target
	o.mu.Lock()
	for i := 0; i < len(o.articles) && i < n; i++ {
		a, ref := o.articles[i], o.refs[i]
		if _, ok := o.enriched[ref]; ok || !a.NeedsEnrichment(o.enrichLimit) {
			continue
		}
		targets = append(targets, target{a: a, ref: ref})
	}
	o.mu.Unlock()

	fetched := 0
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		full, err := o.content.Content(ctx, t.a.URL)
		if err != nil {
			o.logger.Debug("Unable to preload content", "url", t.a.URL, "error", err)
			continue
		}
		o.mu.Lock()
		o.enriched[t.ref] = full
		delete(o.prepared, t.ref)
		o.stats.ContentHits++
		o.mu.Unlock()
		fetched++
	}
	return fetched
}

// Control returns the state of the article's listen control.
func (o *Orchestrator) Control(index int) ControlState {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.controls[index]
}

// Subscribe registers fn to receive control changes. Events may be
// delivered from any goroutine. The returned function unsubscribes.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSubID
	o.nextSubID++
	o.subscribers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

// Stats returns the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.stats
}

// CacheStats returns the narration cache counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.store.Stats()
}

// PlaybackStats returns the playback counters.
func (o *Orchestrator) PlaybackStats() playback.Stats {
	return o.player.Stats()
}

// StopAll stops playback and supersedes any in-flight request.
func (o *Orchestrator) StopAll() {
	o.player.Stop("stopped")

	o.mu.Lock()
	events := o.supersedeLocked()
	o.mu.Unlock()

	o.emit(events)
}

// RequestNarration plays the article at index with its selected voice. If
// the article already owns the playback session the call toggles pause
// instead. Cached audio starts immediately; otherwise audio is generated
// first and the call blocks until playback has been handed over.
func (o *Orchestrator) RequestNarration(ctx context.Context, index int, autoPlay bool) error {
	o.mu.Lock()
	o.stats.Requests++
	a, ref, err := o.articleLocked(index)
	if err != nil {
		o.mu.Unlock()
		return &Error{Op: "narrate", Article: index, Err: err}
	}
	if _, ok := o.sourceTextLocked(a, ref); !ok {
		events := o.setControlLocked(index, ControlState{
			Phase:   PhaseIdle,
			Message: UserMessage(ErrNoUsableText),
			Err:     ErrNoUsableText,
		})
		o.mu.Unlock()
		o.emit(events)
		return &Error{Op: "narrate", Article: index, Err: ErrNoUsableText}
	}
	o.mu.Unlock()

	if o.player.Owns(index) {
		o.mu.Lock()
		o.stats.Toggles++
		o.mu.Unlock()

		err := o.player.Toggle(index)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, playback.ErrAutoplayRejected):
			o.mu.Lock()
			events := o.updateControlLocked(index, func(c *ControlState) {
				c.Phase = PhaseAwaitingGesture
				c.Message = UserMessage(err)
			})
			o.mu.Unlock()
			o.emit(events)
			return nil
		case !errors.Is(err, playback.ErrNotActive):
			return &Error{Op: "toggle", Article: index, Err: err}
		}
		// The session ended after the ownership check. Start over.
	}

	o.mu.Lock()
	v := o.voiceLocked(index)
	if p := o.pending; p != nil && p.index == index && p.voice == v {
		o.mu.Unlock()
		return nil
	}
	events := o.supersedeLocked()
	tok := o.token
	o.mu.Unlock()
	o.emit(events)

	if snap, ok := o.player.Active(); ok && snap.Article != index {
		o.player.Stop("another article selected")
	}

	key := cache.NewKey(ref, v)
	if entry, ok := o.store.Get(key); ok {
		o.mu.Lock()
		o.stats.CacheHits++
		o.mu.Unlock()
		o.logger.Debug("Narration cache hit", "key", key, "audio", entry.AudioRef)
		return o.startPlayback(tok, index, v, entry.AudioRef, autoPlay)
	}

	o.logger.Debug("Narration cache miss", "key", key)
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.stats.CacheMisses++
	o.pending = &inflight{index: index, voice: v, token: tok, cancel: cancel}
	events = o.setControlLocked(index, ControlState{Phase: PhaseLoading})
	o.mu.Unlock()
	o.emit(events)

	start := time.Now()
	audioRef, genErr := o.generate(genCtx, tok, index, a, ref, v)

	o.mu.Lock()
	if o.pending != nil && o.pending.token == tok {
		o.pending = nil
	}
	stale := o.token != tok
	if genErr != nil {
		if stale || errors.Is(genErr, ErrSuperseded) {
			o.stats.Superseded++
			o.mu.Unlock()
			return &Error{Op: "narrate", Article: index, Voice: v, Err: ErrSuperseded}
		}
		o.stats.Failures++
		events = o.setControlLocked(index, ControlState{
			Phase:   PhaseIdle,
			Message: UserMessage(genErr),
			Err:     genErr,
		})
		o.mu.Unlock()
		o.emit(events)
		o.logger.Warn("Narration failed", "article", index, "voice", v, "error", genErr)
		return &Error{Op: "generate", Article: index, Voice: v, Err: genErr}
	}

	o.stats.Generations++
	if o.invalidated[key] < tok {
		o.store.Put(key, cache.Entry{AudioRef: audioRef, CreatedAt: time.Now()})
	}
	if stale {
		o.stats.Superseded++
		o.mu.Unlock()
		o.logger.Debug("Discarding superseded narration", "article", index, "voice", v)
		return &Error{Op: "narrate", Article: index, Voice: v, Err: ErrSuperseded}
	}
	o.mu.Unlock()

	o.logger.Debug("Narration ready", "article", index, "voice", v, "duration", time.Since(start))
	return o.startPlayback(tok, index, v, audioRef, autoPlay)
}

// ChangeVoice selects newVoice for the article at index and makes it the
// default for idle articles without a selection. Cached audio for the old and new voice is
// dropped. If the article was playing or loading it is narrated again with
// the new voice; if it was paused it is left idle.
func (o *Orchestrator) ChangeVoice(ctx context.Context, index int, newVoice voice.ID) error {
	active := o.activeArticle()

	o.mu.Lock()
	_, ref, err := o.articleLocked(index)
	if err != nil {
		o.mu.Unlock()
		return &Error{Op: "change voice", Article: index, Voice: newVoice, Err: err}
	}
	old := o.voiceLocked(index)
	if old == newVoice {
		o.mu.Unlock()
		return nil
	}
	o.pinDefaultLocked(active)
	o.voices[index] = newVoice
	o.defaultVoice = newVoice

	for _, key := range []cache.Key{cache.NewKey(ref, old), cache.NewKey(ref, newVoice)} {
		o.store.Invalidate(key)
		o.invalidated[key] = o.token
	}

	var events []Event
	wasLoading := o.pending != nil && o.pending.index == index
	if wasLoading {
		events = o.supersedeLocked()
	}
	o.mu.Unlock()
	o.emit(events)

	if o.prefs != nil {
		if err := o.prefs.SetDefaultVoice(newVoice); err != nil {
			o.logger.Warn("Unable to save voice preference", "voice", newVoice, "error", err)
		}
	}

	wasPlaying := false
	if snap, ok := o.player.Active(); ok && snap.Article == index {
		wasPlaying = snap.State == playback.StatePlaying || snap.State == playback.StateLoading
		o.player.Stop("voice changed")
	}

	o.logger.Debug("Voice changed",
		"article", index,
		"from", old,
		"to", newVoice,
		"restart", wasPlaying || wasLoading)

	if wasPlaying || wasLoading {
		return o.RequestNarration(ctx, index, true)
	}
	return nil
}

// generate resolves, prepares and translates the text, then synthesizes
// it. After each network call it gives up if tok has been superseded.
func (o *Orchestrator) generate(ctx context.Context, tok uint64, index int, a article.Article, ref article.Ref, v voice.ID) (string, error) {
	text, err := o.narrationText(ctx, a, ref)
	if err != nil {
		return "", err
	}
	if o.stale(tok) {
		return "", ErrSuperseded
	}

	if v.NeedsTranslation(o.source) {
		text = o.translate(ctx, tok, index, ref, text, v.Language())
		if o.stale(tok) {
			return "", ErrSuperseded
		}
	}

	req := tts.Request{Text: text, Title: a.Title, Voice: v}
	return o.synth.Generate(ctx, req, func(p int) {
		o.mu.Lock()
		if o.token != tok {
			o.mu.Unlock()
			return
		}
		events := o.updateControlLocked(index, func(c *ControlState) {
			c.Phase = PhaseLoading
			c.Progress = p
		})
		o.mu.Unlock()
		o.emit(events)
	})
}

// narrationText returns the prepared source-language text for a, fetching
// the full article first when the listed content is short.
func (o *Orchestrator) narrationText(ctx context.Context, a article.Article, ref article.Ref) (string, error) {
	o.mu.Lock()
	if text, ok := o.prepared[ref]; ok {
		o.mu.Unlock()
		return text, nil
	}
	_, enriched := o.enriched[ref]
	o.mu.Unlock()

	// Text built without the full content is not kept, so the next request
	// tries the fetch again.
	keep := true
	if !enriched && o.content != nil && a.NeedsEnrichment(o.enrichLimit) {
		full, err := o.content.Content(ctx, a.URL)
		o.mu.Lock()
		if err == nil {
			o.enriched[ref] = full
			o.stats.ContentHits++
		} else {
			o.stats.ContentMisses++
		}
		o.mu.Unlock()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			keep = false
			o.logger.Debug("Full content unavailable, using listing text", "url", a.URL, "error", err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	raw, ok := o.sourceTextLocked(a, ref)
	if !ok {
		return "", ErrNoUsableText
	}
	text := tts.Prepare(raw)
	if text == "" {
		return "", ErrNoUsableText
	}
	if keep {
		o.prepared[ref] = text
	}
	return text, nil
}

// translate returns text in lang, or text unchanged with a notice on the
// article's control when translation fails.
func (o *Orchestrator) translate(ctx context.Context, tok uint64, index int, ref article.Ref, text, lang string) string {
	key := translationKey{ref: ref, lang: lang}
	o.mu.Lock()
	if t, ok := o.translated[key]; ok {
		o.mu.Unlock()
		return t
	}
	o.mu.Unlock()

	err := ErrTranslationFailed
	if o.translator != nil {
		var out string
		out, err = o.translator.Translate(ctx, text, lang)
		if err == nil {
			out = tts.Prepare(out)
			if out == "" {
				err = ErrTranslationFailed
			} else {
				o.mu.Lock()
				o.translated[key] = out
				o.mu.Unlock()
				return out
			}
		}
	}

	o.logger.Warn("Translation failed, narrating original text", "lang", lang, "error", err)
	o.mu.Lock()
	o.stats.TranslationFailures++
	var events []Event
	if o.token == tok {
		events = o.updateControlLocked(index, func(c *ControlState) {
			c.Message = UserMessage(ErrTranslationFailed)
		})
	}
	o.mu.Unlock()
	o.emit(events)
	return text
}

// startPlayback hands audioRef to the controller unless tok has been
// superseded.
func (o *Orchestrator) startPlayback(tok uint64, index int, v voice.ID, audioRef string, autoPlay bool) error {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.stale(tok) {
		o.mu.Lock()
		o.stats.Superseded++
		o.mu.Unlock()
		return &Error{Op: "play", Article: index, Voice: v, Err: ErrSuperseded}
	}

	_, err := o.player.Start(playback.StartRequest{
		Article:   index,
		AudioRef:  audioRef,
		AutoPlay:  autoPlay,
		Callbacks: o.playbackCallbacks(index),
	})
	if err != nil {
		return &Error{Op: "play", Article: index, Voice: v, Err: err}
	}
	return nil
}

func (o *Orchestrator) playbackCallbacks(index int) playback.Callbacks {
	update := func(fn func(*ControlState)) {
		o.mu.Lock()
		events := o.updateControlLocked(index, fn)
		o.mu.Unlock()
		o.emit(events)
	}
	reset := func(c ControlState) {
		o.mu.Lock()
		events := o.setControlLocked(index, c)
		o.mu.Unlock()
		o.emit(events)
	}

	return playback.Callbacks{
		OnStateChange: func(s playback.Snapshot) {
			update(func(c *ControlState) {
				c.Progress = s.Progress()
				c.Err = nil
				switch s.State {
				case playback.StateLoading:
					c.Phase = PhaseLoading
				case playback.StatePendingUserGesture:
					c.Phase = PhaseAwaitingGesture
					c.Message = UserMessage(ErrAutoplayRejected)
				case playback.StatePlaying:
					c.Phase = PhasePlaying
					if c.Message == UserMessage(ErrAutoplayRejected) {
						c.Message = ""
					}
				case playback.StatePaused:
					c.Phase = PhasePaused
				}
			})
		},
		OnProgress: func(s playback.Snapshot) {
			update(func(c *ControlState) {
				c.Phase = PhasePlaying
				c.Progress = s.Progress()
			})
		},
		OnEnded: func(playback.Snapshot) {
			reset(ControlState{Phase: PhaseIdle})
		},
		OnStopped: func(playback.Snapshot, string) {
			reset(ControlState{Phase: PhaseIdle})
		},
		OnError: func(_ playback.Snapshot, err error) {
			o.logger.Warn("Playback failed", "article", index, "error", err)
			reset(ControlState{Phase: PhaseIdle, Message: UserMessage(err), Err: err})
		},
	}
}

func (o *Orchestrator) stale(tok uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.token != tok
}

// supersedeLocked invalidates the current token, cancels the pending
// generation and returns its control to idle. It must be called with the
// lock held.
func (o *Orchestrator) supersedeLocked() []Event {
	o.token++
	p := o.pending
	if p == nil {
		return nil
	}
	o.pending = nil
	p.cancel()
	o.logger.Debug("Superseding pending narration", "article", p.index, "voice", p.voice)

	if o.controls[p.index].Phase != PhaseLoading {
		return nil
	}
	return o.setControlLocked(p.index, ControlState{Phase: PhaseIdle})
}

// articleLocked must be called with the lock held.
func (o *Orchestrator) articleLocked(index int) (article.Article, article.Ref, error) {
	if index < 0 || index >= len(o.articles) {
		return article.Article{}, "", ErrNoSuchArticle
	}
	return o.articles[index], o.refs[index], nil
}

// sourceTextLocked must be called with the lock held.
func (o *Orchestrator) sourceTextLocked(a article.Article, ref article.Ref) (string, bool) {
	if full, ok := o.enriched[ref]; ok && full != "" {
		a.FullContent = full
	}
	return a.NarrationText()
}

// activeArticle returns the article that owns the playback session, or -1.
func (o *Orchestrator) activeArticle() int {
	if snap, ok := o.player.Active(); ok {
		return snap.Article
	}
	return -1
}

// pinDefaultLocked gives every engaged article without a selection the
// current default as an explicit one: the session's article, the pending
// one, and any whose control is not idle. A new default then only reaches
// articles that have no audio on the way or in use. It must be called with
// the lock held.
func (o *Orchestrator) pinDefaultLocked(active int) {
	pin := func(i int) {
		if i < 0 || i >= len(o.articles) {
			return
		}
		if _, ok := o.voices[i]; !ok {
			o.voices[i] = o.defaultVoice
		}
	}

	pin(active)
	if o.pending != nil {
		pin(o.pending.index)
	}
	for i, c := range o.controls {
		if c.Phase != PhaseIdle {
			pin(i)
		}
	}
}

// voiceLocked must be called with the lock held.
func (o *Orchestrator) voiceLocked(index int) voice.ID {
	if v, ok := o.voices[index]; ok {
		return v
	}
	return o.defaultVoice
}

// setControlLocked must be called with the lock held.
func (o *Orchestrator) setControlLocked(index int, c ControlState) []Event {
	o.controls[index] = c
	return []Event{{Index: index, Control: c}}
}

// updateControlLocked must be called with the lock held.
func (o *Orchestrator) updateControlLocked(index int, fn func(*ControlState)) []Event {
	c := o.controls[index]
	fn(&c)
	return o.setControlLocked(index, c)
}

func (o *Orchestrator) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	o.mu.Lock()
	subs := make([]func(Event), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}
