// Package playback enforces that at most one narration plays at a time.
//
// A Controller owns a single optional session. Starting a session for any
// article stops the previous one first. Events from audio handles that no
// longer own the session are dropped.
package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Snapshot describes a session at a point in time.
type Snapshot struct {
	SessionID string
	Article   int
	AudioRef  string
	State     State
	Position  time.Duration
	Duration  time.Duration
}

// Progress returns the playback position in percent.
func (s Snapshot) Progress() int {
	if s.Duration <= 0 {
		return 0
	}
	p := int(s.Position * 100 / s.Duration)
	if p > 100 {
		return 100
	}
	return p
}

// Callbacks are invoked for a session's events, never with the controller
// lock held.
type Callbacks struct {
	// OnStateChange fires on entering Loading, PendingUserGesture, Playing
	// or Paused.
	OnStateChange func(Snapshot)
	OnProgress    func(Snapshot)
	OnEnded       func(Snapshot)
	OnStopped     func(snap Snapshot, reason string)
	OnError       func(snap Snapshot, err error)
}

// StartRequest starts a session.
type StartRequest struct {
	Article   int
	AudioRef  string
	AutoPlay  bool
	Callbacks Callbacks
}

// Stats counts sessions by outcome.
type Stats struct {
	Started          int64
	Ended            int64
	Stopped          int64
	Errored          int64
	AutoplayRejected int64
}

// Controller is the process-wide playback authority.
type Controller struct {
	backend Backend
	logger  *log.Logger

	mu      sync.Mutex
	session *session
	stats   Stats
}

type session struct {
	id        string
	article   int
	audioRef  string
	autoPlay  bool
	sm        *stateMachine
	handle    Handle
	position  time.Duration
	duration  time.Duration
	callbacks Callbacks
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		SessionID: s.id,
		Article:   s.article,
		AudioRef:  s.audioRef,
		State:     s.sm.Current(),
		Position:  s.position,
		Duration:  s.duration,
	}
}

// NewController returns a Controller playing audio through backend.
func NewController(backend Backend, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{backend: backend, logger: logger}
}

// Start stops any current session and starts loading req.AudioRef for
// req.Article. It returns the new session's id.
func (c *Controller) Start(req StartRequest) (string, error) {
	if req.AudioRef == "" {
		return "", fmt.Errorf("%w: empty audio reference", ErrPlayback)
	}

	c.mu.Lock()
	notify := c.stopLocked("superseded")

	s := &session{
		id:        uuid.NewString(),
		article:   req.Article,
		audioRef:  req.AudioRef,
		autoPlay:  req.AutoPlay,
		sm:        newStateMachine(),
		callbacks: req.Callbacks,
	}
	s.sm.Transition(StateLoading)
	c.session = s
	c.stats.Started++

	c.logger.Debug("Playback session started",
		"session", s.id,
		"article", s.article,
		"audio", s.audioRef,
		"autoplay", s.autoPlay)

	handle, err := c.backend.Load(req.AudioRef, &sessionListener{c: c, id: s.id})
	if err != nil {
		notify = append(notify, c.failLocked(s, err)...)
		c.mu.Unlock()
		run(notify)
		return "", fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	s.handle = handle
	notify = append(notify, stateChanged(s))
	c.mu.Unlock()

	run(notify)
	return s.id, nil
}

// Toggle pauses or resumes the session owned by article. From
// PendingUserGesture it starts playback as a user action. It returns
// ErrNotActive if article does not own the session.
func (c *Controller) Toggle(article int) error {
	c.mu.Lock()
	s := c.session
	if s == nil || s.article != article {
		c.mu.Unlock()
		return ErrNotActive
	}

	var (
		notify []func()
		result error
	)
	switch s.sm.Current() {
	case StatePlaying:
		if err := s.handle.Pause(); err != nil {
			notify = c.failLocked(s, err)
			result = fmt.Errorf("%w: %v", ErrPlayback, err)
			break
		}
		s.sm.Transition(StatePaused)
		notify = append(notify, stateChanged(s))

	case StatePaused, StatePendingUserGesture:
		err := s.handle.Play(true)
		switch {
		case err == nil:
			s.sm.Transition(StatePlaying)
			notify = append(notify, stateChanged(s))
		case errors.Is(err, ErrAutoplayRejected):
			c.stats.AutoplayRejected++
			result = err
		default:
			notify = c.failLocked(s, err)
			result = fmt.Errorf("%w: %v", ErrPlayback, err)
		}

	default:
		// Still loading. The ready event will decide.
	}
	c.mu.Unlock()

	run(notify)
	return result
}

// Stop ends the current session, if any.
func (c *Controller) Stop(reason string) {
	c.mu.Lock()
	notify := c.stopLocked(reason)
	c.mu.Unlock()

	run(notify)
}

// Active returns a snapshot of the current session.
func (c *Controller) Active() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Snapshot{State: StateIdle, Article: -1}, false
	}
	return c.session.snapshot(), true
}

// Owns reports whether article owns the current session.
func (c *Controller) Owns(article int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session != nil && c.session.article == article
}

// State returns the current session state, StateIdle if there is none.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return StateIdle
	}
	return c.session.sm.Current()
}

// Stats returns the session counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}

// stopLocked must be called with the lock held.
func (c *Controller) stopLocked(reason string) []func() {
	s := c.session
	if s == nil {
		return nil
	}

	s.sm.Transition(StateStopped)
	snap := s.snapshot()
	c.release(s)
	c.stats.Stopped++

	c.logger.Debug("Playback session stopped", "session", s.id, "article", s.article, "reason", reason)

	if cb := s.callbacks.OnStopped; cb != nil {
		return []func(){func() { cb(snap, reason) }}
	}
	return nil
}

// failLocked must be called with the lock held.
func (c *Controller) failLocked(s *session, cause error) []func() {
	s.sm.Transition(StateErrored)
	snap := s.snapshot()
	c.release(s)
	c.stats.Errored++

	c.logger.Debug("Playback session failed", "session", s.id, "article", s.article, "error", cause)

	err := fmt.Errorf("%w: %v", ErrPlayback, cause)
	if cb := s.callbacks.OnError; cb != nil {
		return []func(){func() { cb(snap, err) }}
	}
	return nil
}

// release closes the session's handle and returns the controller to idle.
// It must be called with the lock held.
func (c *Controller) release(s *session) {
	if s.handle != nil {
		if err := s.handle.Close(); err != nil {
			c.logger.Debug("Closing audio handle failed", "session", s.id, "error", err)
		}
	}
	s.sm.Transition(StateIdle)
	if c.session == s {
		c.session = nil
	}
}

// current returns the session if id still owns the controller. It must be
// called with the lock held.
func (c *Controller) current(id string) *session {
	if c.session == nil || c.session.id != id {
		return nil
	}
	return c.session
}

func (c *Controller) ready(id string, duration time.Duration) {
	c.mu.Lock()
	s := c.current(id)
	if s == nil || s.sm.Current() != StateLoading {
		c.mu.Unlock()
		return
	}
	s.duration = duration

	var notify []func()
	if !s.autoPlay {
		s.sm.Transition(StatePendingUserGesture)
		notify = append(notify, stateChanged(s))
	} else {
		err := s.handle.Play(false)
		switch {
		case err == nil:
			s.sm.Transition(StatePlaying)
			notify = append(notify, stateChanged(s))
		case errors.Is(err, ErrAutoplayRejected):
			c.stats.AutoplayRejected++
			c.logger.Debug("Autoplay rejected, waiting for user", "session", s.id)
			s.sm.Transition(StatePendingUserGesture)
			notify = append(notify, stateChanged(s))
		default:
			notify = c.failLocked(s, err)
		}
	}
	c.mu.Unlock()

	run(notify)
}

func (c *Controller) progress(id string, position, duration time.Duration) {
	c.mu.Lock()
	s := c.current(id)
	if s == nil || s.sm.Current() != StatePlaying {
		c.mu.Unlock()
		return
	}
	s.position = position
	if duration > 0 {
		s.duration = duration
	}
	snap := s.snapshot()
	cb := s.callbacks.OnProgress
	c.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

func (c *Controller) ended(id string) {
	c.mu.Lock()
	s := c.current(id)
	if s == nil || !s.sm.Transition(StateEnded) {
		c.mu.Unlock()
		return
	}
	s.position = s.duration
	snap := s.snapshot()
	c.release(s)
	c.stats.Ended++
	cb := s.callbacks.OnEnded
	c.mu.Unlock()

	c.logger.Debug("Playback session ended", "session", id)
	if cb != nil {
		cb(snap)
	}
}

func (c *Controller) failed(id string, err error) {
	c.mu.Lock()
	s := c.current(id)
	if s == nil {
		c.mu.Unlock()
		return
	}
	notify := c.failLocked(s, err)
	c.mu.Unlock()

	run(notify)
}

func stateChanged(s *session) func() {
	snap := s.snapshot()
	cb := s.callbacks.OnStateChange
	return func() {
		if cb != nil {
			cb(snap)
		}
	}
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// sessionListener forwards backend events tagged with the session that
// loaded the audio.
type sessionListener struct {
	c  *Controller
	id string
}

func (l *sessionListener) OnReady(duration time.Duration) { l.c.ready(l.id, duration) }

func (l *sessionListener) OnProgress(position, duration time.Duration) {
	l.c.progress(l.id, position, duration)
}

func (l *sessionListener) OnEnded() { l.c.ended(l.id) }

func (l *sessionListener) OnError(err error) { l.c.failed(l.id, err) }
