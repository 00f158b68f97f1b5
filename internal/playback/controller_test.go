package playback

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects callback invocations.
type recorder struct {
	mu      sync.Mutex
	states  []State
	ended   int
	stopped []string
	errs    []error
	last    Snapshot
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStateChange: func(s Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s.State)
			r.last = s
		},
		OnProgress: func(s Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.last = s
		},
		OnEnded: func(s Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ended++
			r.last = s
		},
		OnStopped: func(s Snapshot, reason string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stopped = append(r.stopped, reason)
		},
		OnError: func(s Snapshot, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func start(t *testing.T, c *Controller, article int, autoPlay bool, r *recorder) string {
	t.Helper()
	id, err := c.Start(StartRequest{
		Article:   article,
		AudioRef:  "/static/audio/x.mp3",
		AutoPlay:  autoPlay,
		Callbacks: r.callbacks(),
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return id
}

func TestController_AutoPlay(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)
	r := &recorder{}

	start(t, c, 3, true, r)
	if got := c.State(); got != StateLoading {
		t.Fatalf("State = %v, want loading", got)
	}

	backend.Last().Ready(10 * time.Second)
	if got := c.State(); got != StatePlaying {
		t.Fatalf("State = %v, want playing", got)
	}
	if g := backend.Last().Gestures(); len(g) != 1 || g[0] {
		t.Errorf("Play gestures = %v, want one automatic play", g)
	}

	backend.Last().Progress(5*time.Second, 10*time.Second)
	snap, ok := c.Active()
	if !ok || snap.Progress() != 50 || snap.Article != 3 {
		t.Errorf("Active = %+v, %v", snap, ok)
	}

	backend.Last().Finish()
	if c.State() != StateIdle {
		t.Errorf("State after finish = %v, want idle", c.State())
	}
	if r.ended != 1 {
		t.Errorf("ended callbacks = %d, want 1", r.ended)
	}
	if r.last.State != StateEnded {
		t.Errorf("ended snapshot state = %v", r.last.State)
	}
	if !backend.Last().IsClosed() {
		t.Error("handle not released after completion")
	}
	want := []State{StateLoading, StatePlaying}
	if len(r.states) != len(want) || r.states[0] != want[0] || r.states[1] != want[1] {
		t.Errorf("states = %v, want %v", r.states, want)
	}
}

func TestController_AutoplayRejected(t *testing.T) {
	backend := NewMockBackend()
	backend.RejectAutoplay = true
	c := NewController(backend, nil)
	r := &recorder{}

	start(t, c, 1, true, r)
	backend.Last().Ready(time.Second)

	if got := c.State(); got != StatePendingUserGesture {
		t.Fatalf("State = %v, want pending user gesture", got)
	}
	if len(r.errs) != 0 {
		t.Errorf("autoplay rejection reported as error: %v", r.errs)
	}

	if err := c.Toggle(1); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if got := c.State(); got != StatePlaying {
		t.Errorf("State after gesture = %v, want playing", got)
	}
	if g := backend.Last().Gestures(); len(g) != 2 || !g[1] {
		t.Errorf("gestures = %v, want second play to be a user gesture", g)
	}
	if c.Stats().AutoplayRejected != 1 {
		t.Errorf("AutoplayRejected = %d", c.Stats().AutoplayRejected)
	}
}

func TestController_GestureRejectedStaysPending(t *testing.T) {
	backend := NewMockBackend()
	backend.RejectGestures = true
	c := NewController(backend, nil)

	start(t, c, 1, false, &recorder{})
	backend.Last().Ready(time.Second)

	if err := c.Toggle(1); !errors.Is(err, ErrAutoplayRejected) {
		t.Errorf("Toggle error = %v, want ErrAutoplayRejected", err)
	}
	if got := c.State(); got != StatePendingUserGesture {
		t.Errorf("State = %v, want still pending", got)
	}
}

func TestController_ManualPlay(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)

	start(t, c, 2, false, &recorder{})
	backend.Last().Ready(time.Second)

	if got := c.State(); got != StatePendingUserGesture {
		t.Fatalf("State = %v, want pending user gesture", got)
	}
	if backend.PlayCount() != 0 {
		t.Error("Play called without autoplay")
	}
}

func TestController_TogglePauseResume(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)
	r := &recorder{}

	start(t, c, 0, true, r)
	backend.Last().Ready(time.Second)

	tests := []State{StatePaused, StatePlaying, StatePaused}
	for i, want := range tests {
		if err := c.Toggle(0); err != nil {
			t.Fatalf("Toggle %d failed: %v", i, err)
		}
		if got := c.State(); got != want {
			t.Errorf("after toggle %d State = %v, want %v", i, got, want)
		}
	}

	if err := c.Toggle(5); !errors.Is(err, ErrNotActive) {
		t.Errorf("Toggle(other) error = %v, want ErrNotActive", err)
	}
}

func TestController_StartStopsPrevious(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)
	first := &recorder{}

	start(t, c, 0, true, first)
	backend.Last().Ready(time.Second)
	firstHandle := backend.Last()

	start(t, c, 1, true, &recorder{})
	backend.Last().Ready(time.Second)

	if !firstHandle.IsClosed() {
		t.Error("previous handle still open")
	}
	if len(first.stopped) != 1 || first.stopped[0] != "superseded" {
		t.Errorf("first session stop reasons = %v", first.stopped)
	}
	if n := len(backend.Playing()); n != 1 {
		t.Errorf("%d handles playing, want 1", n)
	}

	snap, _ := c.Active()
	if snap.Article != 1 {
		t.Errorf("active article = %d, want 1", snap.Article)
	}
}

func TestController_StaleEventsIgnored(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)
	first := &recorder{}

	start(t, c, 0, true, first)
	stale := backend.Last()

	start(t, c, 1, true, &recorder{})
	current := backend.Last()

	// Events from the replaced handle must not touch the new session.
	stale.Ready(time.Second)
	stale.Progress(time.Second, time.Second)
	stale.Fail(errors.New("decode error"))
	stale.Finish()

	if got := c.State(); got != StateLoading {
		t.Errorf("State = %v, want loading", got)
	}
	if len(first.errs) != 0 || first.ended != 0 {
		t.Errorf("stale session received callbacks: errs=%v ended=%d", first.errs, first.ended)
	}

	current.Ready(time.Second)
	if got := c.State(); got != StatePlaying {
		t.Errorf("State = %v, want playing", got)
	}
}

func TestController_Stop(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)
	r := &recorder{}

	c.Stop("nothing to stop")

	start(t, c, 4, true, r)
	backend.Last().Ready(time.Second)
	c.Stop("user")

	if c.State() != StateIdle {
		t.Errorf("State = %v, want idle", c.State())
	}
	if _, ok := c.Active(); ok {
		t.Error("session still active after Stop")
	}
	if len(r.stopped) != 1 || r.stopped[0] != "user" {
		t.Errorf("stop reasons = %v", r.stopped)
	}
	if !backend.Last().IsClosed() {
		t.Error("handle not closed")
	}
}

func TestController_Errors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		backend := NewMockBackend()
		backend.LoadErr = errors.New("unsupported format")
		c := NewController(backend, nil)
		r := &recorder{}

		_, err := c.Start(StartRequest{Article: 0, AudioRef: "x", Callbacks: r.callbacks()})
		if !errors.Is(err, ErrPlayback) {
			t.Errorf("Start error = %v, want ErrPlayback", err)
		}
		if c.State() != StateIdle || len(r.errs) != 1 {
			t.Errorf("State = %v, errors = %v", c.State(), r.errs)
		}
	})

	t.Run("playback failure", func(t *testing.T) {
		backend := NewMockBackend()
		c := NewController(backend, nil)
		r := &recorder{}

		start(t, c, 0, true, r)
		backend.Last().Ready(time.Second)
		backend.Last().Fail(errors.New("network lost"))

		if c.State() != StateIdle {
			t.Errorf("State = %v, want idle", c.State())
		}
		if len(r.errs) != 1 || !errors.Is(r.errs[0], ErrPlayback) {
			t.Errorf("errors = %v", r.errs)
		}
		if c.Stats().Errored != 1 {
			t.Errorf("Errored = %d", c.Stats().Errored)
		}
	})

	t.Run("play failure", func(t *testing.T) {
		backend := NewMockBackend()
		backend.PlayErr = errors.New("device busy")
		c := NewController(backend, nil)
		r := &recorder{}

		start(t, c, 0, true, r)
		backend.Last().Ready(time.Second)

		if c.State() != StateIdle || len(r.errs) != 1 {
			t.Errorf("State = %v, errors = %v", c.State(), r.errs)
		}
	})

	t.Run("empty reference", func(t *testing.T) {
		c := NewController(NewMockBackend(), nil)
		if _, err := c.Start(StartRequest{}); !errors.Is(err, ErrPlayback) {
			t.Errorf("Start error = %v", err)
		}
	})
}

func TestController_SingleFlightUnderConcurrency(t *testing.T) {
	backend := NewMockBackend()
	c := NewController(backend, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.Start(StartRequest{Article: i, AudioRef: "a", AutoPlay: true}); err != nil {
				t.Errorf("Start failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, h := range backend.Handles() {
		h.Ready(time.Second)
	}
	if n := len(backend.Playing()); n != 1 {
		t.Errorf("%d handles playing, want exactly 1", n)
	}
}

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []State
		valid bool
	}{
		{"autoplay", []State{StateLoading, StatePlaying, StateEnded, StateIdle}, true},
		{"gesture", []State{StateLoading, StatePendingUserGesture, StatePlaying, StatePaused, StateStopped, StateIdle}, true},
		{"error while loading", []State{StateLoading, StateErrored, StateIdle}, true},
		{"play from idle", []State{StatePlaying}, false},
		{"pause while loading", []State{StateLoading, StatePaused}, false},
		{"end from pending", []State{StateLoading, StatePendingUserGesture, StateEnded}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newStateMachine()
			ok := true
			for _, s := range tt.path {
				if !sm.Transition(s) {
					ok = false
					break
				}
			}
			if ok != tt.valid {
				t.Errorf("path %v valid = %v, want %v", tt.path, ok, tt.valid)
			}
		})
	}
}
