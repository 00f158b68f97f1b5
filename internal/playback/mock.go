package playback

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MockBackend implements Backend without producing sound. Tests drive the
// returned handles with Ready, Progress, Finish and Fail.
type MockBackend struct {
	mu      sync.Mutex
	handles []*MockHandle

	// LoadErr, if set, is returned by Load.
	LoadErr error
	// RejectAutoplay makes Play(false) return ErrAutoplayRejected.
	RejectAutoplay bool
	// RejectGestures makes every Play call return ErrAutoplayRejected.
	RejectGestures bool
	// PlayErr, if set, is returned by Play.
	PlayErr error

	loadCount  atomic.Int64
	playCount  atomic.Int64
	pauseCount atomic.Int64
	closeCount atomic.Int64
}

// NewMockBackend returns an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Load implements Backend.
func (m *MockBackend) Load(ref string, l Listener) (Handle, error) {
	m.loadCount.Add(1)
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	h := &MockHandle{Ref: ref, backend: m, listener: l}
	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()
	return h, nil
}

// Handles returns every handle loaded so far.
func (m *MockBackend) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*MockHandle, len(m.handles))
	copy(out, m.handles)
	return out
}

// Last returns the most recently loaded handle, or nil.
func (m *MockBackend) Last() *MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Playing returns the handles currently playing.
func (m *MockBackend) Playing() []*MockHandle {
	var out []*MockHandle
	for _, h := range m.Handles() {
		if h.IsPlaying() {
			out = append(out, h)
		}
	}
	return out
}

// LoadCount returns the number of Load calls.
func (m *MockBackend) LoadCount() int64 { return m.loadCount.Load() }

// PlayCount returns the number of successful Play calls.
func (m *MockBackend) PlayCount() int64 { return m.playCount.Load() }

// PauseCount returns the number of Pause calls.
func (m *MockBackend) PauseCount() int64 { return m.pauseCount.Load() }

// CloseCount returns the number of Close calls.
func (m *MockBackend) CloseCount() int64 { return m.closeCount.Load() }

// MockHandle is a simulated audio resource.
type MockHandle struct {
	Ref string

	backend  *MockBackend
	listener Listener

	playing atomic.Bool
	closed  atomic.Bool

	mu       sync.Mutex
	gestures []bool
}

// Play implements Handle.
func (h *MockHandle) Play(userGesture bool) error {
	if h.closed.Load() {
		return ErrClosed
	}

	h.mu.Lock()
	h.gestures = append(h.gestures, userGesture)
	h.mu.Unlock()

	if h.backend.PlayErr != nil {
		return h.backend.PlayErr
	}
	if h.backend.RejectGestures || (!userGesture && h.backend.RejectAutoplay) {
		return ErrAutoplayRejected
	}

	h.playing.Store(true)
	h.backend.playCount.Add(1)
	return nil
}

// Pause implements Handle.
func (h *MockHandle) Pause() error {
	if h.closed.Load() {
		return ErrClosed
	}
	if !h.playing.Load() {
		return errors.New("cannot pause: not playing")
	}
	h.playing.Store(false)
	h.backend.pauseCount.Add(1)
	return nil
}

// Close implements Handle.
func (h *MockHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.playing.Store(false)
	h.backend.closeCount.Add(1)
	return nil
}

// IsPlaying reports whether the handle is playing.
func (h *MockHandle) IsPlaying() bool { return h.playing.Load() }

// IsClosed reports whether Close has been called.
func (h *MockHandle) IsClosed() bool { return h.closed.Load() }

// Gestures returns the userGesture argument of every Play call.
func (h *MockHandle) Gestures() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]bool, len(h.gestures))
	copy(out, h.gestures)
	return out
}

// Ready reports the audio as loaded.
func (h *MockHandle) Ready(duration time.Duration) { h.listener.OnReady(duration) }

// Progress reports a playback position.
func (h *MockHandle) Progress(position, duration time.Duration) {
	h.listener.OnProgress(position, duration)
}

// Finish reports natural completion.
func (h *MockHandle) Finish() {
	h.playing.Store(false)
	h.listener.OnEnded()
}

// Fail reports a playback error.
func (h *MockHandle) Fail(err error) {
	h.playing.Store(false)
	h.listener.OnError(err)
}
