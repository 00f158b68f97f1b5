package audio

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aminemaliki7/NEWS/internal/cache"
	"github.com/aminemaliki7/NEWS/internal/playback"
)

type fakeFetcher struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.data, f.err
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSink drains its reader as soon as it plays.
type fakeSink struct {
	mu      sync.Mutex
	r       io.Reader
	playing bool
	drain   bool
	closed  bool
}

func (s *fakeSink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	if s.drain {
		_, _ = io.Copy(io.Discard, s.r)
		s.playing = false
	}
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *fakeSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSink) BufferedSize() int { return 0 }

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// listener records backend events on channels.
type listener struct {
	ready    chan time.Duration
	progress chan time.Duration
	ended    chan struct{}
	errs     chan error
}

func newListener() *listener {
	return &listener{
		ready:    make(chan time.Duration, 1),
		progress: make(chan time.Duration, 64),
		ended:    make(chan struct{}, 1),
		errs:     make(chan error, 1),
	}
}

func (l *listener) OnReady(d time.Duration) { l.ready <- d }

func (l *listener) OnProgress(pos, _ time.Duration) {
	select {
	case l.progress <- pos:
	default:
	}
}

func (l *listener) OnEnded()          { l.ended <- struct{}{} }
func (l *listener) OnError(err error) { l.errs <- err }

// testClip is one second of silence at 24 kHz.
var testClip = &Clip{PCM: make([]byte, 24000*bytesPerFrame), SampleRate: 24000}

func newTestPlayer(t *testing.T, fetcher Fetcher, sk *fakeSink, opts Options) *Player {
	t.Helper()
	opts.ProgressInterval = 5 * time.Millisecond
	p := NewPlayer(NewSource(fetcher, nil, nil), opts)
	p.decode = func([]byte) (*Clip, error) { return testClip, nil }
	p.newSink = func(r io.Reader, _ int) (sink, error) {
		sk.r = r
		return sk, nil
	}
	return p
}

func waitReady(t *testing.T, l *listener) time.Duration {
	t.Helper()
	select {
	case d := <-l.ready:
		return d
	case err := <-l.errs:
		t.Fatalf("load failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ready")
	}
	return 0
}

func TestClipDuration(t *testing.T) {
	if got := testClip.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
	if got := testClip.Offset(int64(len(testClip.PCM) / 2)); got != 500*time.Millisecond {
		t.Errorf("Offset(half) = %v, want 500ms", got)
	}
	if got := (&Clip{}).Duration(); got != 0 {
		t.Errorf("empty clip Duration() = %v, want 0", got)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyAudio", err)
	}
	if _, err := Decode([]byte("not an mp3 file")); err == nil {
		t.Error("Decode(garbage) succeeded")
	}
}

func TestPlayerLoadAndPlayToEnd(t *testing.T) {
	sk := &fakeSink{drain: true}
	p := newTestPlayer(t, &fakeFetcher{data: []byte("mp3")}, sk, Options{})
	l := newListener()

	h, err := p.Load("/static/audio/a.mp3", l)
	if err != nil {
		t.Fatal(err)
	}
	if d := waitReady(t, l); d != time.Second {
		t.Errorf("ready duration = %v, want 1s", d)
	}
	if err := h.Play(false); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	select {
	case <-l.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for end")
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !sk.closed {
		t.Error("sink not closed")
	}
}

func TestPlayerReportsProgress(t *testing.T) {
	sk := &fakeSink{}
	p := newTestPlayer(t, &fakeFetcher{data: []byte("mp3")}, sk, Options{})
	l := newListener()

	h, err := p.Load("/static/audio/a.mp3", l)
	if err != nil {
		t.Fatal(err)
	}
	waitReady(t, l)
	if err := h.Play(true); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, len(testClip.PCM)/4)
	if _, err := io.ReadFull(sk.r, buf); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case pos := <-l.progress:
			if pos == 250*time.Millisecond {
				_ = h.Close()
				return
			}
		case <-deadline:
			t.Fatal("never saw progress at 250ms")
		}
	}
}

func TestPlayerRequireGesture(t *testing.T) {
	sk := &fakeSink{}
	p := newTestPlayer(t, &fakeFetcher{data: []byte("mp3")}, sk, Options{RequireGesture: true})
	l := newListener()

	h, err := p.Load("/static/audio/a.mp3", l)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	waitReady(t, l)

	if err := h.Play(false); !errors.Is(err, playback.ErrAutoplayRejected) {
		t.Fatalf("Play(false) error = %v, want ErrAutoplayRejected", err)
	}
	if sk.IsPlaying() {
		t.Fatal("sink playing after rejected autoplay")
	}
	if err := h.Play(true); err != nil {
		t.Fatalf("Play(true) error = %v", err)
	}
	if !sk.IsPlaying() {
		t.Error("sink not playing after gesture")
	}
	if err := h.Pause(); err != nil {
		t.Errorf("Pause() error = %v", err)
	}
	if sk.IsPlaying() {
		t.Error("sink playing after pause")
	}
}

func TestPlayerLoadErrors(t *testing.T) {
	fetchErr := errors.New("connection refused")

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		want    error
	}{
		{"fetch failure", &fakeFetcher{err: fetchErr}, fetchErr},
		{"empty body", &fakeFetcher{}, ErrEmptyAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlayer(t, tt.fetcher, &fakeSink{}, Options{})
			l := newListener()

			h, err := p.Load("/static/audio/a.mp3", l)
			if err != nil {
				t.Fatal(err)
			}
			defer h.Close()

			select {
			case err := <-l.errs:
				if !errors.Is(err, tt.want) {
					t.Errorf("error = %v, want %v", err, tt.want)
				}
			case <-l.ready:
				t.Fatal("unexpected ready")
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for error")
			}
		})
	}
}

func TestPlayerClosedHandle(t *testing.T) {
	p := newTestPlayer(t, &fakeFetcher{data: []byte("mp3")}, &fakeSink{}, Options{})
	l := newListener()

	h, err := p.Load("/static/audio/a.mp3", l)
	if err != nil {
		t.Fatal(err)
	}
	waitReady(t, l)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := h.Play(true); !errors.Is(err, playback.ErrClosed) {
		t.Errorf("Play() after Close error = %v, want ErrClosed", err)
	}
}

func TestLoadRejectsEmptyRef(t *testing.T) {
	p := newTestPlayer(t, &fakeFetcher{}, &fakeSink{}, Options{})
	if _, err := p.Load("", newListener()); err == nil {
		t.Error("Load(\"\") succeeded")
	}
}

func TestSourceUsesDiskCache(t *testing.T) {
	disk, err := cache.NewDiskCache(filepath.Join(t.TempDir(), "audio"), 1<<20, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer disk.Close()

	fetcher := &fakeFetcher{data: []byte("ID3 narration bytes")}
	src := NewSource(fetcher, disk, nil)

	for i := 0; i < 3; i++ {
		data, err := src.Get(context.Background(), "/static/audio/a.mp3")
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "ID3 narration bytes" {
			t.Errorf("Get() = %q", data)
		}
	}
	if got := fetcher.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}
