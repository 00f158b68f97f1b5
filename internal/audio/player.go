package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aminemaliki7/NEWS/internal/playback"
	"github.com/charmbracelet/log"
)

// DefaultProgressInterval is how often playing audio reports its position.
const DefaultProgressInterval = 250 * time.Millisecond

// sink is an output stream on the audio device.
type sink interface {
	Play()
	Pause()
	IsPlaying() bool
	// BufferedSize is the number of bytes read but not yet heard.
	BufferedSize() int
	Close() error
}

type sinkFactory func(r io.Reader, sampleRate int) (sink, error)

// Options configures a Player.
type Options struct {
	// RequireGesture rejects playback that was not started by the user.
	RequireGesture   bool
	ProgressInterval time.Duration
	// LoadTimeout bounds fetching and decoding a clip. Zero means no limit.
	LoadTimeout time.Duration
	Logger      *log.Logger
}

// Player implements playback.Backend on the local sound device.
type Player struct {
	source  *Source
	opts    Options
	logger  *log.Logger
	decode  func([]byte) (*Clip, error)
	newSink sinkFactory
}

// NewPlayer returns a Player reading audio from source.
func NewPlayer(source *Source, opts Options) *Player {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Player{
		source:  source,
		opts:    opts,
		logger:  logger,
		decode:  Decode,
		newSink: newDeviceSink,
	}
}

// Load implements playback.Backend. Fetching and decoding happen in the
// background; the listener hears OnReady or OnError when they finish.
func (p *Player) Load(ref string, l playback.Listener) (playback.Handle, error) {
	if ref == "" {
		return nil, errors.New("empty audio reference")
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.opts.LoadTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), p.opts.LoadTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	h := &handle{
		player:   p,
		ref:      ref,
		listener: l,
		cancel:   cancel,
	}
	go h.load(ctx)
	return h, nil
}

// handle is one loaded clip.
type handle struct {
	player   *Player
	ref      string
	listener playback.Listener
	cancel   context.CancelFunc

	mu       sync.Mutex
	clip     *Clip
	reader   *countingReader
	out      sink
	playing  bool
	watching bool
	closed   bool
}

func (h *handle) load(ctx context.Context) {
	defer h.cancel()
	logger := h.player.logger

	data, err := h.player.source.Get(ctx, h.ref)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	start := time.Now()
	clip, err := h.player.decode(data)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	reader := newCountingReader(clip.PCM)
	out, err := h.player.newSink(reader, clip.SampleRate)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = out.Close()
		return
	}
	h.clip = clip
	h.reader = reader
	h.out = out
	h.mu.Unlock()

	logger.Debug("Audio loaded",
		"ref", h.ref,
		"sample_rate", clip.SampleRate,
		"duration", clip.Duration(),
		"decode_time", time.Since(start))
	h.listener.OnReady(clip.Duration())
}

func (h *handle) fail(ctx context.Context, err error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed || errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	h.player.logger.Debug("Audio load failed", "ref", h.ref, "error", err)
	h.listener.OnError(err)
}

// Play implements playback.Handle.
func (h *handle) Play(userGesture bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return playback.ErrClosed
	case h.out == nil:
		return errors.New("audio not loaded")
	case h.player.opts.RequireGesture && !userGesture:
		return playback.ErrAutoplayRejected
	}

	h.out.Play()
	h.playing = true
	if !h.watching {
		h.watching = true
		go h.watch()
	}
	return nil
}

// Pause implements playback.Handle.
func (h *handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return playback.ErrClosed
	}
	if !h.playing {
		return fmt.Errorf("cannot pause %s: not playing", h.ref)
	}
	h.out.Pause()
	h.playing = false
	return nil
}

// Close implements playback.Handle.
func (h *handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.playing = false
	out := h.out
	h.out = nil
	h.mu.Unlock()

	h.cancel()
	if out != nil {
		out.Pause()
		return out.Close()
	}
	return nil
}

// watch reports progress while the clip plays and the end when the device
// has drained it.
func (h *handle) watch() {
	ticker := time.NewTicker(h.player.opts.ProgressInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return
		}
		playing := h.playing
		duration := h.clip.Duration()
		heard := h.reader.Count() - int64(h.out.BufferedSize())
		finished := playing && h.reader.Drained() && !h.out.IsPlaying()
		if finished {
			h.playing = false
		}
		h.mu.Unlock()

		switch {
		case finished:
			h.listener.OnEnded()
			return
		case playing:
			h.listener.OnProgress(h.clip.Offset(heard), duration)
		}
	}
}
