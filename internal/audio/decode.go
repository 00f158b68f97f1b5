package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var (
	// ErrAudioUnavailable means this build or machine has no audio device.
	ErrAudioUnavailable = errors.New("audio output unavailable")
	// ErrEmptyAudio is returned for an empty download.
	ErrEmptyAudio = errors.New("empty audio")
	// ErrUnsupportedFormat is returned when a clip's sample rate differs
	// from the rate the audio device was opened with.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

const (
	// go-mp3 always produces 16-bit little-endian stereo.
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// Clip is decoded PCM audio.
type Clip struct {
	// PCM holds signed 16-bit little-endian stereo samples. It must stay
	// referenced while the clip plays.
	PCM        []byte
	SampleRate int
}

// Decode decodes MP3 data into a Clip.
func Decode(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("decode mp3: %w", ErrEmptyAudio)
	}
	return &Clip{PCM: pcm, SampleRate: d.SampleRate()}, nil
}

// Duration returns the clip's play time.
func (c *Clip) Duration() time.Duration {
	return c.Offset(int64(len(c.PCM)))
}

// Offset converts a byte offset into the PCM data to a play position.
func (c *Clip) Offset(n int64) time.Duration {
	if c.SampleRate <= 0 || n <= 0 {
		return 0
	}
	frames := n / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}
