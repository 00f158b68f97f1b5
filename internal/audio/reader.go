package audio

import (
	"bytes"
	"io"
	"sync/atomic"
)

// countingReader tracks how much PCM the device has pulled.
type countingReader struct {
	r    *bytes.Reader
	n    atomic.Int64
	done atomic.Bool
}

func newCountingReader(pcm []byte) *countingReader {
	return &countingReader{r: bytes.NewReader(pcm)}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	if err == io.EOF {
		c.done.Store(true)
	}
	return n, err
}

// Count returns the number of bytes read so far.
func (c *countingReader) Count() int64 { return c.n.Load() }

// Drained reports whether the reader has hit EOF.
func (c *countingReader) Drained() bool { return c.done.Load() }
