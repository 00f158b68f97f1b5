//go:build nocgo

package audio

import "io"

func newDeviceSink(io.Reader, int) (sink, error) {
	return nil, ErrAudioUnavailable
}
