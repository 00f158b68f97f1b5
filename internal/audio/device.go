//go:build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// deviceReadyTimeout bounds waiting for the audio driver.
const deviceReadyTimeout = 5 * time.Second

// oto allows one context per process, so every clip shares it. Its sample
// rate is fixed by the first clip played.
var (
	deviceOnce sync.Once
	device     *oto.Context
	deviceRate int
	deviceErr  error
)

func openDevice(sampleRate int) (*oto.Context, error) {
	deviceOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			deviceErr = fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
			return
		}

		select {
		case <-ready:
		case <-time.After(deviceReadyTimeout):
			deviceErr = fmt.Errorf("%w: driver not ready after %v", ErrAudioUnavailable, deviceReadyTimeout)
			return
		}

		device = ctx
		deviceRate = sampleRate
		log.Debug("Audio device opened", "sample_rate", sampleRate, "channels", channels)
	})

	if deviceErr != nil {
		return nil, deviceErr
	}
	if sampleRate != deviceRate {
		return nil, fmt.Errorf("%w: %d Hz clip on a %d Hz device", ErrUnsupportedFormat, sampleRate, deviceRate)
	}
	return device, nil
}

func newDeviceSink(r io.Reader, sampleRate int) (sink, error) {
	ctx, err := openDevice(sampleRate)
	if err != nil {
		return nil, err
	}
	return ctx.NewPlayer(r), nil
}
