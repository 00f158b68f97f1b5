package audio

import (
	"context"
	"fmt"

	"github.com/aminemaliki7/NEWS/internal/cache"
	"github.com/charmbracelet/log"
)

// Fetcher downloads audio by reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Source resolves audio references to MP3 bytes, preferring the disk cache.
type Source struct {
	fetcher Fetcher
	disk    *cache.DiskCache
	logger  *log.Logger
}

// NewSource returns a Source. disk may be nil.
func NewSource(fetcher Fetcher, disk *cache.DiskCache, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	return &Source{fetcher: fetcher, disk: disk, logger: logger}
}

// Get returns the audio for ref.
func (s *Source) Get(ctx context.Context, ref string) ([]byte, error) {
	if s.disk != nil {
		if data, ok := s.disk.Get(ref); ok {
			s.logger.Debug("Audio served from disk cache", "ref", ref, "bytes", len(data))
			return data, nil
		}
	}

	data, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch audio: %w", ErrEmptyAudio)
	}

	if s.disk != nil {
		if err := s.disk.Put(ref, data); err != nil {
			s.logger.Warn("Unable to cache audio on disk", "ref", ref, "error", err)
		}
	}
	return data, nil
}
