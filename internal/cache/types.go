package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/aminemaliki7/NEWS/internal/article"
	"github.com/aminemaliki7/NEWS/internal/voice"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the disk cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("cache capacity must be at least 1")
)

// DefaultCapacity is the number of narrations kept in a Store.
const DefaultCapacity = 25

// Key identifies one narration: an article read by one voice. Two keys for
// the same article never collide when their voices differ.
type Key struct {
	Article article.Ref
	Voice   voice.ID
}

// NewKey returns the key for (ref, v).
func NewKey(ref article.Ref, v voice.ID) Key {
	return Key{Article: ref, Voice: v}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Article.Short(), k.Voice)
}

// Entry is a cached narration.
type Entry struct {
	AudioRef  string
	CreatedAt time.Time
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // entries for Store, bytes for DiskCache
	Size      int64 // entries for Store, bytes on disk for DiskCache
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
	LastEvict time.Time
}

func (s *Stats) computeHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}
