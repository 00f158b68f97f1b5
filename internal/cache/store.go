package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/aminemaliki7/NEWS/internal/article"
)

// Store is a bounded map from Key to Entry. When full, the entry that was
// inserted first is evicted; lookups never change eviction order and
// overwriting a key keeps its original position.
type Store struct {
	capacity int

	items map[Key]*list.Element
	order *list.List // front is the oldest insertion

	mu sync.Mutex

	stats Stats
}

type storeEntry struct {
	key   Key
	entry Entry
}

// NewStore creates a Store holding at most capacity entries. A capacity
// below one falls back to DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		items:    make(map[Key]*list.Element),
		order:    list.New(),
	}
}

// Get returns the entry stored for key.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		s.stats.Misses++
		return Entry{}, false
	}
	s.stats.Hits++
	return elem.Value.(*storeEntry).entry, true
}

// Contains reports whether key is present without touching the counters.
func (s *Store) Contains(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[key]
	return ok
}

// Put stores entry under key, then evicts the oldest insertions until the
// store is within capacity.
func (s *Store) Put(key Key, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if elem, ok := s.items[key]; ok {
		elem.Value.(*storeEntry).entry = entry
		return
	}

	s.items[key] = s.order.PushBack(&storeEntry{key: key, entry: entry})
	for s.order.Len() > s.capacity {
		s.evictOldest()
	}
}

// Invalidate removes key. Absent keys are ignored.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
	}
}

// InvalidateArticle removes every entry for ref, whatever the voice, and
// returns how many were removed.
func (s *Store) InvalidateArticle(ref article.Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*storeEntry).key.Article == ref {
			s.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order.Len()
}

// Capacity returns the maximum number of entries.
func (s *Store) Capacity() int {
	return s.capacity
}

// Keys returns the stored keys, oldest insertion first.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*storeEntry).key)
	}
	return keys
}

// Clear removes all entries. Counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[Key]*list.Element)
	s.order.Init()
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Capacity = int64(s.capacity)
	stats.Size = int64(s.order.Len())
	stats.Items = s.order.Len()
	stats.computeHitRate()
	return stats
}

// evictOldest must be called with the lock held.
func (s *Store) evictOldest() {
	if elem := s.order.Front(); elem != nil {
		s.removeElement(elem)
		s.stats.Evictions++
		s.stats.LastEvict = time.Now()
	}
}

// removeElement must be called with the lock held.
func (s *Store) removeElement(elem *list.Element) {
	s.order.Remove(elem)
	delete(s.items, elem.Value.(*storeEntry).key)
}
