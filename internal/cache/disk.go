package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// DiskCache persists downloaded audio between runs. Entries are keyed by
// audio URL and evicted oldest first once the byte capacity is exceeded.
type DiskCache struct {
	basePath string
	capacity int64 // bytes
	size     int64 // bytes on disk

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu sync.Mutex

	stats Stats
}

type diskEntry struct {
	Key          string
	FilePath     string
	Size         int64 // on disk
	OriginalSize int64
	Timestamp    time.Time
	Compressed   bool
}

// DiskInfo describes one stored blob.
type DiskInfo struct {
	Key          string
	Size         int64
	OriginalSize int64
	Timestamp    time.Time
}

// NewDiskCache opens (or creates) a disk cache in basePath. A compression
// level of zero stores blobs uncompressed.
func NewDiskCache(basePath string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Blobs written with compression must stay readable when it is turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	dc.dropMissing()

	return dc, nil
}

// Path returns the cache directory.
func (dc *DiskCache) Path() string {
	return dc.basePath
}

// Get returns the blob stored for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.remove(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			dc.remove(key, entry)
			dc.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	dc.stats.Hits++
	return data, true
}

// Put stores value under key.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := value
	compressed := false
	// Only compress if > 1KB and it actually helps. MP3 rarely shrinks much.
	if dc.encoder != nil && len(value) > 1024 {
		if c := dc.encoder.EncodeAll(value, nil); len(c) < len(value) {
			data = c
			compressed = true
		}
	}
	diskSize := int64(len(data))

	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.remove(key, existing)
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	path := dc.filePath(key)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[key] = &diskEntry{
		Key:          key,
		FilePath:     path,
		Size:         diskSize,
		OriginalSize: int64(len(value)),
		Timestamp:    time.Now(),
		Compressed:   compressed,
	}
	dc.size += diskSize
	return nil
}

// Delete removes key.
func (dc *DiskCache) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.remove(key, entry)
	}
}

// Contains reports whether key is stored.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	_, ok := dc.index[key]
	return ok
}

// Prune removes blobs stored more than maxAge ago and returns how many were
// removed.
func (dc *DiskCache) Prune(maxAge time.Duration) (int, error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, entry := range dc.index {
		if entry.Timestamp.Before(cutoff) {
			dc.remove(key, entry)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, dc.saveIndex()
}

// Clear removes every blob.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		dc.remove(key, entry)
	}
	dc.size = 0
	return dc.saveIndex()
}

// Entries lists the stored blobs, in no particular order.
func (dc *DiskCache) Entries() []DiskInfo {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	infos := make([]DiskInfo, 0, len(dc.index))
	for _, e := range dc.index {
		infos = append(infos, DiskInfo{
			Key:          e.Key,
			Size:         e.Size,
			OriginalSize: e.OriginalSize,
			Timestamp:    e.Timestamp,
		})
	}
	return infos
}

// Stats returns a snapshot of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Capacity = dc.capacity
	stats.Size = dc.size
	stats.Items = len(dc.index)
	stats.computeHitRate()
	return stats
}

// Close saves the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *DiskCache) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(dc.basePath, hex.EncodeToString(hash[:16])+".cache")
}

// remove must be called with the lock held.
func (dc *DiskCache) remove(key string, entry *diskEntry) {
	os.Remove(entry.FilePath)
	dc.size -= entry.Size
	delete(dc.index, key)
}

// evictOldest must be called with the lock held.
func (dc *DiskCache) evictOldest() {
	var oldest *diskEntry
	for _, entry := range dc.index {
		if oldest == nil || entry.Timestamp.Before(oldest.Timestamp) {
			oldest = entry
		}
	}
	if oldest != nil {
		dc.remove(oldest.Key, oldest)
		dc.stats.Evictions++
		dc.stats.LastEvict = time.Now()
	}
}

// dropMissing forgets index entries whose files are gone and recomputes the
// size.
func (dc *DiskCache) dropMissing() {
	dc.size = 0
	for key, entry := range dc.index {
		if _, err := os.Stat(entry.FilePath); err != nil {
			delete(dc.index, key)
			continue
		}
		dc.size += entry.Size
	}
}

func (dc *DiskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	indexPath := filepath.Join(dc.basePath, indexFile)
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, indexPath)
}

// writeFileAtomic writes to a temp file, then renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, path)
}
