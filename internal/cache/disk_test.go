package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_PutGet(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	value := bytes.Repeat([]byte("narration "), 500)
	if err := dc.Put("http://host/a.mp3", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := dc.Get("http://host/a.mp3")
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if !bytes.Equal(got, value) {
		t.Error("round-tripped value differs")
	}

	stats := dc.Stats()
	if stats.Size >= int64(len(value)) {
		t.Errorf("repetitive data was not compressed: %d bytes on disk", stats.Size)
	}
	if stats.Items != 1 || stats.Hits != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDiskCache_Persistence(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("k", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("k")
	if !ok || string(got) != "persisted" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("k", []byte("value"))
	os.Remove(dc.filePath("k"))

	if _, ok := dc.Get("k"); ok {
		t.Error("Get succeeded for a deleted file")
	}
	if dc.Contains("k") {
		t.Error("index still lists a deleted file")
	}
}

func TestDiskCache_EvictsOldest(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("a", make([]byte, 40))
	time.Sleep(time.Millisecond)
	dc.Put("b", make([]byte, 40))
	time.Sleep(time.Millisecond)
	dc.Put("c", make([]byte, 40))

	if dc.Contains("a") {
		t.Error("oldest blob was not evicted")
	}
	if !dc.Contains("b") || !dc.Contains("c") {
		t.Error("newer blobs were evicted")
	}
	if err := dc.Put("huge", make([]byte, 200)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put(huge) error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Put("a", []byte("1"))
	dc.Put("b", []byte("2"))

	if n, err := dc.Prune(time.Hour); err != nil || n != 0 {
		t.Errorf("Prune(1h) = %d, %v; want nothing removed", n, err)
	}
	n, err := dc.Prune(-time.Minute)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune removed %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, indexFile)); err != nil {
		t.Errorf("index not saved after prune: %v", err)
	}
}

func TestDiskCache_InvalidCapacity(t *testing.T) {
	if _, err := NewDiskCache(t.TempDir(), 0, 3); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("error = %v, want ErrInvalidCapacity", err)
	}
}
