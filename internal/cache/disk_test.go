package cache

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDiskCache_BasicOperations(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	small := []byte("<h2>small</h2>")
	large := []byte(strings.Repeat("<p>नारायणीयम्</p>", 500))

	if err := dc.Put("small", small); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Put("large", large); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := dc.Get("small")
	if !ok || !bytes.Equal(got, small) {
		t.Errorf("Get(small) = %q, %v", got, ok)
	}
	got, ok = dc.Get("large")
	if !ok || !bytes.Equal(got, large) {
		t.Errorf("Get(large) returned %d bytes, %v", len(got), ok)
	}

	// Repetitive documents are stored compressed
	if size := dc.Stats().Size; size >= int64(len(small)+len(large)) {
		t.Errorf("Size = %d, want less than %d", size, len(small)+len(large))
	}

	dc.Delete("small")
	if _, ok := dc.Get("small"); ok {
		t.Error("Key still exists after delete")
	}

	stats := dc.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.ItemCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDiskCache_PersistsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	if err := dc.Put("doc", []byte("text")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	got, ok := reopened.Get("doc")
	if !ok || string(got) != "text" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, time.Hour)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	_ = dc.Put("doc", []byte("text"))

	dc.index["doc"].Stored = time.Now().Add(-2 * time.Hour)
	if _, ok := dc.Get("doc"); ok {
		t.Error("expired entry was returned")
	}
	if n := dc.Stats().ItemCount; n != 0 {
		t.Errorf("ItemCount = %d, want 0", n)
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	_ = dc.Put("a", bytes.Repeat([]byte("a"), 40))
	_ = dc.Put("b", bytes.Repeat([]byte("b"), 40))
	dc.index["a"].LastAccess = time.Now().Add(-time.Minute)
	_ = dc.Put("c", bytes.Repeat([]byte("c"), 40))

	if _, ok := dc.Get("a"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := dc.Get("b"); !ok {
		t.Error("b should have survived eviction")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", dc.Stats().Evictions)
	}

	if err := dc.Put("big", make([]byte, 101)); err != ErrItemTooLarge {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	_ = dc.Put("doc", []byte("text"))
	_ = os.Remove(dc.index["doc"].File)

	if _, ok := dc.Get("doc"); ok {
		t.Error("Get returned an entry whose file is gone")
	}
	if n := dc.Stats().ItemCount; n != 0 {
		t.Errorf("ItemCount = %d, want 0", n)
	}
}
