package storage

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"churnmap/internal/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
}

func openTestCache(t *testing.T, maxAge time.Duration) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), maxAge, quietLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := openTestCache(t, time.Hour)

	payload := []byte(`{"headReference":"abc","root":{"name":""}}`)
	if err := cache.Put("https://example.com/repo.git", "abc", payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get("https://example.com/repo.git", "abc")
	if !ok {
		t.Fatal("Get missed a fresh entry")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get = %s, want %s", got, payload)
	}
}

func TestCacheMissesOtherHead(t *testing.T) {
	cache := openTestCache(t, time.Hour)

	if err := cache.Put("https://example.com/repo.git", "abc", []byte("{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, ok := cache.Get("https://example.com/repo.git", "def"); ok {
		t.Error("Get hit for a different head commit")
	}
	if _, ok := cache.Get("https://example.com/other.git", "abc"); ok {
		t.Error("Get hit for a different repository")
	}
}

func TestCacheReplaceSameKey(t *testing.T) {
	cache := openTestCache(t, time.Hour)

	if err := cache.Put("u", "h", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Put("u", "h", []byte("second")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get("u", "h")
	if !ok || string(got) != "second" {
		t.Errorf("Get = %q, %v; want the replacement", got, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := openTestCache(t, time.Nanosecond)

	if err := cache.Put("u", "h", []byte("{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// created_at has second granularity; wait past it
	time.Sleep(1100 * time.Millisecond)

	if _, ok := cache.Get("u", "h"); ok {
		t.Error("Get hit an expired entry")
	}
}

func TestCacheUnboundedAgeNeverExpires(t *testing.T) {
	cache := openTestCache(t, 0)

	if err := cache.Put("u", "h", []byte("{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := cache.Get("u", "h"); !ok {
		t.Error("Get missed with expiry disabled")
	}
}
