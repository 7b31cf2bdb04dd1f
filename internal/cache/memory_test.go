// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(missing) error = %v, want ErrCacheMiss", err)
	}

	value := []byte("<p>fresh milk</p>")
	if err := c.Set(ctx, "desc", value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Mutating the caller's slice must not change the stored value.
	value[0] = 'X'

	got, err := c.Get(ctx, "desc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "<p>fresh milk</p>" {
		t.Errorf("Get = %q", got)
	}

	got[0] = 'Y'
	again, _ := c.Get(ctx, "desc")
	if string(again) != "<p>fresh milk</p>" {
		t.Errorf("Get after mutating result = %q", again)
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 1 || stats.Items != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(expired) error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_CleanupLoop(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute, CleanupInterval: 5 * time.Millisecond})
	defer func() { _ = c.Close() }()

	_ = c.Set(context.Background(), "short", []byte("v"), time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after cleanup, want 0", c.Len())
	}
}

func TestMemoryCache_MaxItems(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{DefaultTTL: time.Minute, MaxItems: 2})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Second)
	_ = c.Set(ctx, "b", []byte("2"), time.Hour)
	_ = c.Set(ctx, "c", []byte("3"), time.Hour)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Error("entry closest to expiry should have been evicted")
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "b", []byte("22"), time.Hour)
	if _, err := c.Get(ctx, "c"); err != nil {
		t.Errorf("Get(c) = %v after overwrite of b", err)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	for _, k := range []string{"desc:1", "desc:2", "other"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}

	if err := c.Delete(ctx, "other"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.DeleteByPrefix(ctx, "desc:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}

	_ = c.Set(ctx, "x", []byte("x"), 0)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{CleanupInterval: time.Millisecond})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get error = %v", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set error = %v", err)
	}
	if err := c.Clear(ctx); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Clear error = %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{MaxItems: 50})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", (worker*100+j)%80)
				_ = c.Set(ctx, key, []byte(key), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d, want at most 50", c.Len())
	}
}

func TestHitRate(t *testing.T) {
	if got := hitRate(0, 0); got != 0 {
		t.Errorf("hitRate(0, 0) = %v", got)
	}
	if got := hitRate(3, 1); got != 75 {
		t.Errorf("hitRate(3, 1) = %v, want 75", got)
	}
}
