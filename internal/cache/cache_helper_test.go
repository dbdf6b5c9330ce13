package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheHelper(client, "question:"), mr
}

type cachedValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheHelperSetGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	want := cachedValue{Name: "algebra", Count: 7}
	if err := helper.Set(ctx, "item:1", want, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got cachedValue
	if err := helper.Get(ctx, "item:1", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	var missing cachedValue
	if err := helper.Get(ctx, "item:2", &missing); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("miss error = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelperDelete(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"item:1", "item:2", "item:3"} {
		if err := helper.Set(ctx, key, cachedValue{Name: key}, time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	if err := helper.Delete(ctx, "item:1", "item:2"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var v cachedValue
	if err := helper.Get(ctx, "item:1", &v); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("item:1 still cached: %v", err)
	}
	if err := helper.Get(ctx, "item:3", &v); err != nil {
		t.Errorf("item:3 should survive: %v", err)
	}
}

func TestCacheHelperInvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	keys := []string{"tree:question-bank", "tree:previous-papers", "item:1"}
	for _, key := range keys {
		if err := helper.Set(ctx, key, cachedValue{Name: key}, time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "tree:*"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	var v cachedValue
	for _, key := range []string{"tree:question-bank", "tree:previous-papers"} {
		if err := helper.Get(ctx, key, &v); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("%s survived pattern invalidation: %v", key, err)
		}
	}
	if err := helper.Get(ctx, "item:1", &v); err != nil {
		t.Errorf("item:1 should survive: %v", err)
	}
}

func TestCacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return cachedValue{Name: "fetched", Count: 1}, nil
	}

	var got cachedValue
	if err := helper.CacheOrExecute(ctx, "item:1", &got, time.Minute, fetch); err != nil {
		t.Fatalf("cache-or-execute failed: %v", err)
	}
	if fetches != 1 || got.Name != "fetched" {
		t.Errorf("fetch path wrong: fetches=%d got=%+v", fetches, got)
	}

	// Pre-populated key short-circuits the fetch
	if err := helper.Set(ctx, "item:2", cachedValue{Name: "cached"}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var cached cachedValue
	if err := helper.CacheOrExecute(ctx, "item:2", &cached, time.Minute, fetch); err != nil {
		t.Fatalf("cache-or-execute failed: %v", err)
	}
	if fetches != 1 || cached.Name != "cached" {
		t.Errorf("cache hit still fetched: fetches=%d got=%+v", fetches, cached)
	}

	// A fetch failure propagates
	boom := errors.New("boom")
	var dest cachedValue
	err := helper.CacheOrExecute(ctx, "item:3", &dest, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped boom", err)
	}
}

func TestCacheHelperNilClientDegradesGracefully(t *testing.T) {
	helper := NewCacheHelper(nil, "question:")
	ctx := context.Background()

	if err := helper.Set(ctx, "item:1", cachedValue{}, time.Minute); err != nil {
		t.Errorf("set with nil client = %v, want nil", err)
	}
	var v cachedValue
	if err := helper.Get(ctx, "item:1", &v); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("get with nil client = %v, want ErrCacheNotAvailable", err)
	}
	if err := helper.Delete(ctx, "item:1"); err != nil {
		t.Errorf("delete with nil client = %v, want nil", err)
	}

	// Fetch path still serves the caller
	fetched := false
	if err := helper.CacheOrExecute(ctx, "item:1", &v, time.Minute, func() (interface{}, error) {
		fetched = true
		return cachedValue{Name: "direct"}, nil
	}); err != nil {
		t.Fatalf("cache-or-execute with nil client failed: %v", err)
	}
	if !fetched || v.Name != "direct" {
		t.Errorf("nil-client fetch path wrong: fetched=%v v=%+v", fetched, v)
	}
}
