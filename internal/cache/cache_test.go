package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"routecost/internal/network"
	"routecost/internal/opt"
)

var (
	_ opt.ResultCache = (*Memory)(nil)
	_ opt.ResultCache = (*Redis)(nil)
)

func TestMemoryTTL(t *testing.T) {
	c := NewMemory(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "k", opt.Result{MinimumCost: 60})
	if r, ok := c.Get(context.Background(), "k"); !ok || r.MinimumCost != 60 {
		t.Fatalf("want hit, got %v %+v", ok, r)
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatalf("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped")
	}
}

func TestMemorySweepsExpiredOnSet(t *testing.T) {
	c := NewMemory(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		c.Set(ctx, fmt.Sprintf("A:%d", i), opt.Result{MinimumCost: float64(i)})
	}
	if c.Len() != 500 {
		t.Fatalf("want 500 entries, got %d", c.Len())
	}
	now = now.Add(time.Minute + time.Millisecond)
	c.Set(ctx, "fresh", opt.Result{MinimumCost: 1})
	if c.Len() != 1 {
		t.Fatalf("expired entries should be swept, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "fresh"); !ok {
		t.Fatalf("fresh entry missing")
	}
}

func TestMemorySweepsBehindEngine(t *testing.T) {
	c := NewMemory(time.Millisecond)
	e := opt.NewEngine(network.Reference(), opt.WithCache(c))
	ctx := context.Background()
	for i := 1; i <= 200; i++ {
		if _, err := e.ComputeMinimumCost(ctx, opt.Order{"A": float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := e.ComputeMinimumCost(ctx, opt.Order{"A": 0.5}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("want 1 live entry after expiry, got %d", c.Len())
	}
}

func TestMemoryMaxEntries(t *testing.T) {
	c := NewMemory(0).WithMaxEntries(3)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), opt.Result{MinimumCost: float64(i)})
		if c.Len() > 3 {
			t.Fatalf("cache grew to %d", c.Len())
		}
	}
	if r, ok := c.Get(ctx, "k9"); !ok || r.MinimumCost != 9 {
		t.Fatalf("latest entry must be kept: %v %+v", ok, r)
	}
	// overwriting an existing key never evicts
	c.Set(ctx, "k9", opt.Result{MinimumCost: 90})
	if c.Len() != 3 {
		t.Fatalf("overwrite changed size to %d", c.Len())
	}
}

func TestMemoryBacksEngine(t *testing.T) {
	c := NewMemory(0)
	e := opt.NewEngine(network.Reference(), opt.WithCache(c))
	if _, err := e.ComputeMinimumCost(context.Background(), opt.Order{"A": 4, "B": 2}); err != nil {
		t.Fatal(err)
	}
	r, err := e.ComputeMinimumCost(context.Background(), opt.Order{"C": 6})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Cached || r.MinimumCost != 54 {
		t.Fatalf("want cached 54, got %+v", r)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewRedis(url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	if _, ok := c.Get(context.Background(), key); ok {
		t.Fatalf("unexpected hit")
	}
	c.Set(context.Background(), key, opt.Result{MinimumCost: 84, Route: []string{"L1", "C3", "C1", "L1"}})
	r, ok := c.Get(context.Background(), key)
	if !ok || r.MinimumCost != 84 || len(r.Route) != 4 {
		t.Fatalf("round trip: %v %+v", ok, r)
	}
}
