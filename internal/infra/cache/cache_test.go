package cache_test

import (
	"testing"
	"time"

	"github.com/gbp-optimizer/leadgen-api/internal/infra/cache"
)

func TestSetAndGet(t *testing.T) {
	c := cache.New[string](time.Minute)

	c.Set("search:demo:bakery:", "cached")
	got, ok := c.Get("search:demo:bakery:")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "cached" {
		t.Errorf("got %q", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := cache.New[int](time.Minute)

	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestExpiration(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestDelete(t *testing.T) {
	c := cache.New[string](time.Minute)

	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestDistinctKeys(t *testing.T) {
	c := cache.New[string](time.Minute)

	c.Set("search:agency-1:bakery:", "one")
	c.Set("search:agency-2:bakery:", "two")

	if got, _ := c.Get("search:agency-1:bakery:"); got != "one" {
		t.Errorf("agency-1 entry = %q", got)
	}
	if got, _ := c.Get("search:agency-2:bakery:"); got != "two" {
		t.Errorf("agency-2 entry = %q", got)
	}
}
