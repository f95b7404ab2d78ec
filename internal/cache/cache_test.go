package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New()
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("Get on empty cache reported a hit")
	}

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	if !ok {
		t.Fatalf("Get after Set reported a miss")
	}
	if got.(string) != "v" {
		t.Fatalf("Get = %v, want v", got)
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", 42, 30*time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("fresh entry reported as miss")
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry reported as hit")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed lazily, Len = %d", c.Len())
	}
}

func TestExpire(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Minute)
	c.Expire("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("Expire did not remove the entry")
	}
}

func TestNonPositiveTTLStoresNothing(t *testing.T) {
	c := New()
	c.Set("k", "v", 0)
	c.Set("k2", "v", -time.Second)
	if c.Len() != 0 {
		t.Fatalf("non-positive TTL stored entries, Len = %d", c.Len())
	}
}
