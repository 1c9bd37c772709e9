package ristretto

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "resolved:abc", []byte(`{"status":"approved"}`), time.Minute); err != nil {
		t.Fatal(err)
	}

	val, found, err := c.Get(ctx, "resolved:abc")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if string(val) != `{"status":"approved"}` {
		t.Fatalf("unexpected value %s", val)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)

	_, found, err := c.Get(context.Background(), "resolved:missing")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss for unknown key")
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "resolved:gone", []byte("x"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "resolved:gone"); err != nil {
		t.Fatal(err)
	}

	_, found, err := c.Get(ctx, "resolved:gone")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss after Delete")
	}

	// Deleting an absent key is not an error.
	if err := c.Delete(ctx, "never-existed"); err != nil {
		t.Fatal(err)
	}
}

func TestOverwrite(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v2"), time.Minute); err != nil {
		t.Fatal(err)
	}

	val, found, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected hit after overwrite")
	}
	if string(val) != "v2" {
		t.Fatalf("expected v2, got %s", val)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("x"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)

	_, found, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss after TTL expiry")
	}
}
