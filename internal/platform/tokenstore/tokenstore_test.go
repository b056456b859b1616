package tokenstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestMemoryStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.now
	return s, clock
}

func TestMemoryStore_SaveConsume(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "tok-1", "jane@x.com", time.Minute); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	email, err := s.Consume(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Consume() error: %v", err)
	}
	if email != "jane@x.com" {
		t.Errorf("expected jane@x.com, got %s", email)
	}
	if _, err := s.Consume(ctx, "tok-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound on second consume, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Save(ctx, "tok-1", "jane@x.com", time.Minute)
	if err := s.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Consume(ctx, "tok-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Save(ctx, "tok-1", "jane@x.com", 30*time.Minute)
	clock.t = clock.t.Add(30 * time.Minute)

	if _, err := s.Consume(ctx, "tok-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("expected expired token to be dropped, %d left", n)
	}
}

func TestMemoryStore_ConsumeConcurrent(t *testing.T) {
	s, _ := newTestMemoryStore()
	ctx := context.Background()
	_ = s.Save(ctx, "tok-1", "jane@x.com", time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	var redeemed int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, "tok-1"); err == nil {
				atomic.AddInt32(&redeemed, 1)
			}
		}()
	}
	wg.Wait()

	if redeemed != 1 {
		t.Errorf("expected exactly one successful consume, got %d", redeemed)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s, clock := newTestMemoryStore()
	ctx := context.Background()

	_ = s.Save(ctx, "short", "a@x.com", time.Minute)
	_ = s.Save(ctx, "long", "b@x.com", time.Hour)
	clock.t = clock.t.Add(2 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Errorf("expected 1 swept entry, got %d", n)
	}
	if _, err := s.Consume(ctx, "long"); err != nil {
		t.Errorf("expected long-lived token to survive, got %v", err)
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid redis url")
	}
}

func TestRedisStore_WrapsClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	s := NewRedisStoreWithClient(client)
	if s.client != client {
		t.Error("expected store to use the supplied client")
	}
	_ = s.Close()
}
