package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenCacheSingleFlight(t *testing.T) {
	var exchanges int64
	cache := newTokenCache(30*time.Second, func(_ context.Context) (string, time.Duration, error) {
		atomic.AddInt64(&exchanges, 1)
		time.Sleep(10 * time.Millisecond)
		return "token-1", time.Hour, nil
	})

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = cache.Token(context.Background())
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&exchanges); got != 1 {
		t.Fatalf("expected exactly 1 exchange, got %d", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if tokens[i] != "token-1" {
			t.Fatalf("caller %d: unexpected token %q", i, tokens[i])
		}
	}
}

func TestTokenCacheRefreshesInsideSafetyMargin(t *testing.T) {
	var exchanges int
	cache := newTokenCache(30*time.Second, func(_ context.Context) (string, time.Duration, error) {
		exchanges++
		return fmt.Sprintf("token-%d", exchanges), 45 * time.Second, nil
	})

	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }

	token, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("unexpected token %q", token)
	}

	// 20s in: 25s of life left, inside the 30s margin. Must re-acquire.
	now = now.Add(20 * time.Second)
	token, err = cache.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token-2" {
		t.Fatalf("expected re-acquired token, got %q", token)
	}
	if exchanges != 2 {
		t.Fatalf("expected 2 exchanges, got %d", exchanges)
	}
}

func TestTokenCacheReusesValidToken(t *testing.T) {
	var exchanges int
	cache := newTokenCache(30*time.Second, func(_ context.Context) (string, time.Duration, error) {
		exchanges++
		return "token-1", time.Hour, nil
	})

	for i := 0; i < 5; i++ {
		if _, err := cache.Token(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if exchanges != 1 {
		t.Fatalf("expected 1 exchange for repeated calls, got %d", exchanges)
	}
}

func TestTokenCacheWrapsExchangeFailure(t *testing.T) {
	cache := newTokenCache(30*time.Second, func(_ context.Context) (string, time.Duration, error) {
		return "", 0, errors.New("connection refused")
	})

	_, err := cache.Token(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrCredentialAcquisition) {
		t.Fatalf("expected ErrCredentialAcquisition, got %v", err)
	}
}
