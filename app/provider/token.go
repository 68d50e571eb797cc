package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCredentialAcquisition = errors.New("credential acquisition failed")

const defaultTokenSafetyMargin = 30 * time.Second

// exchangeFunc performs the provider's client-credentials grant and returns
// the bearer token together with its lifetime.
type exchangeFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// tokenCache holds a short-lived bearer credential for one adapter instance.
// A token is never handed out within the safety margin of its expiry. The
// refresh is single-flight: the write lock is held across the exchange, so N
// concurrent callers hitting an expired window trigger exactly one exchange
// and all observe its result.
type tokenCache struct {
	exchange exchangeFunc
	margin   time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func newTokenCache(margin time.Duration, exchange exchangeFunc) *tokenCache {
	if margin <= 0 {
		margin = defaultTokenSafetyMargin
	}
	return &tokenCache{
		exchange: exchange,
		margin:   margin,
		now:      time.Now,
	}
}

func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.valid() {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.valid() {
		return c.token, nil
	}

	token, ttl, err := c.exchange(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialAcquisition, err)
	}

	c.token = token
	c.expiresAt = c.now().Add(ttl)
	return token, nil
}

func (c *tokenCache) valid() bool {
	return c.token != "" && c.now().Add(c.margin).Before(c.expiresAt)
}
