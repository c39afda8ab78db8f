package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key in fixed time windows.
type WindowCounter interface {
	// Hit records one hit for key and returns the hit count in the current
	// window together with the time the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// NewWindowCounter returns a Redis-backed counter when client is set and an
// in-process one otherwise.
func NewWindowCounter(client redis.UniversalClient, keyPrefix string) WindowCounter {
	if client == nil {
		return NewInMemoryWindowCounter()
	}
	return NewRedisWindowCounter(client, keyPrefix)
}

// RedisWindowCounter shares counts across instances using INCR and PEXPIRE.
type RedisWindowCounter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisWindowCounter wraps an existing client
func NewRedisWindowCounter(client redis.UniversalClient, keyPrefix string) *RedisWindowCounter {
	if keyPrefix == "" {
		keyPrefix = "mpp365:ratelimit:"
	}
	return &RedisWindowCounter{client: client, keyPrefix: keyPrefix}
}

// Hit implements WindowCounter
func (c *RedisWindowCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	fullKey := c.keyPrefix + key

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		ttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count hit: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return incr.Val(), time.Now().Add(remaining), nil
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// InMemoryWindowCounter keeps counts in process. Counts are not shared
// between instances.
type InMemoryWindowCounter struct {
	mu        sync.Mutex
	entries   map[string]*windowEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryWindowCounter creates the counter and starts its cleanup loop
func NewInMemoryWindowCounter() *InMemoryWindowCounter {
	c := &InMemoryWindowCounter{
		entries:  make(map[string]*windowEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Hit implements WindowCounter
func (c *InMemoryWindowCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{resetAt: now.Add(window)}
		c.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt, nil
}

// Close stops the cleanup loop. Safe to call multiple times.
func (c *InMemoryWindowCounter) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of tracked keys
func (c *InMemoryWindowCounter) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *InMemoryWindowCounter) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryWindowCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.resetAt) {
			delete(c.entries, key)
		}
	}
}
