package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when a lock is already held elsewhere and
// could not be acquired within the attempt window.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes critical sections by key. Reconciliation locks per
// payment id so two concurrent provider callbacks for the same payment
// cannot interleave.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// RedisLocker distributes the lock across processes via redislock.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedis builds a Redis-backed locker for the given address.
func NewRedis(addr string) *RedisLocker {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if err == redislock.ErrNotObtained {
		return ErrNotObtained
	} else if err != nil {
		return err
	}
	defer func() { _ = lock.Release(ctx) }()
	return fn(ctx)
}

// LocalLocker is the in-process fallback used when Redis is not configured
// (single-instance deployments and tests).
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewLocal() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, _ time.Duration, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
