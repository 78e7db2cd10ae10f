package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/franpass87/fp-experiences/internal/clock"
)

// CartLock serializes the multi-step checkout sequence for one visitor
// session.  It is an advisory TTL lock, unrelated to slot capacity: a
// second submission from the same session while one is in flight gets
// ErrCartLocked, and a crashed checkout self-clears when the TTL lapses.
type CartLock interface {
	// Acquire takes the lock for the session and returns an owner token.
	// ErrCartLocked when another checkout holds it.
	Acquire(ctx context.Context, sessionID string) (string, error)
	// Release frees the lock if the token still owns it.  Releasing an
	// expired or stolen lock is a no-op.
	Release(ctx context.Context, sessionID, token string) error
}

// NewCartLock returns a Redis-backed lock, degrading to an in-process
// lock when no Redis client is configured (single-instance deployments
// and tests).
func NewCartLock(rdb *redis.Client, ttl time.Duration, clk clock.Clock) CartLock {
	if rdb == nil {
		return NewMemoryCartLock(ttl, clk)
	}
	return &redisCartLock{rdb: rdb, ttl: ttl}
}

type redisCartLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// releaseScript deletes the key only while the caller still owns it, so a
// lock that expired and was re-acquired by a newer checkout stays intact.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

func cartLockKey(sessionID string) string {
	return "cart:lock:" + sessionID
}

func (l *redisCartLock) Acquire(ctx context.Context, sessionID string) (string, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, cartLockKey(sessionID), token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCartLocked
	}
	return token, nil
}

func (l *redisCartLock) Release(ctx context.Context, sessionID, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{cartLockKey(sessionID)}, token).Err()
}

type memoryCartLock struct {
	mu    sync.Mutex
	locks map[string]memoryLockEntry
	ttl   time.Duration
	clock clock.Clock
}

type memoryLockEntry struct {
	token    string
	lockedAt time.Time
}

// NewMemoryCartLock returns the in-process fallback lock.  Same TTL
// semantics as the Redis variant, valid within a single instance only.
func NewMemoryCartLock(ttl time.Duration, clk clock.Clock) CartLock {
	return &memoryCartLock{locks: make(map[string]memoryLockEntry), ttl: ttl, clock: clk}
}

func (l *memoryCartLock) Acquire(_ context.Context, sessionID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if entry, ok := l.locks[sessionID]; ok && now.Sub(entry.lockedAt) < l.ttl {
		return "", ErrCartLocked
	}
	token := uuid.NewString()
	l.locks[sessionID] = memoryLockEntry{token: token, lockedAt: now}
	return token, nil
}

func (l *memoryCartLock) Release(_ context.Context, sessionID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.locks[sessionID]; ok && entry.token == token {
		delete(l.locks, sessionID)
	}
	return nil
}
