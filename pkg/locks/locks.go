// Package locks serializes critical sections per aggregate key (order id,
// product id, variant id) ahead of the database transaction that mutates it.
package locks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const (
	defaultTTL          = 30 * time.Second
	defaultRetryBackoff = 25 * time.Millisecond
)

// Locker acquires an exclusive hold on key and returns the release func.
// Acquire blocks until the lock is held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Key formats a lock key for the given scope and id.
func Key(scope string, id uuid.UUID) string {
	return scope + ":" + id.String()
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]*localEntry)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.unref(key, entry)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

// redisStore defines the operations used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// RedisLocker coordinates locks across instances using SETNX + TTL.
type RedisLocker struct {
	client  redisStore
	ttl     time.Duration
	backoff time.Duration
	logg    *logger.Logger
}

// NewRedisLocker builds a distributed locker. Failed releases are logged when
// logg is set; the key still expires after ttl.
func NewRedisLocker(client redisStore, ttl, backoff time.Duration, logg *logger.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for locker")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &RedisLocker{client: client, ttl: ttl, backoff: backoff, logg: logg}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	redisKey := l.client.LockKey("", key)
	owner := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// detached from the caller's ctx, which may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.release(releaseCtx, redisKey, owner); err != nil && l.logg != nil {
				l.logg.Error(l.logg.WithField(ctx, "lock_key", redisKey), "failed to release lock", err)
			}
		})
	}, nil
}

func (l *RedisLocker) release(ctx context.Context, key, owner string) error {
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

// Multi acquires every key in a stable order and releases them in reverse.
func Multi(ctx context.Context, locker Locker, keys []string) (func(), error) {
	sorted := dedupeSorted(keys)
	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range sorted {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

func dedupeSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok || key == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}
