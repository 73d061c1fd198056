package locks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "order:1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Empty(t, locker.entries)
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := locker.Acquire(ctx, "b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Empty(t, locker.entries)
}

func TestMultiOrdersAndDedupes(t *testing.T) {
	rec := &recordingLocker{}
	release, err := Multi(context.Background(), rec, []string{"product:b", "product:a", "product:b", ""})
	require.NoError(t, err)
	release()

	assert.Equal(t, []string{"product:a", "product:b"}, rec.acquired)
	assert.Equal(t, []string{"product:b", "product:a"}, rec.released)
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	store := newFakeRedis()
	locker, err := NewRedisLocker(store, time.Second, time.Millisecond, nil)
	require.NoError(t, err)

	key := Key("order", uuid.MustParse("3f8e0a52-64c4-4f0e-9a36-9d3c1e9a1c11"))
	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.Contains(t, store.data, "sh:lock:order:3f8e0a52-64c4-4f0e-9a36-9d3c1e9a1c11")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, key)
	assert.Error(t, err)

	release()
	assert.Empty(t, store.data)

	release2, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	release2()
}

func TestRedisLockerLogsFailedRelease(t *testing.T) {
	store := newFakeRedis()
	store.delErr = errors.New("connection reset")
	logs := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "locks-test", Output: logs})
	locker, err := NewRedisLocker(store, time.Second, time.Millisecond, logg)
	require.NoError(t, err)

	release, err := locker.Acquire(context.Background(), "inventory:product:1")
	require.NoError(t, err)
	release()

	assert.Contains(t, logs.String(), "failed to release lock")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), "sh:lock:inventory:product:1")
}

type recordingLocker struct {
	acquired []string
	released []string
}

func (r *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	r.acquired = append(r.acquired, key)
	return func() { r.released = append(r.released, key) }, nil
}

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	delErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) LockKey(scope, id string) string {
	if scope == "" {
		return "sh:lock:" + id
	}
	return "sh:lock:" + scope + ":" + id
}
