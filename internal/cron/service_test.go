package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.panic {
		panic("boom")
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	panicking := &testJob{name: "panic", panic: true}
	after := &testJob{name: "after"}
	lock := NewLocalLock()
	svc := newTestService(t, lock, ok, failing, panicking, after)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, panicking.runs)
	assert.Equal(t, 1, after.runs)

	acquired, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, acquired, "lock released after cycle")
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "low-stock-alerts"}
	lock := NewLocalLock()
	_, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	svc := newTestService(t, lock, job)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

type erroringLock struct{}

func (erroringLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (erroringLock) Release(context.Context) error         { return nil }

func TestRunOnceSurfacesLockErrors(t *testing.T) {
	job := &testJob{name: "x"}
	svc := newTestService(t, erroringLock{}, job)
	assert.Error(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "x"}
	svc := newTestService(t, NewLocalLock(), job)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: NewLocalLock()})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}
