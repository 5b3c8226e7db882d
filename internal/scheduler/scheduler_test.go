package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/services"
)

type fakeRunner struct {
	calls atomic.Int64
	block bool
	err   error
}

func (f *fakeRunner) RunPass(ctx context.Context) (*services.PassResult, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return &services.PassResult{}, nil
	}
	return &services.PassResult{Evaluated: 3}, f.err
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(&fakeRunner{}, Config{Spec: "every now and then"})
	assert.ErrorContains(t, err, "invalid cron spec")
}

func TestRunOnce(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, Config{Spec: "*/5 * * * *"})
	require.NoError(t, err)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Evaluated)
	assert.Equal(t, int64(1), s.Passes())
	assert.Empty(t, s.LastError())

	runner.err = errors.New("db down")
	_, err = s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Contains(t, s.LastError(), "db down")
}

func TestRunOnce_PassTimeout(t *testing.T) {
	s, err := New(&fakeRunner{block: true}, Config{Spec: "@hourly", PassTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestScheduler_TicksAndStops(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, Config{Spec: "@every 1s", Location: time.UTC})
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	s.Start()
	assert.False(t, s.Next().IsZero())
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	calls := runner.calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, calls, runner.calls.Load())
}
