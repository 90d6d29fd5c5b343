package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerTicks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(5*time.Millisecond, false)
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after stop")
}

func TestIntervalSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 1)
	s := NewIntervalScheduler(time.Hour, true)
	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
}

func TestIntervalSchedulerRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(0, false)
	assert.Error(t, s.Start(context.Background(), func(time.Time) {}))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(time.Hour, false)
	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	cancel()
	assert.NoError(t, s.Stop(context.Background()))
}
