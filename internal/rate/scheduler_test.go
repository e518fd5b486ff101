package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newIdleScheduler() *Scheduler {
	c := newTestCache(new(MockRateRepository), new(MockTaskRepository), new(MockRateSource), newStubFastCache())
	return NewScheduler(c, NewBaseCurrency("USD"), 10*time.Second)
}

func TestNewScheduler_Constructs(t *testing.T) {
	s := newIdleScheduler()
	require.NotNil(t, s)
	require.Nil(t, s.sched)
}

func TestScheduler_Shutdown_NotStarted_ReturnsNil(t *testing.T) {
	s := newIdleScheduler()
	require.NoError(t, s.Shutdown())
	require.Nil(t, s.sched)
}

func TestScheduler_Start_And_ContextCancel_ShutsDown(t *testing.T) {
	s := newIdleScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	require.NotNil(t, s.sched)

	cancel()

	// Wait until the shutdown goroutine clears the field.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.sched == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Nil(t, s.sched, "expected scheduler to be shut down after ctx cancel")
}

func TestScheduler_Shutdown_AfterStart_Idempotent(t *testing.T) {
	s := newIdleScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.NotNil(t, s.sched)

	require.NoError(t, s.Shutdown())
	require.Nil(t, s.sched)

	require.NoError(t, s.Shutdown())
}
