package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsImmediatelyAndRepeats(t *testing.T) {
	s := New()
	s.Tick = 5 * time.Millisecond

	var runs atomic.Int32
	s.Every(20 * time.Millisecond).Name("tick").Run(func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestWithoutOverlapping(t *testing.T) {
	s := New()
	s.Tick = time.Millisecond

	var running, maxSeen atomic.Int32
	release := make(chan struct{})
	s.Every(time.Millisecond).Name("slow").WithoutOverlapping().Run(func(ctx context.Context) error {
		n := running.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		defer running.Add(-1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	close(release)
	cancel()
	<-done
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestRunNowAndList(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Every(time.Hour).Name("b").Run(func(context.Context) error { return boom })
	s.Every(time.Minute).Name("a").Run(func(context.Context) error { return nil })

	assert.ErrorIs(t, s.RunNow(context.Background(), "b"), boom)
	assert.NoError(t, s.RunNow(context.Background(), "a"))
	assert.Error(t, s.RunNow(context.Background(), "missing"))
	assert.Equal(t, []string{"a  [every 1m0s]", "b  [every 1h0m0s]"}, s.List())
}

func TestPanicDoesNotStopScheduler(t *testing.T) {
	s := New()
	s.Tick = 5 * time.Millisecond

	var after atomic.Int32
	s.Every(10 * time.Millisecond).Name("panics").Run(func(context.Context) error { panic("bad") })
	s.Every(10 * time.Millisecond).Name("fine").Run(func(context.Context) error {
		after.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	assert.Eventually(t, func() bool { return after.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}
