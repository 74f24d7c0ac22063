package background

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Amund-Fremming/tero.platform/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsTasks(t *testing.T) {
	q := NewQueue(3, 16, time.Second, logging.Discard())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := q.Submit("count", func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	wg.Wait()

	require.NoError(t, q.Shutdown(context.Background()))
	assert.EqualValues(t, 10, ran.Load())
	assert.EqualValues(t, 10, q.Stats().Submitted)
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(1, 1, time.Second, logging.Discard())

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.True(t, q.Submit("buffered", func(ctx context.Context) error { return nil }))
	assert.False(t, q.Submit("overflow", func(ctx context.Context) error { return nil }))
	assert.EqualValues(t, 1, q.Stats().Dropped)

	close(release)
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_RecoversPanicsAndErrors(t *testing.T) {
	q := NewQueue(1, 4, time.Second, logging.Discard())

	q.Submit("panics", func(ctx context.Context) error { panic("boom") })
	q.Submit("fails", func(ctx context.Context) error { return errors.New("nope") })

	done := make(chan struct{})
	q.Submit("after", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}

	require.NoError(t, q.Shutdown(context.Background()))
	stats := q.Stats()
	assert.EqualValues(t, 1, stats.Panicked)
	assert.EqualValues(t, 1, stats.Failed)
}

func TestQueue_TaskContextIsDetachedAndBounded(t *testing.T) {
	q := NewQueue(1, 1, 20*time.Millisecond, logging.Discard())

	errCh := make(chan error, 1)
	q.Submit("deadline", func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return nil
	})

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_Shutdown(t *testing.T) {
	q := NewQueue(1, 1, time.Second, logging.Discard())
	require.NoError(t, q.Shutdown(context.Background()))

	assert.False(t, q.Submit("late", func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, q.Shutdown(context.Background()), ErrClosed)
}
