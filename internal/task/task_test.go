package task_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gethired/job-board/internal/task"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownWaitsForTasks(t *testing.T) {
	r := task.NewRunner(zerolog.Nop())
	var done int32
	for i := 0; i < 3; i++ {
		require.True(t, r.Go("sleep", func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}
	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&done))
	assert.False(t, r.Go("late", func(ctx context.Context) error { return nil }))
}

func TestShutdownTimeoutCancelsTasks(t *testing.T) {
	r := task.NewRunner(zerolog.Nop())
	cancelled := make(chan struct{})
	r.Go("block", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Shutdown(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestPanicAndErrorDoNotEscape(t *testing.T) {
	r := task.NewRunner(zerolog.Nop())
	r.Go("panic", func(ctx context.Context) error { panic("boom") })
	r.Go("error", func(ctx context.Context) error { return errors.New("nope") })
	assert.NoError(t, r.Shutdown(context.Background()))
}
