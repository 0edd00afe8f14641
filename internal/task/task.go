// Package task runs work that outlives the request that started it.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	log    zerolog.Logger
}

func NewRunner(log zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "task").Logger(),
	}
}

// Go starts fn in the background. It returns false once Shutdown was called.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn().Str("task", name).Msg("runner is shutting down, task rejected")
		return false
	}
	r.wg.Add(1)
	id := uuid.NewString()
	go r.run(name, id, fn)
	return true
}

func (r *Runner) run(name, id string, fn func(ctx context.Context) error) {
	defer r.wg.Done()
	logger := r.log.With().Str("task", name).Str("task_id", id).Logger()
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("task %s panicked: %v", name, rec)
			raven.CaptureError(err, map[string]string{"task": name, "task_id": id})
			logger.Error().Err(err).Dur("took", time.Since(started)).Msg("task panicked")
		}
	}()
	logger.Info().Msg("task started")
	if err := fn(r.ctx); err != nil {
		logger.Error().Err(err).Dur("took", time.Since(started)).Msg("task failed")
		return
	}
	logger.Info().Dur("took", time.Since(started)).Msg("task finished")
}

// Shutdown rejects new tasks and waits for running ones. When ctx expires
// first the tasks' context is cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
