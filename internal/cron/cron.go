// Package cron triggers the batch runs in process.
package cron

import (
	"context"
	"fmt"

	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/report"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type RunFunc func(ctx context.Context) (report.Outcome, error)

type Job struct {
	Name string
	Spec string
	Run  RunFunc
}

// Scheduler wraps robfig/cron. Overlapping runs are skipped locally and the
// run lock covers other instances.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  zerolog.Logger
}

func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	logger := log.With().Str("component", "cron").Logger()
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ctx:  ctx,
		log:  logger,
	}
}

func (s *Scheduler) Add(j Job) error {
	_, err := s.cron.AddFunc(j.Spec, func() { s.trigger(j) })
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q for %s", j.Spec, j.Name)
	}
	s.log.Info().Str("job", j.Name).Str("spec", j.Spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) trigger(j Job) {
	out, err := j.Run(s.ctx)
	if err == lock.ErrLocked {
		s.log.Info().Str("job", j.Name).Msg("run already in progress, skipping")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("job", j.Name).Msg("scheduled run failed")
		return
	}
	s.log.Info().Str("job", j.Name).Str("run_id", out.RunID).Msg(out.Message())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("cron started")
}

// Stop waits for running jobs or ctx, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info().Msg("cron stopped")
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(fields(keysAndValues)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(fields(keysAndValues)).Msg(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
