package relevance

import (
	"context"
	"time"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	RunName  = "relevant-jobs"
	runTitle = "Relevant Jobs Recompute"
	runTTL   = 2 * time.Hour
)

type Users interface {
	OnboardedUsers(ctx context.Context) ([]user.Contact, error)
}

type Reporter interface {
	Send(ctx context.Context, title, runID string, stats []template.Stat, rep batch.Report) error
	NoTargets(ctx context.Context, title, runID, what string) error
}

type Service struct {
	worker   *Worker
	users    Users
	reporter Reporter
	locker   lock.Locker
	opts     batch.Options
	log      zerolog.Logger
}

func NewService(worker *Worker, users Users, reporter Reporter, locker lock.Locker, opts batch.Options, log zerolog.Logger) *Service {
	return &Service{
		worker:   worker,
		users:    users,
		reporter: reporter,
		locker:   locker,
		opts:     opts,
		log:      log.With().Str("component", "relevance").Logger(),
	}
}

func (s *Service) Recompute(ctx context.Context, userID, email string) batch.Result {
	return s.worker.Recompute(ctx, userID, email)
}

// RecomputeAll rebuilds the feed of every onboarded user and closes the run
// with a single admin report.
func (s *Service) RecomputeAll(ctx context.Context) (report.Outcome, error) {
	out := report.Outcome{Name: RunName, RunID: report.NewRunID()}
	release, err := s.locker.Acquire(ctx, RunName, runTTL)
	if err != nil {
		return out, err
	}
	defer release()

	users, err := s.users.OnboardedUsers(ctx)
	if err != nil {
		return out, errors.Wrap(err, "unable to list onboarded users")
	}
	out.Candidates = len(users)
	logger := s.log.With().Str("run_id", out.RunID).Logger()
	if len(users) == 0 {
		out.NoTargets = true
		logger.Info().Msg("no users to recompute")
		if err := s.reporter.NoTargets(ctx, runTitle, out.RunID, "users"); err != nil {
			logger.Error().Err(err).Msg("unable to send no targets notice")
		}
		return out, nil
	}
	out.Report = batch.Run(ctx, users, func(u user.Contact) string { return u.Email }, func(ctx context.Context, u user.Contact) (batch.Result, error) {
		return s.worker.Recompute(ctx, u.ID, u.Email), nil
	}, s.opts)
	stats := []template.Stat{
		{Label: "Users", Value: out.Candidates},
		{Label: "Feeds Updated", Value: len(out.Report.Successes)},
		{Label: "Technical Failures", Value: len(out.Report.Failures)},
	}
	if err := s.reporter.Send(ctx, runTitle, out.RunID, stats, out.Report); err != nil {
		logger.Error().Err(err).Msg("unable to send admin report")
	}
	logger.Info().Int("users", out.Candidates).Int("failures", len(out.Report.Failures)).Msg("relevance run finished")
	return out, nil
}
