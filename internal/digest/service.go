// Package digest sends the scheduled reminder, alert and digest emails.
//
// Every dispatcher fetches its candidates, groups them per recipient, sends
// one email per recipient through the batch scheduler and closes the run
// with exactly one admin report, or one "no targets" notice when there was
// nobody to email.
package digest

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gethired/job-board/internal/application"
	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/bookmark"
	"github.com/gethired/job-board/internal/email"
	"github.com/gethired/job-board/internal/favorite"
	"github.com/gethired/job-board/internal/job"
	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	ReminderWindowDays = 7
	AlertWindowDays    = 7
	AlertLimit         = 10
	DigestLimit        = 10

	runTTL = time.Hour
)

type Applications interface {
	SubmittedSince(ctx context.Context, since time.Time) ([]application.Pending, error)
	AppliedPairsSince(ctx context.Context, since time.Time, userIDs []string) (map[application.Pair]struct{}, error)
}

type Favorites interface {
	SavedSince(ctx context.Context, since time.Time) ([]favorite.Favorite, error)
}

type Bookmarks interface {
	AlertEnabled(ctx context.Context) ([]bookmark.Bookmark, error)
}

type Searcher interface {
	Requery(ctx context.Context, savedURL string, createdAfterDays, limit int) ([]job.Job, error)
}

type Subscribers interface {
	DigestSubscribers(ctx context.Context) ([]user.Contact, error)
}

type Rankings interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]job.Job, error)
}

type RunLog interface {
	LastRun(ctx context.Context, name string) (time.Time, error)
	SetLastRun(ctx context.Context, name string, at time.Time) error
}

type Reporter interface {
	Send(ctx context.Context, title, runID string, stats []template.Stat, rep batch.Report) error
	NoTargets(ctx context.Context, title, runID, what string) error
}

type Deps struct {
	Applications Applications
	Favorites    Favorites
	Bookmarks    Bookmarks
	Search       Searcher
	Subscribers  Subscribers
	Rankings     Rankings
	RunLog       RunLog
	Mailer       report.Mailer
	Views        report.Renderer
	Reporter     Reporter
	Locker       lock.Locker
}

type Service struct {
	Deps
	from email.Address
	site template.Site
	opts batch.Options
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(deps Deps, from email.Address, site template.Site, opts batch.Options, log zerolog.Logger) *Service {
	return &Service{
		Deps: deps,
		from: from,
		site: site,
		opts: opts,
		log:  log.With().Str("component", "digest").Logger(),
		now:  time.Now,
	}
}

// plan is what a dispatcher prepared before any email goes out.
type plan struct {
	candidates int
	what       string
	run        func(ctx context.Context) batch.Report
	stats      func(rep batch.Report) []template.Stat
}

func (s *Service) execute(ctx context.Context, name, title string, build func(ctx context.Context) (plan, error)) (report.Outcome, error) {
	out := report.Outcome{Name: name, RunID: report.NewRunID()}
	release, err := s.Locker.Acquire(ctx, name, runTTL)
	if err != nil {
		return out, err
	}
	defer release()

	logger := s.log.With().Str("run", name).Str("run_id", out.RunID).Logger()
	p, err := build(ctx)
	if err != nil {
		return out, errors.Wrapf(err, "%s: unable to load candidates", name)
	}
	out.Candidates = p.candidates
	if p.candidates == 0 {
		out.NoTargets = true
		logger.Info().Msgf("no %s found", p.what)
		if err := s.Reporter.NoTargets(ctx, title, out.RunID, p.what); err != nil {
			logger.Error().Err(err).Msg("unable to send no targets notice")
		}
		s.recordRun(ctx, logger, name)
		return out, nil
	}
	started := logger.Info().Int("candidates", p.candidates)
	if prev := s.lastRun(ctx, logger, name); !prev.IsZero() {
		started = started.Str("previous_run", humanize.Time(prev))
	}
	started.Msg("dispatch started")
	out.Report = p.run(ctx)
	if err := s.Reporter.Send(ctx, title, out.RunID, p.stats(out.Report), out.Report); err != nil {
		logger.Error().Err(err).Msg("unable to send admin report")
	}
	s.recordRun(ctx, logger, name)
	logger.Info().
		Int("sent", out.Report.Sent()).
		Int("skipped", out.Report.Skipped()).
		Int("failures", len(out.Report.Failures)).
		Msg("dispatch finished")
	return out, nil
}

func (s *Service) lastRun(ctx context.Context, logger zerolog.Logger, name string) time.Time {
	if s.RunLog == nil {
		return time.Time{}
	}
	at, err := s.RunLog.LastRun(ctx, name)
	if err != nil {
		logger.Warn().Err(err).Msg("unable to read last run")
	}
	return at
}

func (s *Service) recordRun(ctx context.Context, logger zerolog.Logger, name string) {
	if s.RunLog == nil {
		return
	}
	if err := s.RunLog.SetLastRun(ctx, name, s.now()); err != nil {
		logger.Warn().Err(err).Msg("unable to record last run")
	}
}

func (s *Service) since(days int) time.Time {
	return s.now().UTC().AddDate(0, 0, -days)
}

func (s *Service) send(ctx context.Context, to user.Contact, subject, view string, data template.JobListEmail) error {
	data.Site = s.site
	data.FirstName = to.FirstName()
	data.SettingsURL = s.site.URL + "/settings/notifications"
	html, err := s.Views.RenderString(view, data)
	if err != nil {
		return errors.Wrapf(err, "unable to render %s", view)
	}
	return s.Mailer.SendHTMLEmail(ctx, s.from, email.Address{Name: to.Name, Email: to.Email}, subject, html)
}

// recipient is one user and the jobs their email lists.
type recipient struct {
	contact user.Contact
	jobs    []job.Summary
}

func recipientID(r recipient) string {
	return r.contact.Email
}

// grouper collects jobs per user keeping first seen user order.
type grouper struct {
	order []string
	byID  map[string]*recipient
}

func newGrouper() *grouper {
	return &grouper{byID: map[string]*recipient{}}
}

func (g *grouper) add(c user.Contact, j job.Summary) {
	r, ok := g.byID[c.ID]
	if !ok {
		r = &recipient{contact: c}
		g.byID[c.ID] = r
		g.order = append(g.order, c.ID)
	}
	r.jobs = append(r.jobs, j)
}

func (g *grouper) recipients() []recipient {
	out := make([]recipient, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.byID[id])
	}
	return out
}

func summaries(jobs []job.Job) []job.Summary {
	out := make([]job.Summary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Summary())
	}
	return out
}
