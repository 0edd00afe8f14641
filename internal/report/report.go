// Package report sends the operations summary that closes every batch run.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/bot-api/telegram"
	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/email"
	"github.com/gethired/job-board/internal/template"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Mailer interface {
	SendHTMLEmail(ctx context.Context, from, to email.Address, subject, html string) error
}

type Renderer interface {
	RenderString(name string, data interface{}) (string, error)
}

// Notifier mirrors a one line summary somewhere other than email.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Outcome is what a batch run hands back to its caller.
type Outcome struct {
	Name       string
	RunID      string
	Candidates int
	NoTargets  bool
	Report     batch.Report
}

func (o Outcome) Message() string {
	if o.NoTargets {
		return fmt.Sprintf("%s: no targets found", o.Name)
	}
	return fmt.Sprintf("%s: processed %d, succeeded %d, failed %d", o.Name, o.Report.Total(), len(o.Report.Successes), len(o.Report.Failures))
}

type Reporter struct {
	mailer   Mailer
	views    Renderer
	from     email.Address
	to       email.Address
	site     template.Site
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewReporter(mailer Mailer, views Renderer, from, to email.Address, site template.Site, notifier Notifier, log zerolog.Logger) *Reporter {
	return &Reporter{
		mailer:   mailer,
		views:    views,
		from:     from,
		to:       to,
		site:     site,
		notifier: notifier,
		log:      log.With().Str("component", "report").Logger(),
		now:      time.Now,
	}
}

// NewRunID returns the identifier shared by a run's logs and its report.
func NewRunID() string {
	return uuid.NewString()
}

// Send emails the aggregate report of a finished run.
func (r *Reporter) Send(ctx context.Context, title, runID string, stats []template.Stat, rep batch.Report) error {
	lat := rep.Durations()
	data := template.ReportEmail{
		Site:        r.site,
		Title:       title,
		RunID:       runID,
		RanAt:       r.now().UTC(),
		Stats:       stats,
		MeanLatency: lat.Mean,
		MaxLatency:  lat.Max,
	}
	for _, f := range rep.Failures {
		data.Failures = append(data.Failures, template.Failure{Identifier: f.Identifier, Error: f.Error})
	}
	html, err := r.views.RenderString(template.ViewAdminReport, data)
	if err != nil {
		return errors.Wrap(err, "unable to render admin report")
	}
	subject := fmt.Sprintf("[%s] %s: %d ok, %d failed", r.site.Name, title, len(rep.Successes), len(rep.Failures))
	if err := r.mailer.SendHTMLEmail(ctx, r.from, r.to, subject, html); err != nil {
		return errors.Wrap(err, "unable to send admin report")
	}
	r.mirror(ctx, subject)
	return nil
}

// NoTargets emails the short notice sent instead of a report when a run
// found nothing to process.
func (r *Reporter) NoTargets(ctx context.Context, title, runID, what string) error {
	html, err := r.views.RenderString(template.ViewAdminNoTargets, template.NoTargetsEmail{
		Site:  r.site,
		Title: title,
		RunID: runID,
		What:  what,
		RanAt: r.now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "unable to render no targets notice")
	}
	subject := fmt.Sprintf("[%s] %s: no %s found", r.site.Name, title, what)
	if err := r.mailer.SendHTMLEmail(ctx, r.from, r.to, subject, html); err != nil {
		return errors.Wrap(err, "unable to send no targets notice")
	}
	r.mirror(ctx, subject)
	return nil
}

func (r *Reporter) mirror(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.log.Warn().Err(err).Msg("unable to mirror report")
	}
}

// Telegram posts report summaries to the ops channel.
type Telegram struct {
	api       *telegram.API
	channelID int64
}

func NewTelegram(token string, channelID int64) *Telegram {
	return &Telegram{api: telegram.New(token), channelID: channelID}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	_, err := t.api.SendMessage(ctx, telegram.NewMessage(t.channelID, text))
	return err
}
