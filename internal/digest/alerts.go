package digest

import (
	"context"
	"fmt"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/bookmark"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
)

const (
	RunJobAlert     = "job-alert"
	RunWeeklyDigest = "digest"
)

// JobAlert re-runs every alert enabled bookmark restricted to the last week
// and emails the owner when it matches anything new. Relevance sorted
// bookmarks are personal feeds and never alert.
func (s *Service) JobAlert(ctx context.Context) (report.Outcome, error) {
	return s.execute(ctx, RunJobAlert, "Job Alerts", func(ctx context.Context) (plan, error) {
		all, err := s.Bookmarks.AlertEnabled(ctx)
		if err != nil {
			return plan{}, err
		}
		eligible := bookmark.AlertEligible(all)
		return plan{
			candidates: len(eligible),
			what:       "alert enabled bookmarks",
			run: func(ctx context.Context) batch.Report {
				return batch.Run(ctx, eligible, alertID, s.alert, s.opts)
			},
			stats: func(rep batch.Report) []template.Stat {
				return []template.Stat{
					{Label: "Eligible Bookmarks", Value: len(eligible)},
					{Label: "Emails Sent", Value: rep.Sent()},
					{Label: "No New Jobs", Value: rep.Skipped()},
					{Label: "Technical Failures", Value: len(rep.Failures)},
				}
			},
		}, nil
	})
}

func alertID(b bookmark.Bookmark) string {
	return fmt.Sprintf("%s (%s)", b.UserEmail, b.ID)
}

func (s *Service) alert(ctx context.Context, b bookmark.Bookmark) (batch.Result, error) {
	jobs, err := s.Search.Requery(ctx, b.URL, AlertWindowDays, AlertLimit)
	if err != nil {
		return batch.Result{}, err
	}
	if len(jobs) == 0 {
		return batch.Result{Success: true, Skipped: true, Message: "no new jobs"}, nil
	}
	name := b.DisplayName()
	subject := fmt.Sprintf("%d new %s for %s", len(jobs), pluralize(len(jobs), "job", "jobs"), name)
	err = s.send(ctx, user.Contact{ID: b.UserID, Email: b.UserEmail, Name: b.UserName}, subject, template.ViewJobAlert, template.JobListEmail{
		SearchName:   name,
		Jobs:         summaries(jobs),
		CallToAction: b.URL,
	})
	if err != nil {
		return batch.Result{}, err
	}
	return batch.Result{Success: true, Message: fmt.Sprintf("alerted %d jobs", len(jobs))}, nil
}

// WeeklyDigest emails digest subscribers the top of their stored relevance
// ranking. Subscribers without a ranking yet are skipped.
func (s *Service) WeeklyDigest(ctx context.Context) (report.Outcome, error) {
	return s.execute(ctx, RunWeeklyDigest, "Weekly Digest", func(ctx context.Context) (plan, error) {
		subscribers, err := s.Subscribers.DigestSubscribers(ctx)
		if err != nil {
			return plan{}, err
		}
		return plan{
			candidates: len(subscribers),
			what:       "digest subscribers",
			run: func(ctx context.Context) batch.Report {
				return batch.Run(ctx, subscribers, contactID, s.digest, s.opts)
			},
			stats: func(rep batch.Report) []template.Stat {
				return []template.Stat{
					{Label: "Subscribers", Value: len(subscribers)},
					{Label: "Emails Sent", Value: rep.Sent()},
					{Label: "No Ranked Jobs", Value: rep.Skipped()},
					{Label: "Technical Failures", Value: len(rep.Failures)},
				}
			},
		}, nil
	})
}

func contactID(c user.Contact) string {
	return c.Email
}

func (s *Service) digest(ctx context.Context, c user.Contact) (batch.Result, error) {
	jobs, err := s.Rankings.ListForUser(ctx, c.ID, DigestLimit)
	if err != nil {
		return batch.Result{}, err
	}
	if len(jobs) == 0 {
		return batch.Result{Success: true, Skipped: true, Message: "no ranked jobs"}, nil
	}
	err = s.send(ctx, c, fmt.Sprintf("Your top %d jobs this week", len(jobs)), template.ViewWeeklyDigest, template.JobListEmail{
		Jobs:         summaries(jobs),
		CallToAction: s.site.URL + "/jobs?sortBy=relevance",
	})
	if err != nil {
		return batch.Result{}, err
	}
	return batch.Result{Success: true, Message: fmt.Sprintf("sent %d jobs", len(jobs))}, nil
}
