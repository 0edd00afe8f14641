package digest

import (
	"context"
	"fmt"

	"github.com/gethired/job-board/internal/application"
	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/favorite"
	"github.com/gethired/job-board/internal/report"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
)

const (
	RunApplicationsReminder = "applications-reminder"
	RunFavoritesReminder    = "favorites-reminder"
)

// ApplicationsReminder emails every promo opted-in user the applications
// they submitted in the last week that are still waiting for a response.
func (s *Service) ApplicationsReminder(ctx context.Context) (report.Outcome, error) {
	return s.execute(ctx, RunApplicationsReminder, "Applications Reminder", func(ctx context.Context) (plan, error) {
		pending, err := s.Applications.SubmittedSince(ctx, s.since(ReminderWindowDays))
		if err != nil {
			return plan{}, err
		}
		recipients := groupPending(pending)
		return plan{
			candidates: len(recipients),
			what:       "pending applications",
			run: func(ctx context.Context) batch.Report {
				return batch.Run(ctx, recipients, recipientID, s.remindApplications, s.opts)
			},
			stats: func(rep batch.Report) []template.Stat {
				return []template.Stat{
					{Label: "Users", Value: len(recipients)},
					{Label: "Applications", Value: len(pending)},
					{Label: "Emails Sent", Value: rep.Sent()},
					{Label: "Technical Failures", Value: len(rep.Failures)},
				}
			},
		}, nil
	})
}

func (s *Service) remindApplications(ctx context.Context, r recipient) (batch.Result, error) {
	subject := fmt.Sprintf("%d %s still waiting for a response", len(r.jobs), pluralize(len(r.jobs), "application", "applications"))
	err := s.send(ctx, r.contact, subject, template.ViewApplicationsReminder, template.JobListEmail{
		Jobs:         r.jobs,
		CallToAction: s.site.URL + "/applications",
	})
	if err != nil {
		return batch.Result{}, err
	}
	return batch.Result{Success: true, Message: fmt.Sprintf("reminded about %d applications", len(r.jobs))}, nil
}

// FavoritesReminder emails users the jobs they saved in the last week,
// leaving out the ones they already applied to.
func (s *Service) FavoritesReminder(ctx context.Context) (report.Outcome, error) {
	return s.execute(ctx, RunFavoritesReminder, "Favorites Reminder", func(ctx context.Context) (plan, error) {
		since := s.since(ReminderWindowDays)
		favorites, err := s.Favorites.SavedSince(ctx, since)
		if err != nil {
			return plan{}, err
		}
		applied, err := s.Applications.AppliedPairsSince(ctx, since, favoriteOwners(favorites))
		if err != nil {
			return plan{}, err
		}
		recipients := groupFavorites(favorites, applied)
		return plan{
			candidates: len(recipients),
			what:       "unapplied favorites",
			run: func(ctx context.Context) batch.Report {
				return batch.Run(ctx, recipients, recipientID, s.remindFavorites, s.opts)
			},
			stats: func(rep batch.Report) []template.Stat {
				return []template.Stat{
					{Label: "Users", Value: len(recipients)},
					{Label: "Favorites", Value: len(favorites)},
					{Label: "Emails Sent", Value: rep.Sent()},
					{Label: "Technical Failures", Value: len(rep.Failures)},
				}
			},
		}, nil
	})
}

func (s *Service) remindFavorites(ctx context.Context, r recipient) (batch.Result, error) {
	subject := fmt.Sprintf("You saved %d %s but haven't applied yet", len(r.jobs), pluralize(len(r.jobs), "job", "jobs"))
	err := s.send(ctx, r.contact, subject, template.ViewFavoritesReminder, template.JobListEmail{
		Jobs:         r.jobs,
		CallToAction: s.site.URL + "/favorites",
	})
	if err != nil {
		return batch.Result{}, err
	}
	return batch.Result{Success: true, Message: fmt.Sprintf("reminded about %d favorites", len(r.jobs))}, nil
}

func groupPending(pending []application.Pending) []recipient {
	g := newGrouper()
	for _, p := range pending {
		g.add(user.Contact{ID: p.UserID, Email: p.UserEmail, Name: p.UserName}, p.Job.Summary())
	}
	return g.recipients()
}

func favoriteOwners(favorites []favorite.Favorite) []string {
	seen := make(map[string]struct{}, len(favorites))
	ids := make([]string, 0, len(favorites))
	for _, f := range favorites {
		if _, ok := seen[f.UserID]; ok {
			continue
		}
		seen[f.UserID] = struct{}{}
		ids = append(ids, f.UserID)
	}
	return ids
}

// groupFavorites drops favorites the owner applied to. Users left without
// any favorite are not emailed.
func groupFavorites(favorites []favorite.Favorite, applied map[application.Pair]struct{}) []recipient {
	g := newGrouper()
	for _, f := range favorites {
		if _, ok := applied[application.Pair{UserID: f.UserID, JobID: f.Job.ID}]; ok {
			continue
		}
		g.add(user.Contact{ID: f.UserID, Email: f.UserEmail, Name: f.UserName}, f.Job.Summary())
	}
	return g.recipients()
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
