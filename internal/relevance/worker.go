// Package relevance maintains the per user ranked relevant jobs feed.
package relevance

import (
	"context"
	"fmt"
	"time"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/job"
	"github.com/rs/zerolog"
)

const (
	FeedLimit      = 100
	FeedWindowDays = 30
)

type Searcher interface {
	Relevant(ctx context.Context, userID string, limit, createdAfterDays int) ([]job.Job, error)
}

type Rankings interface {
	ReplaceForUser(ctx context.Context, userID string, jobIDs []int) error
}

type Flags interface {
	MarkRelevantJobsGenerated(ctx context.Context, userID string) error
	MarkRelevantJobsFailed(ctx context.Context, userID string) error
}

type Worker struct {
	search   Searcher
	rankings Rankings
	flags    Flags
	log      zerolog.Logger
}

func NewWorker(search Searcher, rankings Rankings, flags Flags, log zerolog.Logger) *Worker {
	return &Worker{
		search:   search,
		rankings: rankings,
		flags:    flags,
		log:      log.With().Str("component", "relevance").Logger(),
	}
}

// Recompute rebuilds the relevant jobs feed of one user. It never returns an
// error, failures are reported in the result.
func (w *Worker) Recompute(ctx context.Context, userID, email string) batch.Result {
	started := time.Now()
	res := w.recompute(ctx, userID, email)
	res.Duration = time.Since(started)
	ev := w.log.Info()
	if !res.Success {
		ev = w.log.Error().Str("error", res.Error)
		if err := w.flags.MarkRelevantJobsFailed(ctx, userID); err != nil {
			w.log.Warn().Err(err).Str("user_id", userID).Msg("unable to flag relevance failure")
		}
	}
	ev.Str("user_id", userID).Dur("took", res.Duration).Msg("relevance recompute finished")
	return res
}

func (w *Worker) recompute(ctx context.Context, userID, email string) batch.Result {
	res := batch.Result{Identifier: email}
	if res.Identifier == "" {
		res.Identifier = userID
	}
	jobs, err := w.search.Relevant(ctx, userID, FeedLimit, FeedWindowDays)
	if err != nil {
		res.Error = fmt.Sprintf("search failed: %v", err)
		return res
	}
	if len(jobs) == 0 {
		if err := w.flags.MarkRelevantJobsGenerated(ctx, userID); err != nil {
			res.Error = fmt.Sprintf("unable to set generated flag: %v", err)
			return res
		}
		res.Success = true
		res.Message = "no relevant jobs found"
		return res
	}
	ids := make([]int, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	if err := w.rankings.ReplaceForUser(ctx, userID, ids); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := w.flags.MarkRelevantJobsGenerated(ctx, userID); err != nil {
		res.Error = fmt.Sprintf("unable to set generated flag: %v", err)
		return res
	}
	res.Success = true
	res.Message = fmt.Sprintf("ranked %d jobs", len(ids))
	return res
}
