package relevance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gethired/job-board/internal/batch"
	"github.com/gethired/job-board/internal/job"
	"github.com/gethired/job-board/internal/lock"
	"github.com/gethired/job-board/internal/relevance"
	"github.com/gethired/job-board/internal/template"
	"github.com/gethired/job-board/internal/user"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	jobs map[string][]job.Job
	err  error
}

func (f *fakeSearch) Relevant(ctx context.Context, userID string, limit, createdAfterDays int) ([]job.Job, error) {
	if limit != relevance.FeedLimit || createdAfterDays != relevance.FeedWindowDays {
		return nil, errors.New("unexpected search parameters")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[userID], nil
}

// memRankings keeps rankings as rank ordered job ids per user.
type memRankings struct {
	mu     sync.Mutex
	rows   map[string][]int
	writes int
	err    error
}

func (m *memRankings) ReplaceForUser(ctx context.Context, userID string, jobIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.rows[userID] = append([]int(nil), jobIDs...)
	return nil
}

type memFlags struct {
	mu        sync.Mutex
	generated map[string]bool
	failed    map[string]bool
}

func newFlags() *memFlags {
	return &memFlags{generated: map[string]bool{}, failed: map[string]bool{}}
}

func (m *memFlags) MarkRelevantJobsGenerated(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generated[userID] = true
	m.failed[userID] = false
	return nil
}

func (m *memFlags) MarkRelevantJobsFailed(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[userID] = true
	return nil
}

func jobs(ids ...int) []job.Job {
	out := make([]job.Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, job.Job{ID: id})
	}
	return out
}

func TestRecomputeReplacesRanking(t *testing.T) {
	search := &fakeSearch{jobs: map[string][]job.Job{"u1": jobs(1, 2, 3)}}
	rankings := &memRankings{rows: map[string][]int{}}
	flags := newFlags()
	w := relevance.NewWorker(search, rankings, flags, zerolog.Nop())

	res := w.Recompute(context.Background(), "u1", "ada@example.com")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ada@example.com", res.Identifier)

	search.jobs["u1"] = jobs(9, 2)
	res = w.Recompute(context.Background(), "u1", "ada@example.com")
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []int{9, 2}, rankings.rows["u1"])
	assert.True(t, flags.generated["u1"])
	assert.Equal(t, 2, rankings.writes)
}

func TestRecomputeZeroJobsIsSuccess(t *testing.T) {
	rankings := &memRankings{rows: map[string][]int{"u1": {4, 5}}}
	flags := newFlags()
	w := relevance.NewWorker(&fakeSearch{jobs: map[string][]job.Job{}}, rankings, flags, zerolog.Nop())

	res := w.Recompute(context.Background(), "u1", "ada@example.com")
	assert.True(t, res.Success)
	assert.Equal(t, "no relevant jobs found", res.Message)
	assert.Equal(t, 0, rankings.writes)
	assert.True(t, flags.generated["u1"])
}

func TestRecomputeSearchFailureWritesNothing(t *testing.T) {
	rankings := &memRankings{rows: map[string][]int{}}
	flags := newFlags()
	w := relevance.NewWorker(&fakeSearch{err: errors.New("status 503")}, rankings, flags, zerolog.Nop())

	res := w.Recompute(context.Background(), "u1", "")
	assert.False(t, res.Success)
	assert.Equal(t, "u1", res.Identifier)
	assert.Contains(t, res.Error, "search failed")
	assert.Equal(t, 0, rankings.writes)
	assert.False(t, flags.generated["u1"])
	assert.True(t, flags.failed["u1"])
}

func TestRecomputeStoreFailure(t *testing.T) {
	rankings := &memRankings{rows: map[string][]int{}, err: errors.New("tx aborted")}
	flags := newFlags()
	w := relevance.NewWorker(&fakeSearch{jobs: map[string][]job.Job{"u1": jobs(1)}}, rankings, flags, zerolog.Nop())

	res := w.Recompute(context.Background(), "u1", "ada@example.com")
	assert.False(t, res.Success)
	assert.Equal(t, "tx aborted", res.Error)
	assert.False(t, flags.generated["u1"])
}

type fakeUsers struct {
	users []user.Contact
	err   error
}

func (f fakeUsers) OnboardedUsers(ctx context.Context) ([]user.Contact, error) {
	return f.users, f.err
}

type fakeReporter struct {
	reports   []batch.Report
	noTargets []string
}

func (f *fakeReporter) Send(ctx context.Context, title, runID string, stats []template.Stat, rep batch.Report) error {
	f.reports = append(f.reports, rep)
	return nil
}

func (f *fakeReporter) NoTargets(ctx context.Context, title, runID, what string) error {
	f.noTargets = append(f.noTargets, what)
	return nil
}

func TestRecomputeAll(t *testing.T) {
	search := &fakeSearch{jobs: map[string][]job.Job{"u1": jobs(1), "u2": jobs(2, 3)}}
	rankings := &memRankings{rows: map[string][]int{}}
	w := relevance.NewWorker(search, rankings, newFlags(), zerolog.Nop())
	rep := &fakeReporter{}
	users := fakeUsers{users: []user.Contact{{ID: "u1", Email: "a@x.test"}, {ID: "u2", Email: "b@x.test"}, {ID: "u3", Email: "c@x.test"}}}
	svc := relevance.NewService(w, users, rep, lock.NewLocalLocker(), batch.Options{ChunkSize: 5}, zerolog.Nop())

	out, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Candidates)
	assert.Len(t, out.Report.Successes, 3)
	require.Len(t, rep.reports, 1)
	assert.Empty(t, rep.noTargets)
}

func TestRecomputeAllNoUsers(t *testing.T) {
	w := relevance.NewWorker(&fakeSearch{}, &memRankings{rows: map[string][]int{}}, newFlags(), zerolog.Nop())
	rep := &fakeReporter{}
	svc := relevance.NewService(w, fakeUsers{}, rep, lock.NewLocalLocker(), batch.Options{}, zerolog.Nop())

	out, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.True(t, out.NoTargets)
	assert.Equal(t, []string{"users"}, rep.noTargets)
	assert.Empty(t, rep.reports)
}

func TestRecomputeAllLocked(t *testing.T) {
	locker := lock.NewLocalLocker()
	release, err := locker.Acquire(context.Background(), relevance.RunName, time.Minute)
	require.NoError(t, err)
	defer release()

	w := relevance.NewWorker(&fakeSearch{}, &memRankings{rows: map[string][]int{}}, newFlags(), zerolog.Nop())
	svc := relevance.NewService(w, fakeUsers{}, &fakeReporter{}, locker, batch.Options{}, zerolog.Nop())
	_, err = svc.RecomputeAll(context.Background())
	assert.Equal(t, lock.ErrLocked, err)
}
