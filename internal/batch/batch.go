// Package batch runs a worker over a list of targets in fixed size chunks.
//
// Every item of a chunk is started at once and the whole chunk settles before
// the next one starts, so at most ChunkSize workers are in flight. Worker
// errors and panics are converted into failure results and never abort
// sibling items or later chunks.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/aclements/go-moremath/stats"
	"golang.org/x/sync/errgroup"
)

const DefaultChunkSize = 5

type Result struct {
	Success    bool
	Skipped    bool // success with nothing to do, e.g. no new jobs for an alert
	Identifier string
	Message    string
	Error      string
	Duration   time.Duration
}

type Report struct {
	Successes []Result
	Failures  []Result
}

type Options struct {
	ChunkSize int
	Delay     time.Duration // waited between chunks, never after the last one
}

type Worker[T any] func(ctx context.Context, item T) (Result, error)

func Run[T any](ctx context.Context, items []T, identify func(T) string, worker Worker[T], opts Options) Report {
	report := Report{Successes: []Result{}, Failures: []Result{}}
	if len(items) == 0 {
		return report
	}
	size := opts.ChunkSize
	if size < 1 {
		size = DefaultChunkSize
	}
	results := make([]Result, len(items))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = Result{Identifier: identify(items[i]), Error: fmt.Sprintf("not started: %v", err)}
			}
			break
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = settle(ctx, items[i], identify, worker)
				return nil
			})
		}
		g.Wait()
		if end < len(items) && opts.Delay > 0 {
			t := time.NewTimer(opts.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
	for _, res := range results {
		if res.Success {
			report.Successes = append(report.Successes, res)
		} else {
			report.Failures = append(report.Failures, res)
		}
	}
	return report
}

func settle[T any](ctx context.Context, item T, identify func(T) string, worker Worker[T]) (res Result) {
	started := time.Now()
	id := identify(item)
	defer func() {
		if r := recover(); r != nil {
			res = Result{Identifier: id, Error: fmt.Sprintf("worker panicked: %v", r)}
		}
		res.Duration = time.Since(started)
	}()
	res, err := worker(ctx, item)
	if res.Identifier == "" {
		res.Identifier = id
	}
	if err != nil {
		return Result{Identifier: res.Identifier, Error: err.Error()}
	}
	if !res.Success && res.Error == "" {
		res.Error = "worker reported failure"
	}
	return res
}

func (r Report) Total() int {
	return len(r.Successes) + len(r.Failures)
}

// Sent counts successes that did work, excluding skipped items.
func (r Report) Sent() int {
	n := 0
	for _, s := range r.Successes {
		if !s.Skipped {
			n++
		}
	}
	return n
}

func (r Report) Skipped() int {
	return len(r.Successes) - r.Sent()
}

type Latency struct {
	Mean time.Duration
	Max  time.Duration
}

func (r Report) Durations() Latency {
	var sample stats.Sample
	for _, res := range r.Successes {
		sample.Xs = append(sample.Xs, float64(res.Duration))
	}
	for _, res := range r.Failures {
		sample.Xs = append(sample.Xs, float64(res.Duration))
	}
	if len(sample.Xs) == 0 {
		return Latency{}
	}
	_, max := sample.Bounds()
	return Latency{Mean: time.Duration(sample.Mean()), Max: time.Duration(max)}
}
