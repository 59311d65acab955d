package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultGrace is how long a Runner waits for a result after the timeout
// before it reports the run as timed out itself.
const DefaultGrace = time.Second

// Isolation executes one request. Implementations should return promptly
// once ctx is done; a Runner stops waiting for them regardless.
type Isolation interface {
	Execute(ctx context.Context, req Request, hook events.Hook) (api.RunResult, error)
}

// Runner executes requests with a hard timeout.
type Runner struct {
	isolation Isolation
	hook      events.Hook
	grace     time.Duration
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption = opts.Option[Runner]

var (
	// WithHook observes every run.
	WithHook = opts.ForName[Runner, events.Hook]("hook")
	// WithGrace changes DefaultGrace.
	WithGrace = opts.ForName[Runner, time.Duration]("grace")
	// WithLogger sets the runner logger.
	WithLogger = opts.ForName[Runner, *slog.Logger]("logger")
)

func NewRunner(isolation Isolation, options ...RunnerOption) (*Runner, error) {
	if isolation == nil {
		return nil, errors.New("isolation is required")
	}
	r := &Runner{
		isolation: isolation,
		grace:     DefaultGrace,
	}
	if err := opts.Apply(r, options); err != nil {
		return nil, err
	}
	if r.hook == nil {
		r.hook = events.NopHook{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slogx.LoggerName("sqlowl.harness"))
	return r, nil
}

// Run executes req and waits at most timeout for its result. A zero timeout
// uses the request timeout or DefaultTimeout.
func (r *Runner) Run(ctx context.Context, req Request, timeout time.Duration) api.RunResult {
	if req.RunID == uuid.Nil {
		req.RunID = uuidx.New()
	}
	if timeout > 0 {
		req.Timeout = timeout
	}
	timeout = req.timeout()
	logger := r.logger.With(slogx.RunID(req.RunID), slogx.Model(req.Model))

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	recorder := newTraceRecorder(req.encoding())
	hook := events.Multi(recorder, r.hook)

	slot := NewSlot()
	go func() {
		res, err := r.isolation.Execute(runCtx, req, hook)
		if err != nil {
			res = r.failure(runCtx, req, recorder.partial(), err)
		}
		if res.RunID == uuid.Nil {
			res.RunID = req.RunID
		}
		if res.Trace.IsZero() && res.Attempts == 0 {
			partial := recorder.partial()
			res.Trace, res.Attempts, res.Tokens = partial.Trace, partial.Attempts, partial.Tokens
		}
		slot.Fill(res)
	}()

	select {
	case <-slot.Done():
	case <-runCtx.Done():
		grace := time.NewTimer(r.grace)
		defer grace.Stop()
		select {
		case <-slot.Done():
		case <-grace.C:
			logger.WarnContext(ctx, "run did not report back in time, abandoning it", slog.Duration("timeout", timeout))
			slot.Fill(r.failure(runCtx, req, recorder.partial(), runCtx.Err()))
		}
	}

	res, _ := slot.Result()
	return res
}

// failure builds the result of a run that ended without reporting one from
// what was recorded of it and tells the hook about it.
func (r *Runner) failure(ctx context.Context, req Request, partial api.RunResult, err error) api.RunResult {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, api.ErrTimeout) {
		err = fmt.Errorf("%w: no result after %s: %w", api.ErrTimeout, req.timeout(), err)
	}
	res := api.RunResult{
		RunID:    req.RunID,
		Trace:    partial.Trace,
		Attempts: partial.Attempts,
		Tokens:   partial.Tokens,
		Reason:   api.TerminationFor(err),
		Err:      err,
	}
	hookCtx := context.WithoutCancel(ctx)
	r.hook.OnError(hookCtx, events.Error{RunID: req.RunID, Err: err, Timestamp: events.Now()})
	r.hook.OnResult(hookCtx, events.Result{RunID: req.RunID, Result: res, Timestamp: events.Now()})
	return res
}

// RunAll runs every request with at most concurrency runs in flight and
// returns the results in request order. A concurrency below one means no limit.
func (r *Runner) RunAll(ctx context.Context, reqs []Request, timeout time.Duration, concurrency int) []api.RunResult {
	results := make([]api.RunResult, len(reqs))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = r.Run(ctx, req, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
