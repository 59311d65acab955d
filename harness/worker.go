package harness

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/goccy/go-json"
)

// maxEventLine bounds one JSON line of the worker protocol. Result events
// carry the whole trace.
const maxEventLine = 32 << 20

// ServeWorker reads one Request as JSON from in, runs it inline and writes
// every run event to out as one JSON object per line. The last line is always
// a "result" event.
func ServeWorker(ctx context.Context, in io.Reader, out io.Writer) error {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	w := &lineWriter{out: out}
	res, err := Inline{}.Execute(ctx, req, w)
	if err != nil {
		res = api.RunResult{RunID: req.RunID, Reason: api.TerminationFor(err), Err: err}
		w.OnError(ctx, events.Error{RunID: req.RunID, Err: err, Timestamp: events.Now()})
	}
	if !w.hasResult() {
		w.OnResult(ctx, events.Result{RunID: req.RunID, Result: res, Timestamp: events.Now()})
	}
	return w.error()
}

// lineWriter is a hook that writes events as JSON lines.
type lineWriter struct {
	mu     sync.Mutex
	out    io.Writer
	result bool
	err    error
}

func (l *lineWriter) write(ev events.Event) {
	b, err := events.ToJSON(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := ev.(events.Result); ok {
		l.result = true
	}
	if err != nil {
		l.err = errors.Join(l.err, err)
		return
	}
	if _, err := l.out.Write(append(b, '\n')); err != nil {
		l.err = errors.Join(l.err, err)
	}
}

func (l *lineWriter) hasResult() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

func (l *lineWriter) error() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *lineWriter) OnGenerationStart(_ context.Context, ev events.GenerationStart) { l.write(ev) }
func (l *lineWriter) OnChunk(_ context.Context, ev events.Chunk)                     { l.write(ev) }
func (l *lineWriter) OnGeneration(_ context.Context, ev events.Generation)           { l.write(ev) }
func (l *lineWriter) OnAction(_ context.Context, ev events.Action)                   { l.write(ev) }
func (l *lineWriter) OnObservation(_ context.Context, ev events.Observation)         { l.write(ev) }
func (l *lineWriter) OnResult(_ context.Context, ev events.Result)                   { l.write(ev) }

func (l *lineWriter) OnError(_ context.Context, err error) {
	var ev events.Error
	if !errors.As(err, &ev) {
		ev = events.Error{Err: err, Timestamp: events.Now()}
	}
	l.write(ev)
}

// readEvents forwards the events read from r to hook and returns the run
// result once a result event arrives.
func readEvents(ctx context.Context, r io.Reader, hook events.Hook) (api.RunResult, bool, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventLine)

	var (
		res   api.RunResult
		found bool
		errs  error
	)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := events.FromJSON(line)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if result, ok := ev.(events.Result); ok {
			res, found = result.Result, true
		}
		events.Dispatch(ctx, hook, ev)
	}
	if err := sc.Err(); err != nil {
		errs = errors.Join(errs, err)
	}
	return res, found, errs
}
