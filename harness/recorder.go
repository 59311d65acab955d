package harness

import (
	"context"
	"sync"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/prompt"
)

// traceRecorder rebuilds what a run generated and observed from its events,
// so a run that never reports a result still ends with a trace. The rendered
// prompt itself is not part of the event stream and is missing from it.
type traceRecorder struct {
	events.NopHook
	mu       sync.Mutex
	state    *prompt.State
	attempts int
	tokens   int
}

func newTraceRecorder(enc prompt.Encoding) *traceRecorder {
	state, err := prompt.NewTextState(enc, "")
	if err != nil {
		state = prompt.NewTurnsState(nil)
	}
	return &traceRecorder{state: state}
}

func (t *traceRecorder) OnGenerationStart(_ context.Context, ev events.GenerationStart) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = max(t.attempts, ev.Attempt)
}

func (t *traceRecorder) OnGeneration(_ context.Context, ev events.Generation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = max(t.attempts, ev.Attempt)
	t.tokens += ev.Tokens
	t.state.AppendGeneration(ev.Text)
}

func (t *traceRecorder) OnObservation(_ context.Context, ev events.Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.AppendObservation(ev.Text)
}

// partial returns the result recorded so far.
func (t *traceRecorder) partial() api.RunResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return api.RunResult{
		Trace:    t.state.Trace(),
		Attempts: t.attempts,
		Tokens:   t.tokens,
	}
}
