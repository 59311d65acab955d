package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/sqlowl/pkg/slogx"
)

// Hook observes a run. Implementations must not block for long: the agent
// loop calls them synchronously.
type Hook interface {
	OnGenerationStart(context.Context, GenerationStart)
	OnChunk(context.Context, Chunk)
	OnGeneration(context.Context, Generation)
	OnAction(context.Context, Action)
	OnObservation(context.Context, Observation)
	OnResult(context.Context, Result)
	OnError(context.Context, error)
}

// NopHook ignores everything. Embed it to implement only some callbacks.
type NopHook struct{}

func (NopHook) OnGenerationStart(context.Context, GenerationStart) {}
func (NopHook) OnChunk(context.Context, Chunk)                     {}
func (NopHook) OnGeneration(context.Context, Generation)           {}
func (NopHook) OnAction(context.Context, Action)                   {}
func (NopHook) OnObservation(context.Context, Observation)         {}
func (NopHook) OnResult(context.Context, Result)                   {}
func (NopHook) OnError(context.Context, error)                     {}

// Dispatch calls the hook method matching ev. Delim events are dropped.
func Dispatch(ctx context.Context, hook Hook, ev Event) {
	switch ev := ev.(type) {
	case Delim:
	case GenerationStart:
		hook.OnGenerationStart(ctx, ev)
	case Chunk:
		hook.OnChunk(ctx, ev)
	case Generation:
		hook.OnGeneration(ctx, ev)
	case Action:
		hook.OnAction(ctx, ev)
	case Observation:
		hook.OnObservation(ctx, ev)
	case Result:
		hook.OnResult(ctx, ev)
	case Error:
		hook.OnError(ctx, ev)
	default:
		panic(fmt.Sprintf("unknown event type: %T", ev))
	}
}

// Multi fans every callback out to hooks in order. Nil hooks are skipped.
func Multi(hooks ...Hook) Hook {
	nonNil := make(multiHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			nonNil = append(nonNil, h)
		}
	}
	return nonNil
}

type multiHook []Hook

func (m multiHook) OnGenerationStart(ctx context.Context, ev GenerationStart) {
	for _, h := range m {
		h.OnGenerationStart(ctx, ev)
	}
}

func (m multiHook) OnChunk(ctx context.Context, ev Chunk) {
	for _, h := range m {
		h.OnChunk(ctx, ev)
	}
}

func (m multiHook) OnGeneration(ctx context.Context, ev Generation) {
	for _, h := range m {
		h.OnGeneration(ctx, ev)
	}
}

func (m multiHook) OnAction(ctx context.Context, ev Action) {
	for _, h := range m {
		h.OnAction(ctx, ev)
	}
}

func (m multiHook) OnObservation(ctx context.Context, ev Observation) {
	for _, h := range m {
		h.OnObservation(ctx, ev)
	}
}

func (m multiHook) OnResult(ctx context.Context, ev Result) {
	for _, h := range m {
		h.OnResult(ctx, ev)
	}
}

func (m multiHook) OnError(ctx context.Context, err error) {
	for _, h := range m {
		h.OnError(ctx, err)
	}
}

// LoggingHook writes every callback except chunks to logger.
func LoggingHook(logger *slog.Logger) Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingHook{logger: logger.With(slogx.LoggerName("sqlowl.events"))}
}

type loggingHook struct {
	NopHook
	logger *slog.Logger
}

func (l *loggingHook) OnGenerationStart(ctx context.Context, ev GenerationStart) {
	l.logger.DebugContext(ctx, "generation started", slogx.RunID(ev.RunID), slog.Int("attempt", ev.Attempt), slogx.Model(ev.Model))
}

func (l *loggingHook) OnGeneration(ctx context.Context, ev Generation) {
	l.logger.DebugContext(ctx, "generation finished", slogx.RunID(ev.RunID), slog.Int("attempt", ev.Attempt), slog.Int("tokens", ev.Tokens))
}

func (l *loggingHook) OnAction(ctx context.Context, ev Action) {
	l.logger.InfoContext(ctx, "action", slogx.RunID(ev.RunID), slog.Int("attempt", ev.Attempt), slog.String("name", ev.Name), slog.Any("inputs", ev.Inputs))
}

func (l *loggingHook) OnObservation(ctx context.Context, ev Observation) {
	l.logger.DebugContext(ctx, "observation", slogx.RunID(ev.RunID), slog.Int("attempt", ev.Attempt), slog.Int("length", len(ev.Text)))
}

func (l *loggingHook) OnResult(ctx context.Context, ev Result) {
	l.logger.InfoContext(ctx, "run finished",
		slogx.RunID(ev.RunID),
		slog.String("reason", ev.Result.Reason.String()),
		slog.Int("attempts", ev.Result.Attempts),
		slog.Int("tokens", ev.Result.Tokens),
	)
}

func (l *loggingHook) OnError(ctx context.Context, err error) {
	l.logger.ErrorContext(ctx, "run error", slogx.Error(err))
}
