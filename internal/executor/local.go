package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/casualjim/sqlowl/action"
	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/provider"
	"github.com/casualjim/sqlowl/tool"
	"github.com/goccy/go-json"
)

const thoughtMarker = "Thought: "

// Local runs the loop in the calling goroutine.
type Local struct {
	logger *slog.Logger
}

func NewLocal() *Local {
	return &Local{logger: slog.Default().With(slogx.LoggerName("sqlowl.executor"))}
}

// WithLogger returns a copy of l that logs to logger.
func (l *Local) WithLogger(logger *slog.Logger) *Local {
	return &Local{logger: logger.With(slogx.LoggerName("sqlowl.executor"))}
}

// run is the mutable state of one run.
type run struct {
	cmd    RunCommand
	state  *prompt.State
	logger *slog.Logger

	attempts   int
	tokens     int
	whitespace int
}

// generation is what one attempt produced.
type generation struct {
	text   string
	tokens int
}

// Run answers the question in cmd.Prompt. It never returns a nil trace when
// the command carries a prompt.
func (l *Local) Run(ctx context.Context, cmd RunCommand) api.RunResult {
	r := &run{
		cmd:    cmd,
		state:  cmd.Prompt,
		logger: l.logger.With(slogx.RunID(cmd.ID())),
	}
	if cmd.Model != nil {
		r.logger = r.logger.With(slogx.Model(cmd.Model.Name()))
	}

	if err := cmd.Validate(); err != nil {
		return l.finish(ctx, r, nil, fmt.Errorf("invalid run command: %w", err))
	}

	for r.attempts < cmd.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return l.finish(ctx, r, nil, err)
		}
		r.attempts++
		answer, err := l.attempt(ctx, r)
		if err != nil || answer != nil {
			return l.finish(ctx, r, answer, err)
		}
	}
	return l.finish(ctx, r, nil, fmt.Errorf("%w: %d attempts", api.ErrAttemptsExhausted, r.attempts))
}

// attempt runs one GENERATING and PARSED step. A non-nil answer ends the run.
func (l *Local) attempt(ctx context.Context, r *run) (*string, error) {
	cmd := r.cmd
	cmd.Hook.OnGenerationStart(ctx, events.GenerationStart{
		RunID:     cmd.ID(),
		Attempt:   r.attempts,
		Model:     cmd.Model.Name(),
		Timestamp: events.Now(),
	})

	gen, genErr := l.generate(ctx, r)
	r.state.AppendGeneration(gen.text)
	cmd.Hook.OnGeneration(ctx, events.Generation{
		RunID:     cmd.ID(),
		Attempt:   r.attempts,
		Text:      gen.text,
		Tokens:    gen.tokens,
		Timestamp: events.Now(),
	})
	if genErr != nil {
		return nil, genErr
	}

	parsed := action.Parse(gen.text)
	switch parsed.Outcome() {
	case action.OutcomeAction:
		observation, err := l.dispatch(ctx, r, parsed)
		if err != nil {
			return nil, err
		}
		l.observe(ctx, r, observation)
		return nil, nil
	case action.OutcomeFinal:
		answer := action.CleanAnswer(parsed.FinalAnswer)
		return &answer, nil
	default:
		r.logger.DebugContext(ctx, "generation has neither action nor final answer", slog.Int("attempt", r.attempts), slog.String("policy", cmd.EmptyPolicy.String()))
		if cmd.EmptyPolicy == EmptyNudge {
			l.observe(ctx, r, NudgeObservation)
		}
		return nil, nil
	}
}

func (l *Local) observe(ctx context.Context, r *run, observation string) {
	r.state.AppendObservation(observation)
	r.cmd.Hook.OnObservation(ctx, events.Observation{
		RunID:     r.cmd.ID(),
		Attempt:   r.attempts,
		Text:      observation,
		Timestamp: events.Now(),
	})
}

// generate streams one generation. The returned text is what should be kept
// in the prompt even when err is set.
func (l *Local) generate(ctx context.Context, r *run) (generation, error) {
	cmd := r.cmd
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := cmd.Model.Provider().Generate(genCtx, provider.GenerateParams{
		RunID:       cmd.ID(),
		Model:       cmd.Model.Name(),
		Prompt:      r.state,
		Stop:        slices.Clone(cmd.Stop),
		MaxTokens:   cmd.MaxTokens,
		Temperature: cmd.Temperature,
		TopP:        cmd.TopP,
	})
	if err != nil {
		return generation{}, fmt.Errorf("failed to start generation: %w", err)
	}
	// Early stops cancel the backend; drain so the producer can exit.
	defer func() {
		cancel()
		for range stream {
		}
	}()

	var chunk strings.Builder
	var gen generation
	for {
		select {
		case <-ctx.Done():
			gen.text = chunk.String()
			return gen, ctx.Err()
		case ev, ok := <-stream:
			if !ok {
				gen.text = chunk.String()
				return gen, nil
			}
			switch ev := ev.(type) {
			case provider.Delim:
			case provider.Finish:
				gen.text = chunk.String()
				return gen, nil
			case provider.Error:
				gen.text = chunk.String()
				return gen, fmt.Errorf("generation failed: %w", ev.Err)
			case provider.Chunk:
				if ev.Role != "" && ev.Role != messages.RoleAssistant {
					gen.text = chunk.String()
					return gen, nil
				}
				cmd.Hook.OnChunk(ctx, events.Chunk{
					RunID:     cmd.ID(),
					Attempt:   r.attempts,
					Text:      ev.Text,
					Timestamp: events.Now(),
				})

				chunk.WriteString(ev.Text)
				gen.tokens++
				text, stop, err := r.check(chunk.String(), ev.Text)
				if err != nil || stop {
					gen.text = text
					return gen, err
				}
			}
		}
	}
}

// check applies the circuit breakers and stop sequences after an increment.
// It returns the text to keep and whether generation should stop.
func (r *run) check(text, increment string) (string, bool, error) {
	cmd := r.cmd
	if increment == "" || increment == "\n" {
		r.whitespace++
	} else {
		r.whitespace = 0
	}

	if n := strings.Count(text, thoughtMarker); n > cmd.ThoughtLimit {
		return text, true, fmt.Errorf("%w: %d thoughts in one generation", api.ErrDefensiveLoop, n)
	}
	if r.whitespace > cmd.WhitespaceLimit {
		return text, true, fmt.Errorf("%w: %d blank increments", api.ErrDefensiveWhitespace, r.whitespace)
	}

	r.tokens++
	if r.tokens > cmd.ContextBudget {
		return text, true, fmt.Errorf("%w: %d tokens", api.ErrContextExhausted, r.tokens)
	}

	if idx := firstStop(text, cmd.Stop); idx >= 0 {
		return text[:idx], true, nil
	}
	return text, false, nil
}

func firstStop(text string, stops []string) int {
	first := -1
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if idx := strings.Index(text, stop); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	return first
}

// dispatch runs the parsed action and turns the outcome into an observation.
// Only unrecoverable provider errors are returned.
func (l *Local) dispatch(ctx context.Context, r *run, parsed action.Parsed) (string, error) {
	cmd := r.cmd
	cmd.Hook.OnAction(ctx, events.Action{
		RunID:     cmd.ID(),
		Attempt:   r.attempts,
		Name:      parsed.Action,
		Inputs:    parsed.Inputs,
		Timestamp: events.Now(),
	})

	names := cmd.Tools.Names()
	if !slices.Contains(names, parsed.Action) {
		return invalidActionObservation(names), nil
	}

	result, err := cmd.Tools.Call(ctx, parsed.Action, parsed.Inputs)
	if err != nil {
		var arity *tool.ArityError
		var query *tool.QueryError
		switch {
		case errors.As(err, &arity):
			return arityObservation(parsed.Action, arity), nil
		case errors.As(err, &query):
			return query.Error(), nil
		case errors.Is(err, tool.ErrInvalidAction):
			return invalidActionObservation(names), nil
		default:
			return "", fmt.Errorf("action %s failed: %w", parsed.Action, err)
		}
	}

	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize result of %s: %w", parsed.Action, err)
	}
	return "```" + string(b) + "```", nil
}

func invalidActionObservation(names []string) string {
	return "That's an invalid action. Valid actions: " + strings.Join(names, ", ")
}

func arityObservation(name string, err *tool.ArityError) string {
	msg := strings.ReplaceAll(err.Error(), "positional argument", "Action Input")
	return fmt.Sprintf("The action %s %s", name, msg)
}

// finish builds the result and reports it to the hook.
func (l *Local) finish(ctx context.Context, r *run, answer *string, err error) api.RunResult {
	// Results are reported even when ctx is done.
	hookCtx := context.WithoutCancel(ctx)

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w: %w", api.ErrTimeout, err)
		case errors.Is(err, context.Canceled):
			err = fmt.Errorf("run cancelled: %w", err)
		}
	}

	result := api.RunResult{
		RunID:       r.cmd.ID(),
		FinalAnswer: answer,
		Reason:      api.TerminationFor(err),
		Attempts:    r.attempts,
		Tokens:      r.tokens,
		Err:         err,
	}
	if err != nil {
		result.FinalAnswer = nil
	}
	if r.state != nil {
		result.Trace = r.state.Trace()
	}

	if err != nil {
		r.logger.WarnContext(hookCtx, "run ended without an answer", slog.String("reason", result.Reason.String()), slogx.Error(err))
		if r.cmd.Hook != nil {
			r.cmd.Hook.OnError(hookCtx, events.Error{RunID: r.cmd.ID(), Attempt: r.attempts, Err: err, Timestamp: events.Now()})
		}
	} else {
		r.logger.InfoContext(hookCtx, "run answered", slog.Int("attempts", r.attempts), slog.Int("tokens", r.tokens))
	}
	if r.cmd.Hook != nil {
		r.cmd.Hook.OnResult(hookCtx, events.Result{RunID: r.cmd.ID(), Result: result, Timestamp: events.Now()})
	}
	return result
}
