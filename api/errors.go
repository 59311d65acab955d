package api

import "errors"

var (
	// ErrDefensiveLoop ends a run whose generation repeats "Thought: " too often.
	ErrDefensiveLoop = errors.New("defensive loop: model is repeating thoughts")
	// ErrDefensiveWhitespace ends a run whose generation produced only blank increments.
	ErrDefensiveWhitespace = errors.New("defensive whitespace: model produced only whitespace")
	// ErrContextExhausted ends a run whose prompt and generation exceed the context budget.
	ErrContextExhausted = errors.New("context budget exhausted")
	// ErrAttemptsExhausted ends a run that never produced a final answer.
	ErrAttemptsExhausted = errors.New("attempts exhausted without a final answer")
	// ErrTimeout ends a run that exceeded the harness time limit.
	ErrTimeout = errors.New("run timed out")
)
