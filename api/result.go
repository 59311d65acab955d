package api

import (
	"errors"
	"fmt"

	"github.com/casualjim/sqlowl/prompt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Termination names the way a run ended.
type Termination string

const (
	TerminationAnswered            Termination = "answered"
	TerminationDefensiveLoop       Termination = "defensive_loop"
	TerminationDefensiveWhitespace Termination = "defensive_whitespace"
	TerminationContextExhausted    Termination = "context_exhausted"
	TerminationAttemptsExhausted   Termination = "attempts_exhausted"
	TerminationTimeout             Termination = "timeout"
	TerminationFailed              Termination = "failed"
)

func (t Termination) String() string {
	return string(t)
}

// Sentinel returns the error a terminal kind maps to, nil for answered and failed runs.
func (t Termination) Sentinel() error {
	switch t {
	case TerminationDefensiveLoop:
		return ErrDefensiveLoop
	case TerminationDefensiveWhitespace:
		return ErrDefensiveWhitespace
	case TerminationContextExhausted:
		return ErrContextExhausted
	case TerminationAttemptsExhausted:
		return ErrAttemptsExhausted
	case TerminationTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// TerminationFor classifies err into a terminal kind.
func TerminationFor(err error) Termination {
	switch {
	case err == nil:
		return TerminationAnswered
	case errors.Is(err, ErrDefensiveLoop):
		return TerminationDefensiveLoop
	case errors.Is(err, ErrDefensiveWhitespace):
		return TerminationDefensiveWhitespace
	case errors.Is(err, ErrContextExhausted):
		return TerminationContextExhausted
	case errors.Is(err, ErrAttemptsExhausted):
		return TerminationAttemptsExhausted
	case errors.Is(err, ErrTimeout):
		return TerminationTimeout
	default:
		return TerminationFailed
	}
}

// RunResult is the outcome of answering one question.
// FinalAnswer is nil unless Reason is TerminationAnswered.
type RunResult struct {
	RunID       uuid.UUID
	FinalAnswer *string
	Trace       prompt.Trace
	Reason      Termination
	Attempts    int
	Tokens      int
	Err         error
}

func (r RunResult) IsSuccess() bool {
	return r.Err == nil && r.FinalAnswer != nil
}

func (r RunResult) IsError() bool {
	return r.Err != nil
}

// Answer returns the final answer or the empty string.
func (r RunResult) Answer() string {
	if r.FinalAnswer == nil {
		return ""
	}
	return *r.FinalAnswer
}

type runResultJSON struct {
	RunID       uuid.UUID    `json:"run_id"`
	FinalAnswer *string      `json:"final_answer"`
	Trace       prompt.Trace `json:"trace"`
	Reason      Termination  `json:"reason"`
	Attempts    int          `json:"attempts"`
	Tokens      int          `json:"tokens"`
	Error       string       `json:"error,omitempty"`
}

func (r RunResult) MarshalJSON() ([]byte, error) {
	out := runResultJSON{
		RunID:       r.RunID,
		FinalAnswer: r.FinalAnswer,
		Trace:       r.Trace,
		Reason:      r.Reason,
		Attempts:    r.Attempts,
		Tokens:      r.Tokens,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the error so that errors.Is still matches the
// sentinel for the decoded Reason.
func (r *RunResult) UnmarshalJSON(data []byte) error {
	var in runResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("failed to unmarshal run result: %w", err)
	}
	*r = RunResult{
		RunID:       in.RunID,
		FinalAnswer: in.FinalAnswer,
		Trace:       in.Trace,
		Reason:      in.Reason,
		Attempts:    in.Attempts,
		Tokens:      in.Tokens,
	}
	if in.Error != "" {
		r.Err = &remoteError{msg: in.Error, kind: in.Reason.Sentinel()}
	}
	return nil
}

// remoteError is an error that crossed a process boundary.
type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string {
	return e.msg
}

func (e *remoteError) Unwrap() error {
	return e.kind
}
