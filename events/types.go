package events

import (
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Event is any occurrence published for a run.
type Event interface {
	event()
}

// Delim marks the boundaries of a run on a stream.
type Delim struct {
	RunID uuid.UUID `json:"run_id"`
	Delim string    `json:"delim"`
}

// GenerationStart is emitted before the model is asked for attempt Attempt.
type GenerationStart struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Model     string          `json:"model,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Chunk is one increment as produced by the model.
type Chunk struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Generation is the text kept for an attempt after stop sequences were cut.
type Generation struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Text      string          `json:"text"`
	Tokens    int             `json:"tokens"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Action is a parsed tool invocation.
type Action struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Name      string          `json:"name"`
	Inputs    []string        `json:"inputs"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Observation is the text fed back to the model after an attempt.
type Observation struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Result carries the outcome of a run.
type Result struct {
	RunID     uuid.UUID       `json:"run_id"`
	Result    api.RunResult   `json:"result"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Error reports a failure during a run.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	Attempt   int             `json:"attempt"`
	Err       error           `json:"-"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

func (Delim) event()           {}
func (GenerationStart) event() {}
func (Chunk) event()           {}
func (Generation) event()      {}
func (Action) event()          {}
func (Observation) event()     {}
func (Result) event()          {}
func (Error) event()           {}

func (e Error) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e Error) Unwrap() error {
	return e.Err
}

// Now returns the current time as an event timestamp.
func Now() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}
