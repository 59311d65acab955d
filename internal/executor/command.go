package executor

import (
	"errors"
	"fmt"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/tool"
	"github.com/google/uuid"
)

const (
	DefaultMaxAttempts     = 15
	DefaultMaxTokens       = 400
	DefaultContextBudget   = 4096
	DefaultWhitespaceLimit = 20
	DefaultThoughtLimit    = 4
)

// NudgeObservation is fed back when a generation has neither an action nor a
// final answer and the EmptyNudge policy is active.
const NudgeObservation = "Invalid format: respond with an Action or a Final Answer."

// DefaultStop returns the stop sequences used when a command sets none.
func DefaultStop() []string {
	return []string{"Question:", "Observation:", "<|im_end|>", "<|im_start|>user"}
}

// EmptyPolicy decides what happens after a generation without an action or a final answer.
type EmptyPolicy uint8

const (
	// EmptyContinue generates again without touching the prompt.
	EmptyContinue EmptyPolicy = iota
	// EmptyNudge appends NudgeObservation before generating again.
	EmptyNudge
)

func (p EmptyPolicy) String() string {
	switch p {
	case EmptyContinue:
		return "continue"
	case EmptyNudge:
		return "nudge"
	default:
		return fmt.Sprintf("EmptyPolicy(%d)", uint8(p))
	}
}

// ParseEmptyPolicy accepts "continue" and "nudge".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch s {
	case "", "continue":
		return EmptyContinue, nil
	case "nudge":
		return EmptyNudge, nil
	default:
		return EmptyContinue, fmt.Errorf("unknown empty policy %q: expected continue or nudge", s)
	}
}

func NewRunCommand(model api.Model, tools tool.Provider, state *prompt.State, hook events.Hook) (RunCommand, error) {
	var err error
	if model == nil {
		err = errors.Join(err, errors.New("model is required"))
	}
	if tools == nil {
		err = errors.Join(err, errors.New("tools are required"))
	}
	if state == nil {
		err = errors.Join(err, errors.New("prompt is required"))
	}
	if err != nil {
		return RunCommand{}, err
	}
	if hook == nil {
		hook = events.NopHook{}
	}

	return RunCommand{
		id:              uuidx.New(),
		Model:           model,
		Tools:           tools,
		Prompt:          state,
		Hook:            hook,
		MaxAttempts:     DefaultMaxAttempts,
		MaxTokens:       DefaultMaxTokens,
		ContextBudget:   DefaultContextBudget,
		Stop:            DefaultStop(),
		WhitespaceLimit: DefaultWhitespaceLimit,
		ThoughtLimit:    DefaultThoughtLimit,
	}, nil
}

// RunCommand configures one run. The prompt state is appended to in place.
type RunCommand struct {
	id uuid.UUID

	Model  api.Model
	Tools  tool.Provider
	Prompt *prompt.State
	Hook   events.Hook

	MaxAttempts     int
	MaxTokens       int
	ContextBudget   int
	Stop            []string
	WhitespaceLimit int
	ThoughtLimit    int
	EmptyPolicy     EmptyPolicy

	Temperature *float64
	TopP        *float64
}

func (r *RunCommand) ID() uuid.UUID {
	return r.id
}

// Validate reports every missing or out of range field.
func (r *RunCommand) Validate() error {
	var err error
	if r.Model == nil {
		err = errors.Join(err, errors.New("model cannot be nil"))
	} else if r.Model.Provider() == nil {
		err = errors.Join(err, errors.New("model provider cannot be nil"))
	}
	if r.Tools == nil {
		err = errors.Join(err, errors.New("tools cannot be nil"))
	}
	if r.Prompt == nil {
		err = errors.Join(err, errors.New("prompt cannot be nil"))
	}
	if r.Hook == nil {
		err = errors.Join(err, errors.New("hook cannot be nil"))
	}
	if r.MaxAttempts <= 0 {
		err = errors.Join(err, fmt.Errorf("max attempts must be positive, got %d", r.MaxAttempts))
	}
	if r.MaxTokens <= 0 {
		err = errors.Join(err, fmt.Errorf("max tokens must be positive, got %d", r.MaxTokens))
	}
	if r.ContextBudget <= 0 {
		err = errors.Join(err, fmt.Errorf("context budget must be positive, got %d", r.ContextBudget))
	}
	return err
}

func (r RunCommand) WithID(id uuid.UUID) RunCommand {
	r.id = id
	return r
}

func (r RunCommand) WithMaxAttempts(n int) RunCommand {
	r.MaxAttempts = n
	return r
}

func (r RunCommand) WithMaxTokens(n int) RunCommand {
	r.MaxTokens = n
	return r
}

func (r RunCommand) WithContextBudget(n int) RunCommand {
	r.ContextBudget = n
	return r
}

func (r RunCommand) WithStop(stop ...string) RunCommand {
	r.Stop = stop
	return r
}

func (r RunCommand) WithEmptyPolicy(p EmptyPolicy) RunCommand {
	r.EmptyPolicy = p
	return r
}

// WithSampling sets temperature and top-p; nil keeps the backend default.
func (r RunCommand) WithSampling(temperature, topP *float64) RunCommand {
	r.Temperature = temperature
	r.TopP = topP
	return r
}
