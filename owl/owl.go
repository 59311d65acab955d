// Package owl bundles everything needed to answer questions about a
// database: a model, the tools the model may call, the prompt template and
// the settings of the agent loop.
package owl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/internal/executor"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/casualjim/sqlowl/tool"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// Owl answers questions with a bounded reason-act-observe loop.
type Owl struct {
	name        string
	model       api.Model
	tools       tool.Provider
	template    prompt.Template
	encoding    prompt.Encoding
	selector    exemplar.Selector
	pool        []exemplar.Exemplar
	maxAttempts int
	maxTokens   int
	budget      int
	emptyPolicy executor.EmptyPolicy
	temperature *float64
	topP        *float64
	logger      *slog.Logger
}

// Option configures an Owl.
type Option = opts.Option[Owl]

var (
	// Name labels the owl in logs.
	Name = opts.ForName[Owl, string]("name")
	// Model sets the model that generates the reasoning.
	Model = opts.ForName[Owl, api.Model]("model")
	// Tools sets the capability provider actions are dispatched to.
	Tools = opts.ForName[Owl, tool.Provider]("tools")
	// Template replaces the built-in prompt template.
	Template = opts.ForName[Owl, prompt.Template]("template")
	// Encoding sets how the prompt is serialized for the model.
	Encoding = opts.ForName[Owl, prompt.Encoding]("encoding")
	// MaxAttempts caps the number of generations per question.
	MaxAttempts = opts.ForName[Owl, int]("maxAttempts")
	// MaxTokens caps the increments of a single generation.
	MaxTokens = opts.ForName[Owl, int]("maxTokens")
	// ContextBudget caps the increments of a whole run.
	ContextBudget = opts.ForName[Owl, int]("budget")
	// OnEmpty decides what happens after a generation without action or answer.
	OnEmpty = opts.ForName[Owl, executor.EmptyPolicy]("emptyPolicy")
	// Logger sets the logger of the agent loop.
	Logger = opts.ForName[Owl, *slog.Logger]("logger")
)

// Exemplars enables example injection with the given selector and pool.
func Exemplars(selector exemplar.Selector, pool []exemplar.Exemplar) Option {
	return opts.Type[Owl](func(o *Owl) error {
		if selector == nil {
			return errors.New("exemplar selector cannot be nil")
		}
		o.selector = selector
		o.pool = pool
		return nil
	})
}

// Sampling sets temperature and top-p. Nil keeps the backend default.
func Sampling(temperature, topP *float64) Option {
	return opts.Type[Owl](func(o *Owl) error {
		o.temperature = temperature
		o.topP = topP
		return nil
	})
}

// New creates an Owl. A model and tools are required.
func New(options ...Option) (*Owl, error) {
	o := &Owl{
		name:        "owl",
		template:    prompt.Default(),
		encoding:    prompt.EncodingRoleList,
		maxAttempts: executor.DefaultMaxAttempts,
		maxTokens:   executor.DefaultMaxTokens,
		budget:      executor.DefaultContextBudget,
	}
	if err := opts.Apply(o, options); err != nil {
		return nil, err
	}

	var err error
	if o.model == nil {
		err = errors.Join(err, errors.New("model is required"))
	}
	if o.tools == nil {
		err = errors.Join(err, errors.New("tools are required"))
	}
	if verr := o.template.Validate(); verr != nil {
		err = errors.Join(err, verr)
	}
	if err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o, nil
}

func (o *Owl) Name() string {
	return o.name
}

func (o *Owl) Model() api.Model {
	return o.model
}

func (o *Owl) Encoding() prompt.Encoding {
	return o.encoding
}

// Ask answers question. A nil hook discards events. The result always
// carries the trace of what was rendered and generated.
func (o *Owl) Ask(ctx context.Context, question string, hook events.Hook) api.RunResult {
	return o.AskWithID(ctx, uuid.Nil, question, hook)
}

// AskWithID is Ask with a caller chosen run id. uuid.Nil picks a new one.
func (o *Owl) AskWithID(ctx context.Context, runID uuid.UUID, question string, hook events.Hook) api.RunResult {
	var renderOpts []prompt.RenderOption
	if o.selector != nil {
		renderOpts = append(renderOpts, prompt.WithExemplars(o.selector, o.pool))
	}
	state, err := prompt.Render(ctx, o.template, question, o.encoding, renderOpts...)
	if err != nil {
		return api.RunResult{
			RunID:  runID,
			Reason: api.TerminationFailed,
			Err:    fmt.Errorf("failed to render prompt: %w", err),
		}
	}

	cmd, err := executor.NewRunCommand(o.model, o.tools, state, hook)
	if err != nil {
		return api.RunResult{RunID: runID, Reason: api.TerminationFailed, Err: err, Trace: state.Trace()}
	}
	if runID != uuid.Nil {
		cmd = cmd.WithID(runID)
	}
	cmd = cmd.
		WithMaxAttempts(o.maxAttempts).
		WithMaxTokens(o.maxTokens).
		WithContextBudget(o.budget).
		WithEmptyPolicy(o.emptyPolicy).
		WithSampling(o.temperature, o.topP)

	return executor.NewLocal().WithLogger(o.logger.With(slog.String("owl", o.name))).Run(ctx, cmd)
}
