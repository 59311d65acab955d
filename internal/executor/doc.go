// Package executor runs the reason-act-observe loop that answers one question.
//
// A run alternates between asking the model to continue the prompt and
// feeding the outcome of the requested action back as an observation:
//
//	cmd, err := executor.NewRunCommand(model, tools, state, hook)
//	if err != nil {
//	    return err
//	}
//	result := executor.NewLocal().Run(ctx, cmd)
//
// Each attempt streams increments from the model's provider. Generation stops
// at the first stop sequence, and a set of circuit breakers end the run early
// when the model loops on "Thought: ", produces only blank increments or
// exceeds the context budget. A run ends with a final answer, with one of
// those terminal conditions, or once MaxAttempts generations produced no
// answer. Every path returns an api.RunResult that carries the full trace.
package executor
