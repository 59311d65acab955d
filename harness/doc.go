// Package harness runs single questions against a model with a hard timeout.
//
// A Request names the model, the database and the prompt settings of one run.
// A Runner executes requests through an Isolation strategy and always returns
// an api.RunResult, even when the run never reports back:
//
//   - Inline runs the agent loop in a goroutine of the current process.
//   - Subprocess re-executes the CLI as "sqlowl worker"; the worker streams
//     run events as JSON lines on stdout and the process is killed when the
//     timeout expires.
//   - Temporal runs the request as a single-attempt activity with the
//     timeout as its start-to-close timeout. Run events travel over a broker
//     topic named after the run id.
//
// RunAll executes many requests concurrently with a bounded number of workers.
package harness
