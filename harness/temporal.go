package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/internal/broker"
	"github.com/casualjim/sqlowl/pkg/tprl"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	// WorkflowName is the registered name of AnswerWorkflow.
	WorkflowName = "sqlowl.answer"
	// ActivityName is the registered name of Activities.Answer.
	ActivityName = "sqlowl.answer.run"
)

// Temporal runs requests as Temporal workflows. With a broker the hook
// receives the run events published by the worker.
type Temporal struct {
	client    client.Client
	broker    broker.Broker
	taskQueue string
}

var _ Isolation = (*Temporal)(nil)

// NewTemporal creates the isolation. An empty task queue uses tprl.DefaultTaskQueue.
func NewTemporal(c client.Client, b broker.Broker, taskQueue string) *Temporal {
	if taskQueue == "" {
		taskQueue = tprl.DefaultTaskQueue
	}
	return &Temporal{client: c, broker: b, taskQueue: taskQueue}
}

func (t *Temporal) Execute(ctx context.Context, req Request, hook events.Hook) (api.RunResult, error) {
	if t.broker != nil && hook != nil {
		sub, err := t.broker.Topic(ctx, req.RunID.String()).Subscribe(ctx, hook)
		if err != nil {
			return api.RunResult{}, fmt.Errorf("failed to subscribe to run events: %w", err)
		}
		defer sub.Unsubscribe()
	}

	run, err := t.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:          "sqlowl-" + req.RunID.String(),
		TaskQueue:   t.taskQueue,
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	}, WorkflowName, req)
	if err != nil {
		return api.RunResult{}, fmt.Errorf("failed to start workflow: %w", err)
	}

	var res api.RunResult
	if err := run.Get(ctx, &res); err != nil {
		return api.RunResult{}, fmt.Errorf("workflow %s failed: %w", run.GetID(), err)
	}
	return res, nil
}

// AnswerWorkflow runs a request as a single activity attempt bounded by the
// request timeout.
func AnswerWorkflow(ctx workflow.Context, req Request) (api.RunResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("answering question", "run_id", req.RunID.String(), "model", req.Model)

	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: req.timeout(),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var res api.RunResult
	err := workflow.ExecuteActivity(actx, ActivityName, req).Get(ctx, &res)
	if err != nil {
		var timeoutErr *temporal.TimeoutError
		if errors.As(err, &timeoutErr) {
			logger.Warn("run timed out", "run_id", req.RunID.String(), "timeout", req.timeout())
			return api.RunResult{
				RunID:  req.RunID,
				Reason: api.TerminationTimeout,
				Err:    fmt.Errorf("%w: no result after %s: %w", api.ErrTimeout, req.timeout(), err),
			}, nil
		}
		return api.RunResult{}, err
	}
	return res, nil
}

// Activities hosts the activity side of AnswerWorkflow.
type Activities struct {
	broker broker.Broker
	inline Inline
}

// NewActivities creates the activities. With a broker every run publishes
// its events on the topic named after the run id.
func NewActivities(b broker.Broker, inline Inline) *Activities {
	return &Activities{broker: b, inline: inline}
}

func (a *Activities) Answer(ctx context.Context, req Request) (api.RunResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("running question", "run_id", req.RunID.String(), "model", req.Model)

	var hook events.Hook = events.NopHook{}
	if a.broker != nil {
		hook = broker.PublishingHook(a.broker.Topic(ctx, req.RunID.String()))
	}

	// Stop the loop before the start-to-close timeout so that it reports its
	// own timeout result, trace included.
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-reportMargin(req.timeout())))
		defer cancel()
	}
	return a.inline.Execute(ctx, req, hook)
}

// reportMargin is how much of a run's time limit is kept for reporting its result.
func reportMargin(timeout time.Duration) time.Duration {
	return min(timeout/10, time.Second)
}

// Register adds the workflow and its activity to a worker.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(AnswerWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.Answer, activity.RegisterOptions{Name: ActivityName})
}
