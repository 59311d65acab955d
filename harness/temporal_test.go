package harness

import (
	"context"
	"testing"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/internal/broker"
	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

func newWorkflowEnv(t *testing.T, acts *Activities) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(AnswerWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Answer, activity.RegisterOptions{Name: ActivityName})
	return env
}

func TestAnswerWorkflow(t *testing.T) {
	ctx := context.Background()
	b := broker.Local()
	env := newWorkflowEnv(t, NewActivities(b, Inline{}))

	req := Request{
		RunID:    uuidx.New(),
		Model:    "scripted:jobs",
		Question: "How many jobs exist?",
		Database: fixtureDB(t),
		Timeout:  time.Minute,
	}
	hook := &recordingHook{}
	sub, err := b.Topic(ctx, req.RunID.String()).Subscribe(ctx, hook)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	env.ExecuteWorkflow(WorkflowName, req)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res api.RunResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, req.RunID, res.RunID)
	assert.Equal(t, api.TerminationAnswered, res.Reason)
	assert.Equal(t, "There are 3 jobs.", res.Answer())

	assert.Eventually(t, func() bool {
		observations, results, _ := hook.snapshot()
		return len(observations) == 1 && len(results) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAnswerWorkflow_Timeout(t *testing.T) {
	env := newWorkflowEnv(t, NewActivities(nil, Inline{}))
	env.OnActivity(ActivityName, mock.Anything, mock.Anything).
		Return(api.RunResult{}, temporal.NewTimeoutError(enumspb.TIMEOUT_TYPE_START_TO_CLOSE, nil))

	req := Request{RunID: uuidx.New(), Model: "scripted:hang", Question: "q", Database: "jobs.db", Timeout: time.Second}
	env.ExecuteWorkflow(WorkflowName, req)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res api.RunResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, req.RunID, res.RunID)
	assert.Equal(t, api.TerminationTimeout, res.Reason)
	assert.ErrorIs(t, res.Err, api.ErrTimeout)
	assert.Nil(t, res.FinalAnswer)
}

func TestAnswerWorkflow_ActivityReportsItsOwnTimeout(t *testing.T) {
	env := newWorkflowEnv(t, NewActivities(nil, Inline{}))

	req := Request{
		RunID:    uuidx.New(),
		Model:    "scripted:stall",
		Question: "How many jobs exist?",
		Database: fixtureDB(t),
		Timeout:  2 * time.Second,
	}
	env.ExecuteWorkflow(WorkflowName, req)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res api.RunResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, api.TerminationTimeout, res.Reason)
	assert.Equal(t, 2, res.Attempts)
	require.False(t, res.Trace.IsZero())
	assert.Contains(t, res.Trace.Turns, messages.User("Observation: ```[{\"count(*)\":3}]```"))
}

func TestReportMargin(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, reportMargin(2*time.Second))
	assert.Equal(t, time.Second, reportMargin(5*time.Minute))
}

func TestTemporal_Execute(t *testing.T) {
	req := Request{RunID: uuidx.New(), Model: "scripted:direct", Question: "q", Database: "jobs.db"}
	answer := "42"

	run := &mocks.WorkflowRun{}
	run.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(1).(*api.RunResult) = api.RunResult{RunID: req.RunID, FinalAnswer: &answer, Reason: api.TerminationAnswered}
		}).
		Return(nil)
	run.On("GetID").Return("sqlowl-" + req.RunID.String()).Maybe()

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return opts.ID == "sqlowl-"+req.RunID.String() && opts.TaskQueue == "answers"
	}), WorkflowName, req).Return(run, nil)

	res, err := NewTemporal(c, broker.Local(), "answers").Execute(context.Background(), req, &recordingHook{})
	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer())
	c.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestNewTemporal_DefaultQueue(t *testing.T) {
	tmp := NewTemporal(&mocks.Client{}, nil, "")
	assert.Equal(t, "sqlowl-runs", tmp.taskQueue)
}
