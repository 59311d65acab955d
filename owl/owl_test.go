package owl

import (
	"context"
	"testing"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/internal/executor"
	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/casualjim/sqlowl/provider/providertest"
	"github.com/casualjim/sqlowl/tool"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.NewRegistry(
		tool.Must(func() []string { return []string{"jobs", "users"} }, tool.Name("tables")),
	)
	require.NoError(t, err)
	return reg
}

func TestNew(t *testing.T) {
	t.Run("requires model and tools", func(t *testing.T) {
		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model is required")
		assert.Contains(t, err.Error(), "tools are required")
	})

	t.Run("rejects an invalid template", func(t *testing.T) {
		_, err := New(
			Model(providertest.Model("m", providertest.New())),
			Tools(testTools(t)),
			Template(prompt.Template{{Role: messages.RoleSystem, Content: "no question"}}),
		)
		require.ErrorIs(t, err, prompt.ErrNoQuestionTurn)
	})

	t.Run("defaults", func(t *testing.T) {
		o, err := New(Model(providertest.Model("m", providertest.New())), Tools(testTools(t)), Name("hoot"))
		require.NoError(t, err)
		assert.Equal(t, "hoot", o.Name())
		assert.Equal(t, "m", o.Model().Name())
		assert.Equal(t, prompt.EncodingRoleList, o.Encoding())
		assert.Equal(t, executor.DefaultMaxAttempts, o.maxAttempts)
	})

	t.Run("nil selector", func(t *testing.T) {
		_, err := New(Model(providertest.Model("m", providertest.New())), Tools(testTools(t)), Exemplars(nil, nil))
		require.Error(t, err)
	})
}

func TestOwl_Ask(t *testing.T) {
	prov := providertest.New("Action: tables", "Final Answer: jobs and users")
	o, err := New(
		Model(providertest.Model("m", prov)),
		Tools(testTools(t)),
		Encoding(prompt.EncodingChatML),
		MaxTokens(50),
	)
	require.NoError(t, err)

	id := uuid.New()
	res := o.AskWithID(context.Background(), id, "  What tables are there?  ", nil)
	require.NoError(t, res.Err)
	assert.Equal(t, id, res.RunID)
	assert.Equal(t, "jobs and users", res.Answer())
	assert.Equal(t, prompt.EncodingChatML, res.Trace.Encoding)
	assert.Contains(t, res.Trace.Text, "<|im_start|>user\nQuestion: What tables are there?\n<|im_end|>")

	reqs := prov.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 50, reqs[0].MaxTokens)
	assert.Equal(t, id, reqs[0].RunID)
}

func TestOwl_AskAttemptCap(t *testing.T) {
	prov := providertest.New("thinking")
	o, err := New(Model(providertest.Model("m", prov)), Tools(testTools(t)), MaxAttempts(3))
	require.NoError(t, err)

	res := o.Ask(context.Background(), "q", nil)
	require.ErrorIs(t, res.Err, api.ErrAttemptsExhausted)
	assert.Equal(t, 3, prov.Calls())
	assert.NotEqual(t, uuid.Nil, res.RunID)
}

func TestOwl_AskInjectsExemplar(t *testing.T) {
	pool := []exemplar.Exemplar{
		{Question: "How many games are there?", Turns: []messages.Turn{
			messages.User("Question: How many games are there?"),
			messages.Assistant("Thought: count games\nFinal Answer: 12 games"),
		}},
		{Question: "Which users are open to work?", Turns: []messages.Turn{
			messages.User("Question: Which users are open to work?"),
			messages.Assistant("Thought: filter users\nFinal Answer: three users"),
		}},
	}
	prov := providertest.New("Final Answer: two")
	o, err := New(
		Model(providertest.Model("m", prov)),
		Tools(testTools(t)),
		Exemplars(exemplar.NewLexical(), pool),
	)
	require.NoError(t, err)

	res := o.Ask(context.Background(), "Which users want work?", nil)
	require.NoError(t, res.Err)

	turns := res.Trace.Turns
	var contents []string
	for _, turn := range turns {
		contents = append(contents, turn.Content)
	}
	assert.Contains(t, contents, "Question: Which users are open to work?")
	assert.NotContains(t, contents, "Question: How many games are there?")
}
