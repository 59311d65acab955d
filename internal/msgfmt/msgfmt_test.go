package msgfmt

import (
	"context"
	"strings"
	"testing"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolePrettyStreaming(t *testing.T) {
	ctx := context.Background()
	ch := make(chan events.Event)
	id := uuidx.New()
	answer := "There are 3 jobs."

	go func() {
		defer close(ch)
		ch <- events.GenerationStart{RunID: id, Attempt: 1, Model: "gpt-4"}
		ch <- events.Chunk{RunID: id, Attempt: 1, Text: "Thought: count them"}
		ch <- events.Generation{RunID: id, Attempt: 1, Text: "Thought: count them"}
		ch <- events.Action{RunID: id, Attempt: 1, Name: "sql-query", Inputs: []string{"select count(*) from jobs"}}
		ch <- events.Observation{RunID: id, Attempt: 1, Text: "```[{\"count(*)\":3}]```"}
		ch <- events.Delim{RunID: id, Delim: "end"}
		ch <- events.Error{RunID: id, Err: assert.AnError}
		ch <- events.Result{RunID: id, Result: api.RunResult{RunID: id, FinalAnswer: &answer, Reason: api.TerminationAnswered}}
	}()

	var buf strings.Builder
	require.NoError(t, ConsolePretty(ctx, &buf, ch))

	output := buf.String()
	assert.Contains(t, output, color.MagentaString("gpt-4"))
	assert.Contains(t, output, "Thought: count them\n")
	assert.Contains(t, output, color.YellowString("sql-query")+"(select count(*) from jobs)\n")
	assert.Contains(t, output, color.CyanString("Observation:")+" ```[{\"count(*)\":3}]```\n")
	assert.Contains(t, output, "Error: "+assert.AnError.Error())
	assert.Contains(t, output, color.GreenString("Final Answer:")+" There are 3 jobs.\n")
}

func TestConsole_NoAnswer(t *testing.T) {
	var buf strings.Builder
	c := NewConsole(&buf, "local-model")
	ctx := context.Background()

	c.OnGenerationStart(ctx, events.GenerationStart{Attempt: 3})
	c.OnChunk(ctx, events.Chunk{Text: "\n"})
	c.OnResult(ctx, events.Result{Result: api.RunResult{Reason: api.TerminationDefensiveWhitespace, Attempts: 3}})

	output := buf.String()
	assert.Contains(t, output, color.MagentaString("local-model"))
	assert.Contains(t, output, color.RedString("No answer: %s", api.TerminationDefensiveWhitespace)+" after 3 attempts")
}

func TestConsolePretty_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ConsolePretty(ctx, &strings.Builder{}, make(chan events.Event))
	assert.ErrorIs(t, err, context.Canceled)
}
