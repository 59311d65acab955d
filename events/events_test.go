package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEventSerialization(t *testing.T) {
	runID := uuid.New()
	answer := "3"

	tests := []struct {
		name  string
		typ   string
		event Event
	}{
		{"delim", "delim", Delim{RunID: runID, Delim: "start"}},
		{"generation start", "generation_start", GenerationStart{RunID: runID, Attempt: 1, Model: "gpt-4", Timestamp: Now()}},
		{"chunk", "chunk", Chunk{RunID: runID, Attempt: 1, Text: "Thought: ", Timestamp: Now()}},
		{"generation", "generation", Generation{RunID: runID, Attempt: 2, Text: "Action: tables", Tokens: 7, Timestamp: Now()}},
		{"action", "action", Action{RunID: runID, Attempt: 2, Name: "sql-query", Inputs: []string{"SELECT 1"}, Timestamp: Now()}},
		{"observation", "observation", Observation{RunID: runID, Attempt: 2, Text: "```[1]```", Timestamp: Now()}},
		{"result", "result", Result{RunID: runID, Timestamp: Now(), Result: api.RunResult{
			RunID:       runID,
			FinalAnswer: &answer,
			Reason:      api.TerminationAnswered,
			Attempts:    3,
			Trace:       prompt.Trace{Encoding: prompt.EncodingRaw, Text: "Question: q"},
		}}},
		{"error", "error", Error{RunID: runID, Attempt: 4, Err: errors.New("boom"), Timestamp: Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ToJSON(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, gjson.GetBytes(data, "type").String())
			assert.Equal(t, runID.String(), gjson.GetBytes(data, "run_id").String())

			decoded, err := FromJSON(data)
			require.NoError(t, err)
			assert.IsType(t, tt.event, decoded)

			again, err := ToJSON(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}

	t.Run("error message survives", func(t *testing.T) {
		data, err := ToJSON(Error{RunID: runID, Err: errors.New("database is locked")})
		require.NoError(t, err)
		assert.Equal(t, "database is locked", gjson.GetBytes(data, "error").String())

		ev, err := FromJSON(data)
		require.NoError(t, err)
		assert.EqualError(t, ev.(Error), "database is locked")
	})
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "invalid"},
		{"unknown type", `{"type":"nope","run_id":"` + uuid.NewString() + `"}`},
		{"missing run id", `{"type":"chunk","text":"x"}`},
		{"bad run id", `{"type":"chunk","run_id":"not-a-uuid","text":"x"}`},
		{"error without message", `{"type":"error","run_id":"` + uuid.NewString() + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	var c Chunk
	assert.Error(t, c.UnmarshalJSON([]byte(`{"type":"delim","run_id":"`+uuid.NewString()+`"}`)))

	_, err := ToJSON(nil)
	assert.Error(t, err)
}

type recordingHook struct {
	calls []string
	err   error
}

func (r *recordingHook) OnGenerationStart(context.Context, GenerationStart) {
	r.calls = append(r.calls, "generation_start")
}
func (r *recordingHook) OnChunk(context.Context, Chunk) { r.calls = append(r.calls, "chunk") }
func (r *recordingHook) OnGeneration(context.Context, Generation) {
	r.calls = append(r.calls, "generation")
}
func (r *recordingHook) OnAction(context.Context, Action) { r.calls = append(r.calls, "action") }
func (r *recordingHook) OnObservation(context.Context, Observation) {
	r.calls = append(r.calls, "observation")
}
func (r *recordingHook) OnResult(context.Context, Result) { r.calls = append(r.calls, "result") }
func (r *recordingHook) OnError(_ context.Context, err error) {
	r.calls = append(r.calls, "error")
	r.err = err
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	runID := uuid.New()

	for _, ev := range []Event{
		Delim{RunID: runID, Delim: "start"},
		GenerationStart{RunID: runID},
		Chunk{RunID: runID},
		Generation{RunID: runID},
		Action{RunID: runID},
		Observation{RunID: runID},
		Result{RunID: runID},
		Error{RunID: runID, Err: errors.New("boom")},
	} {
		Dispatch(ctx, hook, ev)
	}

	assert.Equal(t, []string{"generation_start", "chunk", "generation", "action", "observation", "result", "error"}, hook.calls)
	assert.EqualError(t, hook.err, "boom")
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	h1, h2 := &recordingHook{}, &recordingHook{}
	hook := Multi(h1, nil, h2)

	hook.OnChunk(ctx, Chunk{})
	hook.OnAction(ctx, Action{})
	hook.OnError(ctx, errors.New("x"))

	assert.Equal(t, []string{"chunk", "action", "error"}, h1.calls)
	assert.Equal(t, h1.calls, h2.calls)
}

func TestLoggingHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hook := LoggingHook(logger)
	ctx := context.Background()
	runID := uuid.New()

	require.NotPanics(t, func() {
		hook.OnGenerationStart(ctx, GenerationStart{RunID: runID, Attempt: 1, Model: "gpt-4"})
		hook.OnChunk(ctx, Chunk{RunID: runID, Text: "ignored"})
		hook.OnAction(ctx, Action{RunID: runID, Name: "tables"})
		hook.OnResult(ctx, Result{RunID: runID, Result: api.RunResult{Reason: api.TerminationAnswered}})
		hook.OnError(ctx, errors.New("boom"))
	})

	out := buf.String()
	assert.Contains(t, out, `"msg":"generation started"`)
	assert.Contains(t, out, `"name":"tables"`)
	assert.Contains(t, out, `"reason":"answered"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, runID.String())
	assert.NotContains(t, out, "ignored")
}
