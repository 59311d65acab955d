package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/casualjim/sqlowl/prompt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminationFor(t *testing.T) {
	tests := []struct {
		err  error
		want Termination
	}{
		{nil, TerminationAnswered},
		{ErrDefensiveLoop, TerminationDefensiveLoop},
		{fmt.Errorf("attempt 3: %w", ErrDefensiveWhitespace), TerminationDefensiveWhitespace},
		{ErrContextExhausted, TerminationContextExhausted},
		{ErrAttemptsExhausted, TerminationAttemptsExhausted},
		{ErrTimeout, TerminationTimeout},
		{errors.New("boom"), TerminationFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, TerminationFor(tt.err))
			if tt.err != nil && tt.want != TerminationFailed {
				assert.ErrorIs(t, tt.err, tt.want.Sentinel())
			}
		})
	}
	assert.Nil(t, TerminationFailed.Sentinel())
	assert.Nil(t, TerminationAnswered.Sentinel())
}

func TestRunResult_JSON(t *testing.T) {
	t.Run("answered", func(t *testing.T) {
		answer := "There are 3 jobs."
		res := RunResult{
			RunID:       uuid.New(),
			FinalAnswer: &answer,
			Trace:       prompt.Trace{Encoding: prompt.EncodingRaw, Text: "Question: q\nThought: done"},
			Reason:      TerminationAnswered,
			Attempts:    2,
			Tokens:      40,
		}
		data, err := json.Marshal(res)
		require.NoError(t, err)

		var got RunResult
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, res, got)
		assert.True(t, got.IsSuccess())
		assert.Equal(t, answer, got.Answer())
	})

	t.Run("terminal error keeps its kind", func(t *testing.T) {
		res := RunResult{
			RunID:  uuid.New(),
			Reason: TerminationDefensiveLoop,
			Err:    fmt.Errorf("attempt 4: %w", ErrDefensiveLoop),
		}
		data, err := json.Marshal(res)
		require.NoError(t, err)

		var got RunResult
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Nil(t, got.FinalAnswer)
		assert.Empty(t, got.Answer())
		require.Error(t, got.Err)
		assert.ErrorIs(t, got.Err, ErrDefensiveLoop)
		assert.Equal(t, "attempt 4: "+ErrDefensiveLoop.Error(), got.Err.Error())
		assert.False(t, got.IsSuccess())
		assert.True(t, got.IsError())
	})

	t.Run("invalid json", func(t *testing.T) {
		var got RunResult
		assert.Error(t, json.Unmarshal([]byte(`{"run_id": 12}`), &got))
	})
}
