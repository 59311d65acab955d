package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/casualjim/sqlowl/messages"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvent_JSON(t *testing.T) {
	runID := uuid.MustParse("0190f1d2-3c4b-7a5e-8f6d-112233445566")
	ts := strfmt.DateTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		event StreamEvent
		json  string
	}{
		{
			name:  "delim",
			event: Delim{RunID: runID, Delim: "start"},
			json:  `{"type":"delim","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566","delim":"start"}`,
		},
		{
			name:  "chunk",
			event: Chunk{RunID: runID, Role: messages.RoleAssistant, Text: "Action: tables\n", Timestamp: ts},
			json:  `{"type":"chunk","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566","role":"assistant","text":"Action: tables\n","timestamp":"2024-05-01T12:00:00.000Z"}`,
		},
		{
			name:  "chunk without role",
			event: Chunk{RunID: runID, Text: ""},
			json:  `{"type":"chunk","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566","text":""}`,
		},
		{
			name:  "finish",
			event: Finish{RunID: runID, Reason: FinishLength, Timestamp: ts},
			json:  `{"type":"finish","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566","reason":"length","timestamp":"2024-05-01T12:00:00.000Z"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(b))

			decoded, err := FromJSON(b)
			require.NoError(t, err)
			assert.IsType(t, tt.event, decoded)

			again, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(again))
		})
	}
}

func TestError_JSON(t *testing.T) {
	runID := uuid.New()
	event := Error{RunID: runID, Err: errors.New("rate limited")}

	b, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := FromJSON(b)
	require.NoError(t, err)
	got, ok := decoded.(Error)
	require.True(t, ok)
	assert.Equal(t, runID, got.RunID)
	assert.EqualError(t, got.Err, "rate limited")
	assert.ErrorIs(t, event, event.Err)
}

func TestFromJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"unknown type":   `{"type":"response"}`,
		"missing run id": `{"type":"delim","delim":"start"}`,
		"bad run id":     `{"type":"chunk","run_id":"nope","text":"x"}`,
		"missing text":   `{"type":"chunk","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566"}`,
		"missing reason": `{"type":"finish","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566"}`,
		"missing error":  `{"type":"error","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566"}`,
		"bad timestamp":  `{"type":"finish","run_id":"0190f1d2-3c4b-7a5e-8f6d-112233445566","reason":"stop","timestamp":"yesterday"}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromJSON([]byte(data))
			assert.Error(t, err)
		})
	}

	t.Run("type mismatch", func(t *testing.T) {
		var d Delim
		assert.Error(t, d.UnmarshalJSON([]byte(`{"type":"chunk"}`)))
	})
}
