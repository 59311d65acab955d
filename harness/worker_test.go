package harness

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWorker_RoundTrip(t *testing.T) {
	req := Request{
		RunID:    uuidx.New(),
		Model:    "scripted:jobs",
		Question: "How many jobs exist?",
		Database: fixtureDB(t),
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ServeWorker(context.Background(), bytes.NewReader(payload), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	last, err := events.FromJSON([]byte(lines[len(lines)-1]))
	require.NoError(t, err)
	require.IsType(t, events.Result{}, last)

	hook := &recordingHook{}
	res, found, err := readEvents(context.Background(), &out, hook)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, req.RunID, res.RunID)
	assert.Equal(t, "There are 3 jobs.", res.Answer())

	observations, results, _ := hook.snapshot()
	assert.Equal(t, []string{"```[{\"count(*)\":3}]```"}, observations)
	assert.Len(t, results, 1)
}

func TestServeWorker_FailedRequest(t *testing.T) {
	req := Request{RunID: uuidx.New(), Model: "scripted:jobs"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ServeWorker(context.Background(), bytes.NewReader(payload), &out))

	hook := &recordingHook{}
	res, found, err := readEvents(context.Background(), &out, hook)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, api.TerminationFailed, res.Reason)
	assert.ErrorContains(t, res.Err, "question is required")

	_, _, errs := hook.snapshot()
	assert.Len(t, errs, 1)
}

func TestServeWorker_BadInput(t *testing.T) {
	err := ServeWorker(context.Background(), strings.NewReader("not json"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to read request")
}

func TestReadEvents_NoResult(t *testing.T) {
	_, found, err := readEvents(context.Background(), strings.NewReader(""), events.NopHook{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadEvents_Malformed(t *testing.T) {
	_, found, err := readEvents(context.Background(), strings.NewReader("{\"type\":\n"), events.NopHook{})
	assert.Error(t, err)
	assert.False(t, found)
}
