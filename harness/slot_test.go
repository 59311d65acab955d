package harness

import (
	"context"
	"testing"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot(t *testing.T) {
	slot := NewSlot()
	_, ok := slot.Result()
	assert.False(t, ok)

	first := api.RunResult{RunID: uuidx.New(), Reason: api.TerminationAnswered}
	second := api.RunResult{RunID: uuidx.New(), Reason: api.TerminationTimeout}
	assert.True(t, slot.Fill(first))
	assert.False(t, slot.Fill(second))

	res, ok := slot.Result()
	require.True(t, ok)
	assert.Equal(t, first.RunID, res.RunID)

	select {
	case <-slot.Done():
	default:
		t.Fatal("slot should be done")
	}

	res, err := slot.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.TerminationAnswered, res.Reason)
}

func TestSlot_WaitCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewSlot().Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
