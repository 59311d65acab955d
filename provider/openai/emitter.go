package openai

import (
	"context"

	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/provider"
	"github.com/google/uuid"
)

// emitter writes events for one generation and enforces the increment ceiling.
type emitter struct {
	ctx       context.Context
	runID     uuid.UUID
	events    chan<- provider.StreamEvent
	maxTokens int
	count     int
	finished  bool
}

func (e *emitter) send(ev provider.StreamEvent) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) start() bool {
	return e.send(provider.Delim{RunID: e.runID, Delim: "start"})
}

// chunk emits one increment. It returns false when generation must stop.
func (e *emitter) chunk(role messages.Role, text string) bool {
	if e.maxTokens > 0 && e.count >= e.maxTokens {
		e.finish(provider.FinishLength)
		return false
	}
	e.count++
	return e.send(provider.Chunk{
		RunID:     e.runID,
		Role:      role,
		Text:      text,
		Timestamp: provider.Now(),
	})
}

func (e *emitter) finish(reason provider.FinishReason) {
	if e.finished {
		return
	}
	e.finished = true
	e.send(provider.Finish{RunID: e.runID, Reason: reason, Timestamp: provider.Now()})
}

func (e *emitter) fail(err error) {
	if e.ctx.Err() != nil {
		return
	}
	e.send(provider.Error{RunID: e.runID, Err: err, Timestamp: provider.Now()})
}

func (e *emitter) end() {
	if e.ctx.Err() != nil {
		return
	}
	e.finish(provider.FinishStop)
	e.send(provider.Delim{RunID: e.runID, Delim: "end"})
}

func finishReason(reason string) provider.FinishReason {
	if reason == string(provider.FinishLength) {
		return provider.FinishLength
	}
	return provider.FinishStop
}
