package broker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/google/uuid"
)

// PublishingHook publishes every hook callback as an event on topic.
// Publish failures are logged and otherwise ignored.
func PublishingHook(topic Topic) events.Hook {
	return &publishingHook{topic: topic}
}

type publishingHook struct {
	topic Topic
}

func (p *publishingHook) publish(ctx context.Context, ev events.Event) {
	if err := p.topic.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "failed to publish run event", slogx.Error(err))
	}
}

func (p *publishingHook) OnGenerationStart(ctx context.Context, ev events.GenerationStart) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnChunk(ctx context.Context, ev events.Chunk) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnGeneration(ctx context.Context, ev events.Generation) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnAction(ctx context.Context, ev events.Action) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnObservation(ctx context.Context, ev events.Observation) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnResult(ctx context.Context, ev events.Result) {
	p.publish(ctx, ev)
}

func (p *publishingHook) OnError(ctx context.Context, err error) {
	var ev events.Error
	if !errors.As(err, &ev) {
		ev = events.Error{RunID: uuid.Nil, Err: err, Timestamp: events.Now()}
	}
	p.publish(ctx, ev)
}
