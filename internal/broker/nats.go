package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	client                *nats.Conn
	topics                *haxmap.Map[string, *natsTopic]
	slowSubscriberTimeout time.Duration
}

// NATS publishes events on subjects named after topics.
func NATS(client *nats.Conn) *natsBroker {
	return &natsBroker{
		client:                client,
		topics:                haxmap.New[string, *natsTopic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject:               id,
			client:                b.client,
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return top
}

type natsTopic struct {
	client                *nats.Conn
	subject               string
	slowSubscriberTimeout time.Duration
}

func (t *natsTopic) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eb, err := events.ToJSON(event)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, eb)
}

func (t *natsTopic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, ErrHookRequired
	}

	id := uuidx.New().String()
	ch := make(chan events.Event, subscriptionBufferSize)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		event, err := events.FromJSON(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal event", slogx.Error(err), slog.String("subject", msg.Subject))
			return
		}

		timer := time.NewTimer(t.slowSubscriberTimeout)
		defer timer.Stop()
		select {
		case ch <- event:
		case <-ctx.Done():
			return
		case <-timer.C:
			slog.Warn("dropping event for slow subscriber", slog.String("subscription", id))
			return
		}

		if msg.Reply != "" {
			if nerr := msg.Ack(); nerr != nil {
				slog.Error("failed to ack message", slogx.Error(nerr))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(ch) })

	go forwardToHook(ctx, ch, hook)
	return &natsSubscription{id: id, sub: nsub}, nil
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
