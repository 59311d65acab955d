package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/uuidx"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	subscriptionBufferSize       = 50
)

var ErrHookRequired = errors.New("hook is required")

type localBroker struct {
	topics                *haxmap.Map[string, *topic]
	slowSubscriberTimeout time.Duration
}

func Local() *localBroker {
	return &localBroker{
		topics:                haxmap.New[string, *topic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

// WithSlowSubscriberTimeout configures how long Publish waits on a full subscriber
// before dropping it. It only affects topics created afterwards.
func (b *localBroker) WithSlowSubscriberTimeout(timeout time.Duration) *localBroker {
	b.slowSubscriberTimeout = timeout
	return b
}

func (b *localBroker) Topic(ctx context.Context, id string) Topic {
	topic, _ := b.topics.GetOrCompute(id, func() *topic {
		return &topic{
			ID:                    id,
			subscriptions:         haxmap.New[string, *subscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return topic
}

type topic struct {
	ID                    string
	subscriptions         *haxmap.Map[string, *subscription]
	slowSubscriberTimeout time.Duration
}

func (t *topic) Publish(ctx context.Context, event events.Event) error {
	t.subscriptions.ForEach(func(id string, sub *subscription) bool {
		if sub == nil {
			return true
		}
		switch sub.deliver(ctx, event, t.slowSubscriberTimeout) {
		case deliveryCancelled:
			return false
		case deliveryDrop:
			sub.Unsubscribe()
		}
		return true
	})
	return ctx.Err()
}

func (t *topic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, ErrHookRequired
	}
	return t.newSubscription(ctx, hook), nil
}

func (t *topic) newSubscription(ctx context.Context, hook events.Hook) *subscription {
	id := uuidx.New().String()
	sub := &subscription{
		id:      id,
		ctx:     ctx,
		channel: make(chan events.Event, subscriptionBufferSize),
		onClose: func() { t.subscriptions.Del(id) },
	}
	t.subscriptions.Set(id, sub)
	go forwardToHook(ctx, sub.channel, hook)
	return sub
}

type subscription struct {
	id      string
	ctx     context.Context
	channel chan events.Event
	onClose func()

	mu     sync.RWMutex
	closed bool
}

type delivery int

const (
	deliveryOK delivery = iota
	deliveryClosed
	deliveryDrop
	deliveryCancelled
)

func (s *subscription) deliver(ctx context.Context, event events.Event, timeout time.Duration) delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return deliveryClosed
	}
	if s.ctx.Err() != nil {
		return deliveryDrop
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return deliveryCancelled
	case <-s.ctx.Done():
		return deliveryDrop
	case s.channel <- event:
		return deliveryOK
	case <-timer.C:
		return deliveryDrop
	}
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	close(s.channel)
}

func forwardToHook(ctx context.Context, ch <-chan events.Event, hook events.Hook) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			events.Dispatch(ctx, hook, event)
		case <-ctx.Done():
			return
		}
	}
}
