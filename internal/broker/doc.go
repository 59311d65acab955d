// Package broker distributes run events between the agent loop and its
// observers. A topic is usually named after a run so that a console, a log
// file or a remote process can follow one question being answered.
//
// Two implementations exist:
//
//   - Local keeps subscriptions in memory and drops subscribers that stay
//     blocked for longer than the slow subscriber timeout.
//   - NATS publishes events as JSON on a subject named after the topic.
//
// PublishingHook turns a topic into an events.Hook so the agent loop can
// publish without knowing about brokers:
//
//	topic := broker.Local().Topic(ctx, runID.String())
//	sub, _ := topic.Subscribe(ctx, consoleHook)
//	defer sub.Unsubscribe()
//	cmd.Hook = broker.PublishingHook(topic)
package broker
