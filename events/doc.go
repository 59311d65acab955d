// Package events describes what happens while a question is being answered.
//
// The agent loop reports progress through a Hook: when a generation starts,
// every generated increment, the complete generation of an attempt, parsed
// actions, observations, the final result and errors. The same occurrences
// exist as Event values so that they can travel over a broker and be
// replayed into a Hook on the other side:
//
//	data, _ := events.ToJSON(events.Chunk{RunID: id, Attempt: 1, Text: "Thought: "})
//	ev, _ := events.FromJSON(data)
//	events.Dispatch(ctx, hook, ev)
//
// Every event carries the run id and, except Delim, a timestamp. JSON
// encodings carry a "type" discriminator.
package events
