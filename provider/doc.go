// Package provider abstracts a text generation backend behind one streaming
// contract.
//
// A Provider receives the prompt state of a run, the stop sequences and a
// token ceiling, and returns a channel of StreamEvent values that is closed
// when generation ends:
//
//  1. Delim: stream boundaries ("start" and "end")
//  2. Chunk: one increment of generated text, tagged with the speaking role
//  3. Finish: why the backend stopped (stop sequence, token ceiling, role change)
//  4. Error: a backend failure
//
// Backends are interchangeable: a chat completion API consumes the turns of a
// role-list prompt, a text completion endpoint consumes the text of a raw or
// chat-markup prompt. The agent loop never knows which one it talks to.
//
// Every event carries the run id and a timestamp, and marshals to JSON with a
// "type" discriminator so events can cross process boundaries.
package provider
