// Package messages defines the role-tagged turns that make up a prompt.
//
// A Turn is the smallest unit the prompt renderer, the generation drivers
// and the trace all agree on: a role (system, user or assistant) and the
// text content of that turn. Chat style backends receive turns as-is, text
// backends receive them serialized by one of the prompt encodings.
package messages
