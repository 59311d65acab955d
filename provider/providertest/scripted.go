// Package providertest provides a scripted generation backend for tests.
package providertest

import (
	"context"
	"regexp"
	"sync"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/provider"
)

// Split controls how a scripted generation is cut into increments.
type Split int

const (
	// SplitWords emits every word together with the whitespace before it.
	SplitWords Split = iota
	// SplitChars emits one rune per increment.
	SplitChars
	// SplitWhole emits the entire generation as one increment.
	SplitWhole
)

var wordRe = regexp.MustCompile(`\s*\S+|\s+$`)

// Script is one scripted generation.
type Script struct {
	// Text is split according to the Scripted split mode when Increments is empty.
	Text string
	// Increments are emitted verbatim when set.
	Increments []string
	// Role is attached to every chunk, defaulting to assistant.
	Role messages.Role
	// Err makes Generate fail before streaming anything.
	Err error
	// StreamErr is emitted as an error event after the increments.
	StreamErr error
}

// Scripted replays scripts in order, one per Generate call. Once the scripts run
// out the last one is repeated. Every request is recorded.
type Scripted struct {
	mu       sync.Mutex
	scripts  []Script
	split    Split
	requests []provider.GenerateParams
}

var _ provider.Provider = (*Scripted)(nil)

// New scripts one generation per text, split into word increments.
func New(texts ...string) *Scripted {
	scripts := make([]Script, len(texts))
	for i, text := range texts {
		scripts[i] = Script{Text: text}
	}
	return &Scripted{scripts: scripts}
}

// FromScripts builds a Scripted from explicit scripts.
func FromScripts(scripts ...Script) *Scripted {
	return &Scripted{scripts: scripts}
}

// WithSplit changes how texts are cut into increments.
func (s *Scripted) WithSplit(split Split) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.split = split
	return s
}

// Requests returns the parameters of every Generate call so far.
func (s *Scripted) Requests() []provider.GenerateParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.GenerateParams, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of Generate calls so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Scripted) next(params provider.GenerateParams) (Script, Split) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.requests)
	s.requests = append(s.requests, params)
	if len(s.scripts) == 0 {
		return Script{}, s.split
	}
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	return s.scripts[idx], s.split
}

func (s *Scripted) Generate(ctx context.Context, params provider.GenerateParams) (<-chan provider.StreamEvent, error) {
	script, split := s.next(params)
	if script.Err != nil {
		return nil, script.Err
	}

	increments := script.Increments
	if len(increments) == 0 {
		increments = splitText(script.Text, split)
	}
	role := script.Role
	if role == "" {
		role = messages.RoleAssistant
	}

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)
		send := func(ev provider.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(provider.Delim{RunID: params.RunID, Delim: "start"}) {
			return
		}
		reason := provider.FinishStop
		for i, inc := range increments {
			if params.MaxTokens > 0 && i >= params.MaxTokens {
				reason = provider.FinishLength
				break
			}
			if !send(provider.Chunk{RunID: params.RunID, Role: role, Text: inc, Timestamp: provider.Now()}) {
				return
			}
		}
		if script.StreamErr != nil {
			send(provider.Error{RunID: params.RunID, Err: script.StreamErr, Timestamp: provider.Now()})
			return
		}
		if !send(provider.Finish{RunID: params.RunID, Reason: reason, Timestamp: provider.Now()}) {
			return
		}
		send(provider.Delim{RunID: params.RunID, Delim: "end"})
	}()
	return events, nil
}

func splitText(text string, split Split) []string {
	if text == "" {
		return nil
	}
	switch split {
	case SplitChars:
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	case SplitWhole:
		return []string{text}
	default:
		return wordRe.FindAllString(text, -1)
	}
}

// Model wraps a provider into an api.Model.
func Model(name string, prov provider.Provider) api.Model {
	return &model{name: name, prov: prov}
}

type model struct {
	name string
	prov provider.Provider
}

func (m *model) Name() string                { return m.name }
func (m *model) Provider() provider.Provider { return m.prov }
