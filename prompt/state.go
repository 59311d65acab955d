package prompt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/casualjim/sqlowl/messages"
	"github.com/goccy/go-json"
)

// Variant is the shape of a State: a single text buffer or a list of turns.
type Variant uint8

const (
	VariantText Variant = iota
	VariantTurns
)

func (v Variant) String() string {
	if v == VariantTurns {
		return "turns"
	}
	return "text"
}

// State is the prompt of one run. It is created by Render, grows through
// AppendGeneration and AppendObservation, and is not safe for concurrent use.
type State struct {
	encoding Encoding
	text     string
	turns    []messages.Turn
}

// NewTextState wraps an already rendered raw or chat-markup prompt.
func NewTextState(enc Encoding, text string) (*State, error) {
	if enc.Variant() != VariantText {
		return nil, fmt.Errorf("encoding %q does not produce a text prompt", enc)
	}
	return &State{encoding: enc, text: text}, nil
}

// NewTurnsState wraps an already rendered role-list prompt.
func NewTurnsState(turns []messages.Turn) *State {
	return &State{encoding: EncodingRoleList, turns: messages.Clone(turns)}
}

func (s *State) Encoding() Encoding {
	return s.encoding
}

func (s *State) Variant() Variant {
	return s.encoding.Variant()
}

// Text returns the text buffer of a text state, or "" for a turns state.
func (s *State) Text() string {
	return s.text
}

// Turns returns a copy of the turns of a turns state, or nil for a text state.
func (s *State) Turns() []messages.Turn {
	return messages.Clone(s.turns)
}

// AppendGeneration records what the model generated in the current attempt.
func (s *State) AppendGeneration(generated string) {
	switch s.encoding {
	case EncodingRoleList:
		s.turns = append(s.turns, messages.Assistant(generated))
	case EncodingChatML:
		if trimmed := strings.TrimSpace(generated); !strings.HasSuffix(trimmed, imEnd) {
			generated = trimmed + "\n" + imEnd + "\n"
		}
		s.text = strings.TrimSpace(s.text + generated)
	default:
		s.text = strings.TrimRightFunc(s.text+generated, unicode.IsSpace)
	}
}

// AppendObservation records the observation of an action and reopens the
// assistant turn for the next attempt.
func (s *State) AppendObservation(observation string) {
	switch s.encoding {
	case EncodingRoleList:
		s.turns = append(s.turns, messages.User("Observation: "+observation))
	case EncodingChatML:
		s.text += "\n" + imStart + "user\nObservation: " + observation + "\n" + imEnd + "\n" + imStart + "assistant\n" + LeadIn
	default:
		s.text += "\nObservation: " + observation + "\n" + LeadIn
	}
}

// Trace snapshots the state.
func (s *State) Trace() Trace {
	return Trace{
		Encoding: s.encoding,
		Text:     s.text,
		Turns:    messages.Clone(s.turns),
	}
}

// Trace is an immutable record of everything generated and observed in a run.
type Trace struct {
	Encoding Encoding        `json:"encoding"`
	Text     string          `json:"text,omitempty"`
	Turns    []messages.Turn `json:"turns,omitempty"`
}

// IsZero reports whether the trace records nothing.
func (t Trace) IsZero() bool {
	return t.Text == "" && len(t.Turns) == 0
}

// Decode splits the trace back into turns.
func (t Trace) Decode() ([]messages.Turn, error) {
	if t.Encoding == EncodingRoleList {
		return messages.Clone(t.Turns), nil
	}
	return Decode(t.Encoding, t.Text)
}

// String renders the trace the way it would be written to a trace file.
func (t Trace) String() string {
	if t.Encoding != EncodingRoleList {
		return t.Text
	}
	b, err := json.MarshalIndent(t.Turns, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", t.Turns)
	}
	return string(b)
}
