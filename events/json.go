package events

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	typeDelim           = "delim"
	typeGenerationStart = "generation_start"
	typeChunk           = "chunk"
	typeGeneration      = "generation"
	typeAction          = "action"
	typeObservation     = "observation"
	typeResult          = "result"
	typeError           = "error"
)

func marshalTyped(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(data, "type", typ)
}

func unmarshalTyped(data []byte, typ string, v any) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != typ {
		return fmt.Errorf("missing or invalid type, expected '%s'", typ)
	}
	if !gjson.GetBytes(data, "run_id").Exists() {
		return errors.New("missing required field 'run_id'")
	}
	return json.Unmarshal(data, v)
}

type delimJSON Delim

func (d Delim) MarshalJSON() ([]byte, error) { return marshalTyped(typeDelim, delimJSON(d)) }

func (d *Delim) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeDelim, (*delimJSON)(d))
}

type generationStartJSON GenerationStart

func (g GenerationStart) MarshalJSON() ([]byte, error) {
	return marshalTyped(typeGenerationStart, generationStartJSON(g))
}

func (g *GenerationStart) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeGenerationStart, (*generationStartJSON)(g))
}

type chunkJSON Chunk

func (c Chunk) MarshalJSON() ([]byte, error) { return marshalTyped(typeChunk, chunkJSON(c)) }

func (c *Chunk) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeChunk, (*chunkJSON)(c))
}

type generationJSON Generation

func (g Generation) MarshalJSON() ([]byte, error) {
	return marshalTyped(typeGeneration, generationJSON(g))
}

func (g *Generation) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeGeneration, (*generationJSON)(g))
}

type actionJSON Action

func (a Action) MarshalJSON() ([]byte, error) { return marshalTyped(typeAction, actionJSON(a)) }

func (a *Action) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeAction, (*actionJSON)(a))
}

type observationJSON Observation

func (o Observation) MarshalJSON() ([]byte, error) {
	return marshalTyped(typeObservation, observationJSON(o))
}

func (o *Observation) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeObservation, (*observationJSON)(o))
}

type resultJSON Result

func (r Result) MarshalJSON() ([]byte, error) { return marshalTyped(typeResult, resultJSON(r)) }

func (r *Result) UnmarshalJSON(data []byte) error {
	return unmarshalTyped(data, typeResult, (*resultJSON)(r))
}

type errorJSON Error

func (e Error) MarshalJSON() ([]byte, error) {
	data, err := marshalTyped(typeError, errorJSON(e))
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(data, "error", e.Error())
}

func (e *Error) UnmarshalJSON(data []byte) error {
	if err := unmarshalTyped(data, typeError, (*errorJSON)(e)); err != nil {
		return err
	}
	msg := gjson.GetBytes(data, "error")
	if !msg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Err = errors.New(msg.String())
	return nil
}

// ToJSON encodes any event with its type discriminator.
func ToJSON(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("nil event")
	}
	return json.Marshal(ev)
}

// FromJSON decodes an event produced by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	switch typ := gjson.GetBytes(data, "type").String(); typ {
	case typeDelim:
		return decode[Delim](data)
	case typeGenerationStart:
		return decode[GenerationStart](data)
	case typeChunk:
		return decode[Chunk](data)
	case typeGeneration:
		return decode[Generation](data)
	case typeAction:
		return decode[Action](data)
	case typeObservation:
		return decode[Observation](data)
	case typeResult:
		return decode[Result](data)
	case typeError:
		return decode[Error](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
}

func decode[T Event, PT interface {
	*T
	json.Unmarshaler
}](data []byte) (Event, error) {
	var v T
	if err := PT(&v).UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}
