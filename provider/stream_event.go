package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/sqlowl/messages"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	delimJSON  = []byte(`{"type":"delim"}`)
	chunkJSON  = []byte(`{"type":"chunk"}`)
	finishJSON = []byte(`{"type":"finish"}`)
	errorJSON  = []byte(`{"type":"error"}`)
)

type StreamEvent interface {
	streamEvent()
}

// FinishReason explains why a backend stopped generating.
type FinishReason string

const (
	// FinishStop means the backend hit a stop sequence or ended naturally.
	FinishStop FinishReason = "stop"
	// FinishLength means the token ceiling was reached.
	FinishLength FinishReason = "length"
	// FinishRole means the backend started a turn for a role other than the assistant.
	FinishRole FinishReason = "role"
)

type Delim struct {
	RunID uuid.UUID `json:"run_id"`
	Delim string    `json:"delim"`
}

func (Delim) streamEvent() {}

// Chunk is one increment of generated text.
type Chunk struct {
	RunID     uuid.UUID       `json:"run_id"`
	Role      messages.Role   `json:"role,omitempty"`
	Text      string          `json:"text"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Chunk) streamEvent() {}

type Finish struct {
	RunID     uuid.UUID       `json:"run_id"`
	Reason    FinishReason    `json:"reason"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Finish) streamEvent() {}

type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, timestamp: %s, error: %v", e.RunID, e.Timestamp, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Now returns the current time as an event timestamp.
func Now() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}

// MarshalJSON implements custom JSON marshaling for Delim
func (d Delim) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(delimJSON, "run_id", d.RunID.String())
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "delim", d.Delim)
}

// UnmarshalJSON implements custom JSON unmarshaling for Delim
func (d *Delim) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "delim"); err != nil {
		return err
	}
	if err := readRunID(data, &d.RunID); err != nil {
		return err
	}

	delim := gjson.GetBytes(data, "delim")
	if !delim.Exists() {
		return fmt.Errorf("missing required field 'delim'")
	}
	d.Delim = delim.String()
	return nil
}

// MarshalJSON implements custom JSON marshaling for Chunk
func (c Chunk) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(chunkJSON, "run_id", c.RunID.String())
	if err != nil {
		return nil, err
	}

	if c.Role != "" {
		result, err = sjson.SetBytes(result, "role", string(c.Role))
		if err != nil {
			return nil, err
		}
	}

	result, err = sjson.SetBytes(result, "text", c.Text)
	if err != nil {
		return nil, err
	}

	return setTimestamp(result, c.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Chunk
func (c *Chunk) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "chunk"); err != nil {
		return err
	}
	if err := readRunID(data, &c.RunID); err != nil {
		return err
	}

	if role := gjson.GetBytes(data, "role"); role.Exists() {
		c.Role = messages.Role(role.String())
	}

	text := gjson.GetBytes(data, "text")
	if !text.Exists() {
		return fmt.Errorf("missing required field 'text'")
	}
	c.Text = text.String()

	return readTimestamp(data, &c.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for Finish
func (f Finish) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(finishJSON, "run_id", f.RunID.String())
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "reason", string(f.Reason))
	if err != nil {
		return nil, err
	}

	return setTimestamp(result, f.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Finish
func (f *Finish) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "finish"); err != nil {
		return err
	}
	if err := readRunID(data, &f.RunID); err != nil {
		return err
	}

	reason := gjson.GetBytes(data, "reason")
	if !reason.Exists() {
		return fmt.Errorf("missing required field 'reason'")
	}
	f.Reason = FinishReason(reason.String())

	return readTimestamp(data, &f.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(errorJSON, "run_id", e.RunID.String())
	if err != nil {
		return nil, err
	}

	if e.Err != nil {
		result, err = sjson.SetBytes(result, "error", e.Err.Error())
		if err != nil {
			return nil, err
		}
	}

	return setTimestamp(result, e.Timestamp)
}

// UnmarshalJSON implements custom JSON unmarshaling for Error
func (e *Error) UnmarshalJSON(data []byte) error {
	if err := checkType(data, "error"); err != nil {
		return err
	}
	if err := readRunID(data, &e.RunID); err != nil {
		return err
	}

	errMsg := gjson.GetBytes(data, "error")
	if !errMsg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Err = errors.New(errMsg.String())

	return readTimestamp(data, &e.Timestamp)
}

// FromJSON decodes any stream event using its "type" discriminator.
func FromJSON(data []byte) (StreamEvent, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	switch typ := gjson.GetBytes(data, "type").String(); typ {
	case "delim":
		var d Delim
		err := d.UnmarshalJSON(data)
		return d, err
	case "chunk":
		var c Chunk
		err := c.UnmarshalJSON(data)
		return c, err
	case "finish":
		var f Finish
		err := f.UnmarshalJSON(data)
		return f, err
	case "error":
		var e Error
		err := e.UnmarshalJSON(data)
		return e, err
	default:
		return nil, fmt.Errorf("unknown stream event type %q", typ)
	}
}

func checkType(data []byte, want string) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != want {
		return fmt.Errorf("missing or invalid type, expected '%s'", want)
	}
	return nil
}

func readRunID(data []byte, dst *uuid.UUID) error {
	runID := gjson.GetBytes(data, "run_id")
	if !runID.Exists() {
		return fmt.Errorf("missing required field 'run_id'")
	}
	if err := dst.UnmarshalText([]byte(runID.String())); err != nil {
		return fmt.Errorf("invalid run_id: %w", err)
	}
	return nil
}

func setTimestamp(result []byte, ts strfmt.DateTime) ([]byte, error) {
	if time.Time(ts).IsZero() {
		return result, nil
	}
	return sjson.SetBytes(result, "timestamp", ts.String())
}

func readTimestamp(data []byte, dst *strfmt.DateTime) error {
	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		if err := dst.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	return nil
}
