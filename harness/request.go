package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a run when a request does not set one.
const DefaultTimeout = 5 * time.Minute

// Request describes one run. It crosses process boundaries as JSON.
type Request struct {
	RunID    uuid.UUID `json:"run_id"`
	Model    string    `json:"model"`
	Question string    `json:"question"`

	// Encoding defaults to raw for local models and to the role list otherwise.
	Encoding  prompt.Encoding     `json:"encoding,omitempty"`
	Template  prompt.Template     `json:"template,omitempty"`
	Exemplars []exemplar.Exemplar `json:"exemplars,omitempty"`
	Inject    bool                `json:"inject,omitempty"`

	Database   string   `json:"database"`
	Dictionary string   `json:"dictionary,omitempty"`
	Actions    []string `json:"actions,omitempty"`

	MaxAttempts int      `json:"max_attempts,omitempty"`
	EmptyPolicy string   `json:"empty_policy,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate reports every missing or malformed field.
func (r Request) Validate() error {
	var err error
	if strings.TrimSpace(r.Question) == "" {
		err = errors.Join(err, errors.New("question is required"))
	}
	if strings.TrimSpace(r.Model) == "" {
		err = errors.Join(err, errors.New("model is required"))
	}
	if strings.TrimSpace(r.Database) == "" {
		err = errors.Join(err, errors.New("database is required"))
	}
	if r.Encoding != "" {
		if _, perr := prompt.ParseEncoding(string(r.Encoding)); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	if len(r.Template) > 0 {
		if terr := r.Template.Validate(); terr != nil {
			err = errors.Join(err, terr)
		}
	}
	if r.Inject && len(r.Exemplars) == 0 {
		err = errors.Join(err, errors.New("inject requires exemplars"))
	}
	if r.MaxAttempts < 0 {
		err = errors.Join(err, fmt.Errorf("max attempts cannot be negative, got %d", r.MaxAttempts))
	}
	return err
}

// encoding returns the prompt encoding for the request's model.
func (r Request) encoding() prompt.Encoding {
	if r.Encoding != "" {
		return r.Encoding
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Model)), "local:") {
		return prompt.EncodingRaw
	}
	return prompt.EncodingRoleList
}

func (r Request) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}
