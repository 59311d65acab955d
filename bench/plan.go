package bench

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
)

// Seconds is a duration written as a number of seconds.
type Seconds float64

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Keyword is an expected fragment of an answer. Plans may write numbers
// without quotes.
type Keyword string

func (k *Keyword) UnmarshalYAML(b []byte) error {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*k = ""
		return nil
	}
	*k = Keyword(fmt.Sprint(v))
	return nil
}

func (Keyword) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "number"}},
	}
}

// QA is one benchmark question with its reference answer.
type QA struct {
	Question        string    `json:"question" yaml:"question"`
	CorrectAnswer   string    `json:"correct_answer" yaml:"correct_answer"`
	CorrectKeywords []Keyword `json:"correct_keywords,omitempty" yaml:"correct_keywords,omitempty"`
}

// ModelPlan names a model and the prompt shape it expects.
type ModelPlan struct {
	Path       string  `json:"path" yaml:"path" jsonschema:"description=model spec such as openai:gpt-4 or local:mistral@http://localhost:8080/v1/"`
	PromptType string  `json:"prompt_type" yaml:"prompt_type" jsonschema:"enum=raw,enum=chatml,enum=openai,enum=rolelist"`
	Cooldown   Seconds `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Timeout    Seconds `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Encoding maps the prompt type to a prompt encoding. "openai" is the role list.
func (m ModelPlan) Encoding() (prompt.Encoding, error) {
	if strings.EqualFold(strings.TrimSpace(m.PromptType), "openai") {
		return prompt.EncodingRoleList, nil
	}
	return prompt.ParseEncoding(m.PromptType)
}

// Plan describes an experiment.
type Plan struct {
	ExperimentName string  `json:"experiment_name" yaml:"experiment_name"`
	NTries         int     `json:"n_tries,omitempty" yaml:"n_tries,omitempty"`
	Cooldown       Seconds `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Timeout        Seconds `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Temperature *float64 `json:"temp,omitempty" yaml:"temp,omitempty"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`

	PromptData             prompt.Template     `json:"prompt_data,omitempty" yaml:"prompt_data,omitempty"`
	AvailableInjectPrompts []exemplar.Exemplar `json:"available_inject_prompts,omitempty" yaml:"available_inject_prompts,omitempty"`
	Inject                 bool                `json:"inject,omitempty" yaml:"inject,omitempty"`

	QA     []QA        `json:"qa" yaml:"qa"`
	Models []ModelPlan `json:"models" yaml:"models"`
}

// LoadPlan reads and validates a YAML plan.
func LoadPlan(path string) (*Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	plan, err := ParsePlan(b)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return plan, nil
}

// ParsePlan decodes and validates a YAML plan. NTries defaults to one.
func ParsePlan(b []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(b, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if plan.NTries == 0 {
		plan.NTries = 1
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *Plan) Validate() error {
	var err error
	if strings.TrimSpace(p.ExperimentName) == "" {
		err = errors.Join(err, errors.New("experiment_name is required"))
	}
	if p.NTries < 1 {
		err = errors.Join(err, fmt.Errorf("n_tries must be positive, got %d", p.NTries))
	}
	if len(p.QA) == 0 {
		err = errors.Join(err, errors.New("qa needs at least one question"))
	}
	for i, qa := range p.QA {
		if strings.TrimSpace(qa.Question) == "" {
			err = errors.Join(err, fmt.Errorf("qa[%d] has no question", i))
		}
	}
	if len(p.Models) == 0 {
		err = errors.Join(err, errors.New("models needs at least one model"))
	}
	for i, m := range p.Models {
		if strings.TrimSpace(m.Path) == "" {
			err = errors.Join(err, fmt.Errorf("models[%d] has no path", i))
		}
		if _, perr := m.Encoding(); perr != nil {
			err = errors.Join(err, fmt.Errorf("models[%d]: %w", i, perr))
		}
	}
	if len(p.PromptData) > 0 {
		if terr := p.PromptData.Validate(); terr != nil {
			err = errors.Join(err, fmt.Errorf("prompt_data: %w", terr))
		}
	}
	if p.Inject && len(p.AvailableInjectPrompts) == 0 {
		err = errors.Join(err, errors.New("inject requires available_inject_prompts"))
	}
	return err
}

// timeout returns the model timeout, falling back to the plan timeout.
func (p *Plan) timeout(m ModelPlan) time.Duration {
	if m.Timeout > 0 {
		return m.Timeout.Duration()
	}
	return p.Timeout.Duration()
}

func (p *Plan) cooldown(m ModelPlan) time.Duration {
	if m.Cooldown > 0 {
		return m.Cooldown.Duration()
	}
	return p.Cooldown.Duration()
}

var planReflector = jsonschema.Reflector{
	ExpandedStruct: true,
	DoNotReference: true,
}

// PlanSchema returns the JSON schema of a plan file.
func PlanSchema() ([]byte, error) {
	schema := planReflector.Reflect(&Plan{})
	schema.Title = "sqlowl benchmark plan"
	return json.MarshalIndent(schema, "", "  ")
}
