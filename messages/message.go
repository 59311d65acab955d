package messages

import (
	"fmt"
	"strings"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: expected one of system, user, assistant", s)
	}
	return r, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so roles decode from JSON and YAML.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Turn is a single role-tagged piece of conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func System(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

func User(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func Assistant(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

func (t Turn) String() string {
	return fmt.Sprintf("%s: %s", t.Role, t.Content)
}

// Clone returns a copy of turns that shares no backing array with the input.
func Clone(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
