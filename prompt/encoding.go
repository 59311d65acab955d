package prompt

import (
	"fmt"
	"strings"
)

// Encoding selects how a template is serialized for a backend.
type Encoding string

const (
	EncodingRaw      Encoding = "raw"
	EncodingChatML   Encoding = "chatml"
	EncodingRoleList Encoding = "rolelist"
)

// ParseEncoding accepts the encoding names used in plans and on the command line.
// "openai" is an alias for the role-list encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw":
		return EncodingRaw, nil
	case "chatml":
		return EncodingChatML, nil
	case "rolelist", "openai":
		return EncodingRoleList, nil
	default:
		return "", fmt.Errorf("unknown prompt encoding %q: expected raw, chatml or openai", s)
	}
}

func (e Encoding) String() string {
	return string(e)
}

// Variant returns the state variant produced by rendering with e.
func (e Encoding) Variant() Variant {
	if e == EncodingRoleList {
		return VariantTurns
	}
	return VariantText
}

// UnmarshalText leaves e empty for empty input so zero traces survive a round trip.
func (e *Encoding) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*e = ""
		return nil
	}
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e), nil
}
