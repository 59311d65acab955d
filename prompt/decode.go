package prompt

import (
	"fmt"
	"strings"

	"github.com/casualjim/sqlowl/messages"
	"github.com/goccy/go-json"
)

const questionPrefix = "Question:"

// Decode parses a rendered prompt or trace back into role-tagged turns.
//
// Chat markup is decoded exactly from its block headers, and a trailing open
// assistant block holding only the lead-in is dropped. Raw text carries no
// role markers, so it is segmented by protocol prefix: text before the first
// line starting with "Question:" is the system turn, every "Question:" line
// opens a user turn and the first "Thought:" line after it opens the
// assistant turn that runs to the next question. Role-list prompts are
// decoded from their JSON form. Turn contents are trimmed.
func Decode(enc Encoding, rendered string) ([]messages.Turn, error) {
	switch enc {
	case EncodingRaw:
		return decodeRaw(rendered), nil
	case EncodingChatML:
		return decodeChatML(rendered)
	case EncodingRoleList:
		var turns []messages.Turn
		if err := json.Unmarshal([]byte(rendered), &turns); err != nil {
			return nil, fmt.Errorf("failed to decode role list: %w", err)
		}
		return turns, nil
	default:
		return nil, fmt.Errorf("unknown prompt encoding %q", enc)
	}
}

func decodeRaw(rendered string) []messages.Turn {
	var (
		turns []messages.Turn
		role  = messages.RoleSystem
		lines []string
	)
	flush := func() {
		if content := strings.TrimSpace(strings.Join(lines, "\n")); content != "" {
			turns = append(turns, messages.Turn{Role: role, Content: content})
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(rendered, "\n") {
		switch {
		case strings.HasPrefix(line, questionPrefix):
			flush()
			role = messages.RoleUser
		case role == messages.RoleUser && strings.HasPrefix(line, strings.TrimSpace(LeadIn)):
			flush()
			role = messages.RoleAssistant
		}
		lines = append(lines, line)
	}
	flush()
	return turns
}

func decodeChatML(rendered string) ([]messages.Turn, error) {
	var turns []messages.Turn
	rest := rendered
	for {
		start := strings.Index(rest, imStart)
		if start < 0 {
			break
		}
		rest = rest[start+len(imStart):]

		header := rest
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			header, rest = rest[:nl], rest[nl+1:]
		} else {
			rest = ""
		}

		var body string
		closed := false
		if end := strings.Index(rest, imEnd); end >= 0 && !strings.Contains(rest[:end], imStart) {
			body, rest, closed = rest[:end], rest[end+len(imEnd):], true
		} else if next := strings.Index(rest, imStart); next >= 0 {
			body, rest = rest[:next], rest[next:]
		} else {
			body, rest = rest, ""
		}

		role, err := chatMLRole(strings.TrimSpace(header))
		if err != nil {
			return nil, err
		}
		body = strings.TrimSpace(body)
		if !closed && role == messages.RoleAssistant && (body == "" || body == strings.TrimSpace(LeadIn)) {
			continue
		}
		turns = append(turns, messages.Turn{Role: role, Content: body})
	}
	return turns, nil
}

func chatMLRole(header string) (messages.Role, error) {
	switch header {
	case "system":
		return messages.RoleSystem, nil
	case "system name=example_assistant", "assistant":
		return messages.RoleAssistant, nil
	case "system name=example_user", "user":
		return messages.RoleUser, nil
	default:
		return "", fmt.Errorf("unknown chat markup header %q", header)
	}
}
