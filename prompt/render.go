package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/fogfish/opts"
)

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"

	// LeadIn opens the assistant turn so the model continues in protocol format.
	LeadIn = "Thought: "

	finalAnswerMarker = "Final Answer:"
)

type renderOptions struct {
	selector exemplar.Selector
	pool     []exemplar.Exemplar
}

// RenderOption configures Render.
type RenderOption = opts.Option[renderOptions]

// WithExemplars enables example injection: the exemplar from pool that
// selector rates closest to the question replaces the template's examples,
// starting at the template's inject point. Without an inject point or with an
// empty pool the template is rendered unchanged.
func WithExemplars(selector exemplar.Selector, pool []exemplar.Exemplar) RenderOption {
	return opts.Type[renderOptions](func(o *renderOptions) error {
		o.selector = selector
		o.pool = pool
		return nil
	})
}

// Render resolves question into tpl and serializes it with enc.
func Render(ctx context.Context, tpl Template, question string, enc Encoding, options ...RenderOption) (*State, error) {
	var ro renderOptions
	if err := opts.Apply(&ro, options); err != nil {
		return nil, err
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	turns, err := inject(ctx, tpl, question, ro)
	if err != nil {
		return nil, err
	}

	switch enc {
	case EncodingRaw:
		return &State{encoding: enc, text: renderRaw(turns, question)}, nil
	case EncodingChatML:
		return &State{encoding: enc, text: renderChatML(turns, question)}, nil
	case EncodingRoleList:
		return &State{encoding: enc, turns: renderRoleList(turns, question)}, nil
	default:
		return nil, fmt.Errorf("unknown prompt encoding %q", enc)
	}
}

func inject(ctx context.Context, tpl Template, question string, ro renderOptions) (Template, error) {
	if ro.selector == nil || len(ro.pool) == 0 {
		return tpl, nil
	}
	point := tpl.InjectPoint()
	if point < 0 {
		return tpl, nil
	}

	selected, err := ro.selector.Select(ctx, question, ro.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to select exemplar: %w", err)
	}

	out := make(Template, 0, point+len(selected.Turns)+1)
	out = append(out, tpl[:point]...)
	for _, turn := range selected.Turns {
		out = append(out, TurnTemplate{Role: turn.Role, Content: turn.Content})
	}
	out = append(out, tpl[len(tpl)-1])
	return out, nil
}

func renderRaw(turns Template, question string) string {
	var sb strings.Builder
	for _, turn := range turns {
		line := resolve(turn.Content, question)
		sb.WriteString(line)
		sb.WriteByte('\n')
		if strings.Contains(line, finalAnswerMarker) {
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String())
}

func renderChatML(turns Template, question string) string {
	var sb strings.Builder
	last := len(turns) - 1
	for i, turn := range turns {
		line := strings.TrimSpace(resolve(turn.Content, question))
		switch {
		case turn.Role == messages.RoleSystem:
			writeBlock(&sb, "system", line)
		case turn.Role == messages.RoleAssistant:
			writeBlock(&sb, "system name=example_assistant", line)
			if strings.Contains(line, finalAnswerMarker+" ") {
				sb.WriteByte('\n')
			}
		case i != last:
			writeBlock(&sb, "system name=example_user", line)
		default:
			writeBlock(&sb, "user", line)
			sb.WriteString(imStart + "assistant\n" + LeadIn)
		}
	}
	return strings.TrimLeftFunc(sb.String(), unicode.IsSpace)
}

func writeBlock(sb *strings.Builder, header, content string) {
	sb.WriteString(imStart)
	sb.WriteString(header)
	sb.WriteByte('\n')
	sb.WriteString(content)
	sb.WriteString("\n" + imEnd + "\n")
}

func renderRoleList(turns Template, question string) []messages.Turn {
	out := turns.Turns()
	last := len(out) - 1
	out[last].Content = resolve(out[last].Content, question)
	return out
}
