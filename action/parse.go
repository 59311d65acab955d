package action

import (
	"strconv"
	"strings"
)

const (
	actionKeyword = "Action:"
	inputKeyword  = "Action Input "
	finalKeyword  = "Final Answer:"
	fence         = "```"
)

// Outcome classifies what a generation asks the loop to do next.
type Outcome uint8

const (
	// OutcomeNone means the generation carried neither an action nor a final answer.
	OutcomeNone Outcome = iota
	// OutcomeAction means the generation names an action to dispatch.
	OutcomeAction
	// OutcomeFinal means the generation carries a final answer and no action.
	OutcomeFinal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAction:
		return "action"
	case OutcomeFinal:
		return "final"
	default:
		return "none"
	}
}

// Parsed is the result of scanning one generation.
type Parsed struct {
	Action         string
	HasAction      bool
	Inputs         []string
	FinalAnswer    string
	HasFinalAnswer bool
}

// Outcome reports the dispatch decision for p. An action takes precedence
// over a final answer found in the same generation.
func (p Parsed) Outcome() Outcome {
	switch {
	case p.HasAction:
		return OutcomeAction
	case p.HasFinalAnswer:
		return OutcomeFinal
	default:
		return OutcomeNone
	}
}

// Parse scans text line by line and extracts the action, its inputs and the final answer.
func Parse(text string) Parsed {
	var p Parsed
	pos := 0
	for pos < len(text) {
		line, next := lineAt(text, pos)
		trimmed := strings.TrimLeft(line, " \t")
		start := pos + len(line) - len(trimmed)

		switch {
		case strings.HasPrefix(trimmed, inputKeyword):
			if value, end, ok := scanInput(text, start+len(inputKeyword)); ok {
				p.Inputs = append(p.Inputs, value)
				// resume right after the closing fence, another input may follow on the same line
				next = end
			}
		case strings.HasPrefix(trimmed, actionKeyword):
			if !p.HasAction {
				if name := strings.TrimSpace(trimmed[len(actionKeyword):]); name != "" {
					p.Action = name
					p.HasAction = true
				}
			}
		case strings.HasPrefix(trimmed, finalKeyword):
			if !p.HasFinalAnswer {
				p.FinalAnswer = strings.TrimLeft(text[start+len(finalKeyword):], " \t")
				p.HasFinalAnswer = true
			}
		}
		pos = next
	}
	return p
}

// lineAt returns the line starting at pos (without its newline) and the offset of the next line.
func lineAt(text string, pos int) (string, int) {
	nl := strings.IndexByte(text[pos:], '\n')
	if nl < 0 {
		return text[pos:], len(text)
	}
	return text[pos : pos+nl], pos + nl + 1
}

// scanInput reads `<k>: ```<value>```` starting at pos. It returns the value
// and the offset just past the closing fence.
func scanInput(text string, pos int) (string, int, bool) {
	digits := pos
	for digits < len(text) && text[digits] >= '0' && text[digits] <= '9' {
		digits++
	}
	if digits == pos {
		return "", 0, false
	}
	if k, err := strconv.Atoi(text[pos:digits]); err != nil || k < 1 {
		return "", 0, false
	}
	if digits >= len(text) || text[digits] != ':' {
		return "", 0, false
	}

	open := digits + 1
	for open < len(text) && (text[open] == ' ' || text[open] == '\t') {
		open++
	}
	if !strings.HasPrefix(text[open:], fence) {
		return "", 0, false
	}

	valueStart := open + len(fence)
	closing := strings.Index(text[valueStart:], fence)
	if closing < 0 {
		return "", 0, false
	}
	valueEnd := valueStart + closing
	return text[valueStart:valueEnd], valueEnd + len(fence), true
}

// CleanAnswer strips protocol delimiters and surrounding whitespace from a final answer.
func CleanAnswer(s string) string {
	if idx := strings.Index(s, "<|im_start|>"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(s, "<|im_end|>", "")
	return strings.TrimSpace(s)
}
