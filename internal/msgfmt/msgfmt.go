// Package msgfmt prints run events to a terminal.
package msgfmt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/casualjim/sqlowl/events"
	"github.com/fatih/color"
)

// Console is a hook that streams a run to w as it happens: the generated
// text, the parsed actions, the observations and the way the run ended.
type Console struct {
	events.NopHook
	mu     sync.Mutex
	w      io.Writer
	model  string
	midRun bool
}

var _ events.Hook = (*Console)(nil)

func NewConsole(w io.Writer, model string) *Console {
	return &Console{w: w, model: model}
}

func (c *Console) OnGenerationStart(_ context.Context, ev events.GenerationStart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sender := c.model
	if ev.Model != "" {
		sender = ev.Model
	}
	if sender == "" {
		sender = "assistant"
	}
	fmt.Fprintf(c.w, "%s %s\n", color.MagentaString(sender), color.HiBlackString("(attempt %d)", ev.Attempt))
	c.midRun = false
}

func (c *Console) OnChunk(_ context.Context, ev events.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, ev.Text)
	c.midRun = !strings.HasSuffix(ev.Text, "\n")
}

func (c *Console) OnGeneration(context.Context, events.Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
}

func (c *Console) OnAction(_ context.Context, ev events.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	fmt.Fprintf(c.w, "%s(%s)\n", color.YellowString(ev.Name), strings.Join(ev.Inputs, ", "))
}

func (c *Console) OnObservation(_ context.Context, ev events.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	fmt.Fprintf(c.w, "%s %s\n", color.CyanString("Observation:"), ev.Text)
}

func (c *Console) OnResult(_ context.Context, ev events.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	res := ev.Result
	if res.FinalAnswer != nil {
		fmt.Fprintf(c.w, "%s %s\n", color.GreenString("Final Answer:"), *res.FinalAnswer)
		return
	}
	fmt.Fprintf(c.w, "%s after %d attempts\n", color.RedString("No answer: %s", res.Reason), res.Attempts)
}

func (c *Console) OnError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	fmt.Fprintf(c.w, "Error: %v\n", err)
}

func (c *Console) endLine() {
	if c.midRun {
		fmt.Fprintln(c.w)
		c.midRun = false
	}
}

// ConsolePretty prints the events received on ch until it is closed or ctx is done.
func ConsolePretty(ctx context.Context, w io.Writer, ch <-chan events.Event) error {
	console := NewConsole(w, "")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			events.Dispatch(ctx, console, ev)
		}
	}
}
