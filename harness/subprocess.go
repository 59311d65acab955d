package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/goccy/go-json"
)

// ErrNoResult is returned when a worker process exits without reporting a result.
var ErrNoResult = errors.New("worker exited without a result")

// Subprocess runs each request in a fresh worker process.
type Subprocess struct {
	// Path of the worker binary. Empty means the running executable.
	Path string
	// Args default to "worker".
	Args []string
	// Env of the worker. Nil inherits the current environment.
	Env []string
	// Stderr receives the worker logs. Nil means os.Stderr.
	Stderr io.Writer
}

var _ Isolation = Subprocess{}

func (s Subprocess) command(ctx context.Context) (*exec.Cmd, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker binary: %w", err)
		}
		path = exe
	}
	args := s.Args
	if args == nil {
		args = []string{"worker"}
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = s.Env
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.WaitDelay = time.Second
	return cmd, nil
}

func (s Subprocess) Execute(ctx context.Context, req Request, hook events.Hook) (api.RunResult, error) {
	if hook == nil {
		hook = events.NopHook{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return api.RunResult{}, fmt.Errorf("failed to encode request: %w", err)
	}

	cmd, err := s.command(ctx)
	if err != nil {
		return api.RunResult{}, err
	}
	cmd.Stdin = bytes.NewReader(payload)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return api.RunResult{}, err
	}
	if err := cmd.Start(); err != nil {
		return api.RunResult{}, fmt.Errorf("failed to start worker: %w", err)
	}

	res, found, readErr := readEvents(ctx, stdout, hook)
	waitErr := cmd.Wait()
	if readErr != nil {
		slog.WarnContext(ctx, "worker wrote malformed events", slogx.LoggerName("sqlowl.harness"), slogx.RunID(req.RunID), slogx.Error(readErr))
	}
	if found {
		return res, nil
	}
	if ctx.Err() != nil {
		return api.RunResult{}, fmt.Errorf("worker killed: %w", ctx.Err())
	}
	if waitErr != nil {
		return api.RunResult{}, fmt.Errorf("%w: %w", ErrNoResult, waitErr)
	}
	return api.RunResult{}, ErrNoResult
}
