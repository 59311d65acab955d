package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/harness"
	"github.com/casualjim/sqlowl/internal/broker"
	"github.com/casualjim/sqlowl/internal/msgfmt"
	"github.com/casualjim/sqlowl/pkg/natsx"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/pkg/uuidx"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/charmbracelet/glamour"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

type askFlags struct {
	model       string
	database    string
	encoding    string
	dictionary  string
	actions     []string
	inject      string
	maxAttempts int
	emptyPolicy string
	timeout     time.Duration
	traceFile   string
	natsURL     string
	dump        bool
	quiet       bool
}

func newAskCmd() *cobra.Command {
	var f askFlags
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question against a database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), f, strings.Join(args, " "))
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "openai:gpt-4o-mini", "model spec, e.g. openai:gpt-4 or local:mistral@http://localhost:8080/v1/")
	fl.StringVar(&f.database, "db", "", "SQLite database to query")
	fl.StringVar(&f.encoding, "encoding", "", "prompt encoding: raw, chatml or rolelist (default depends on the model)")
	fl.StringVar(&f.dictionary, "dict", "", "YAML data dictionary for the help action")
	fl.StringSliceVar(&f.actions, "actions", nil, "actions offered to the model (default tables, schema, help, sql-query)")
	fl.StringVar(&f.inject, "inject", "", "YAML file of worked examples; the most similar one replaces the built-in example")
	fl.IntVar(&f.maxAttempts, "max-attempts", 0, "maximum number of generations (default 15)")
	fl.StringVar(&f.emptyPolicy, "on-empty", "", "what to do after an empty generation: continue or nudge")
	fl.DurationVar(&f.timeout, "timeout", harness.DefaultTimeout, "hard limit for the whole run")
	fl.StringVar(&f.traceFile, "trace-file", "", "write the final prompt trace to this file")
	fl.StringVar(&f.natsURL, "nats", "", "publish run events to this NATS server")
	fl.BoolVar(&f.dump, "dump", false, "dump the full run result")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not stream the run to the terminal")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func (f askFlags) request(question string) (harness.Request, error) {
	req := harness.Request{
		RunID:       uuidx.New(),
		Model:       f.model,
		Question:    question,
		Database:    f.database,
		Dictionary:  f.dictionary,
		Actions:     f.actions,
		MaxAttempts: f.maxAttempts,
		EmptyPolicy: f.emptyPolicy,
		Timeout:     f.timeout,
	}
	if f.encoding != "" {
		enc, err := prompt.ParseEncoding(f.encoding)
		if err != nil {
			return req, err
		}
		req.Encoding = enc
	}
	if f.inject != "" {
		pool, err := loadExemplars(f.inject)
		if err != nil {
			return req, err
		}
		req.Exemplars = pool
		req.Inject = true
	}
	return req, req.Validate()
}

func runAsk(ctx context.Context, out io.Writer, f askFlags, question string) error {
	req, err := f.request(question)
	if err != nil {
		return err
	}
	logger := slog.Default().With(slogx.LoggerName("sqlowl.cli"), slogx.RunID(req.RunID))

	var hooks []events.Hook
	if !f.quiet {
		hooks = append(hooks, msgfmt.NewConsole(os.Stderr, f.model))
	}
	if f.natsURL != "" {
		nc, err := natsx.NewClient(f.natsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Close()
		topic := broker.NATS(nc).Topic(ctx, req.RunID.String())
		hooks = append(hooks, broker.PublishingHook(topic))
		logger.InfoContext(ctx, "publishing run events", slog.String("topic", req.RunID.String()))
	}

	runner, err := harness.NewRunner(harness.Inline{}, harness.WithHook(events.Multi(hooks...)))
	if err != nil {
		return err
	}
	res := runner.Run(ctx, req, f.timeout)

	if f.traceFile != "" {
		if err := os.WriteFile(f.traceFile, []byte(res.Trace.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}
	if f.dump {
		pp.Fprintln(out, res)
	}
	if res.FinalAnswer == nil {
		if res.Err == nil {
			return errors.New("no answer")
		}
		return fmt.Errorf("no answer (%s): %w", res.Reason, res.Err)
	}
	return printAnswer(out, res)
}

func printAnswer(out io.Writer, res api.RunResult) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		_, err = fmt.Fprintln(out, res.Answer())
		return err
	}
	rendered, err := r.Render(res.Answer())
	if err != nil {
		_, err = fmt.Fprintln(out, res.Answer())
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
