package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/casualjim/sqlowl/bench"
	"github.com/casualjim/sqlowl/events"
	"github.com/casualjim/sqlowl/harness"
	"github.com/casualjim/sqlowl/internal/broker"
	"github.com/casualjim/sqlowl/pkg/natsx"
	"github.com/casualjim/sqlowl/pkg/tprl"
	"github.com/casualjim/sqlowl/prompt/exemplar"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

type benchFlags struct {
	database    string
	dictionary  string
	actions     []string
	isolation   string
	concurrency int
	outputDir   string
	taskQueue   string
	natsURL     string
}

func newBenchCmd() *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench <plan.yaml>",
		Short: "Run a benchmark plan and score the answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.database, "db", "", "SQLite database the questions are about")
	fl.StringVar(&f.dictionary, "dict", "", "YAML data dictionary for the help action")
	fl.StringSliceVar(&f.actions, "actions", nil, "actions offered to the model")
	fl.StringVar(&f.isolation, "isolation", "subprocess", "how runs are isolated: inline, subprocess or temporal")
	fl.IntVar(&f.concurrency, "concurrency", 1, "tries of a question run in parallel")
	fl.StringVarP(&f.outputDir, "out", "o", ".", "directory for experiments/ and traces/")
	fl.StringVar(&f.taskQueue, "task-queue", tprl.DefaultTaskQueue, "temporal task queue")
	fl.StringVar(&f.natsURL, "nats", "", "receive temporal run events over this NATS server")
	_ = cmd.MarkFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of benchmark plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := bench.PlanSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	})
	return cmd
}

func (f benchFlags) newIsolation() (harness.Isolation, func(), error) {
	switch f.isolation {
	case "inline":
		return harness.Inline{}, func() {}, nil
	case "subprocess":
		return harness.Subprocess{}, func() {}, nil
	case "temporal":
		c, err := tprl.NewClient()
		if err != nil {
			return nil, nil, err
		}
		var b broker.Broker
		cleanup := c.Close
		if f.natsURL != "" {
			nc, err := natsx.NewClient(f.natsURL)
			if err != nil {
				c.Close()
				return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
			}
			b = broker.NATS(nc)
			cleanup = func() {
				nc.Close()
				c.Close()
			}
		}
		return harness.NewTemporal(c, b, f.taskQueue), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown isolation %q, expected inline, subprocess or temporal", f.isolation)
	}
}

func runBench(ctx context.Context, out io.Writer, f benchFlags, planFile string) error {
	plan, err := bench.LoadPlan(planFile)
	if err != nil {
		return err
	}
	iso, cleanup, err := f.newIsolation()
	if err != nil {
		return err
	}
	defer cleanup()

	runner, err := harness.NewRunner(iso, harness.WithHook(events.LoggingHook(slog.Default())))
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "running benchmark",
		slog.String("experiment", plan.ExperimentName),
		slog.Int("models", len(plan.Models)),
		slog.Int("questions", len(plan.QA)),
		slog.String("isolation", f.isolation),
	)
	start := time.Now()
	experiments, err := bench.Run(ctx, plan, runner,
		bench.WithDatabase(f.database),
		bench.WithDictionary(f.dictionary),
		bench.WithActions(f.actions),
		bench.WithConcurrency(f.concurrency),
		bench.WithOutputDir(f.outputDir),
	)
	printSummary(out, experiments, time.Since(start))
	return err
}

func printSummary(out io.Writer, experiments []bench.Experiment, elapsed time.Duration) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tANSWERED\tMETEOR\tOUTPUT")
	for _, exp := range experiments {
		answered, total := exp.Answered()
		fmt.Fprintf(tw, "%s\t%d/%d\t%.3f\t%s\n", exp.ModelName, answered, total, exp.MeanScore(), exp.Output)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "finished in %s\n", elapsed.Round(time.Millisecond))
}

func loadExemplars(path string) ([]exemplar.Exemplar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exemplars: %w", err)
	}
	var pool []exemplar.Exemplar
	if err := yaml.Unmarshal(b, &pool); err != nil {
		return nil, fmt.Errorf("failed to parse exemplars %s: %w", path, err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("exemplars %s: no examples", path)
	}
	return pool, nil
}
