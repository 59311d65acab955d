package main

import (
	"log/slog"
	"os"

	"github.com/casualjim/sqlowl/harness"
	"github.com/casualjim/sqlowl/internal/broker"
	"github.com/casualjim/sqlowl/pkg/natsx"
	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/casualjim/sqlowl/pkg/tprl"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run one request read from stdin and stream its events to stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return harness.ServeWorker(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}

func newTemporalWorkerCmd() *cobra.Command {
	var taskQueue, natsURL string
	cmd := &cobra.Command{
		Use:   "temporal-worker",
		Short: "Serve benchmark runs from a Temporal task queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := tprl.NewClient()
			if err != nil {
				return err
			}
			defer c.Close()

			var b broker.Broker
			if natsURL != "" {
				nc, err := natsx.NewClient(natsURL)
				if err != nil {
					return err
				}
				defer nc.Close()
				b = broker.NATS(nc)
			}

			w := worker.New(c, taskQueue, worker.Options{})
			harness.Register(w, harness.NewActivities(b, harness.Inline{}))
			slog.InfoContext(cmd.Context(), "temporal worker started", slogx.LoggerName("sqlowl.cli"), slog.String("task_queue", taskQueue))

			stop := make(chan any)
			go func() {
				<-cmd.Context().Done()
				close(stop)
			}()
			return w.Run(stop)
		},
	}
	cmd.Flags().StringVar(&taskQueue, "task-queue", tprl.DefaultTaskQueue, "task queue to poll")
	cmd.Flags().StringVar(&natsURL, "nats", "", "publish run events to this NATS server")
	return cmd
}
