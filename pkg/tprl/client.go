package tprl

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/casualjim/sqlowl/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// DefaultTaskQueue is the task queue the benchmark workflow and activity are served on.
const DefaultTaskQueue = "sqlowl-runs"

func envStrOrDefault(key string, def string) string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return s
}

// NewClient creates a lazy temporal client pointed at TEMPORAL_ADDRESS
// (or the SDK default host) that logs through slog.
func NewClient() (client.Client, error) {
	lg := slog.Default().With(slogx.LoggerName("sqlowl.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort:  envStrOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envStrOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
