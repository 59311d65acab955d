// Command sqlowl answers questions about a SQLite database with a ReAct agent
// and benchmarks models on a plan of reference questions.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/sqlowl/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	setupLogging(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("sqlowl failed", slogx.Error(err))
		stop()
		os.Exit(1)
	}
}
