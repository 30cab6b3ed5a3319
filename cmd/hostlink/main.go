// Command hostlink talks to a host API from the terminal: it runs commands on the host,
// listens to and publishes signals, and bridges signal channels to NATS.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelDebug}),
	))
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			cancel()
			os.Exit(exit.code)
		}
		slog.Error("hostlink failed", slogx.Error(err))
		cancel()
		os.Exit(1)
	}
}
