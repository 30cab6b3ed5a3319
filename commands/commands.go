// Package commands runs processes on the host and reads their output as it is produced.
//
// The host answers an execution request with a chunked NDJSON stream of stdout and stderr
// lines followed by exactly one exit event. Stream exposes those events one by one, Execute
// collects them into a Result.
package commands

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/ndjson"
	"github.com/casualjim/hostlink/pkg/slogx"
	json "github.com/goccy/go-json"
)

// ErrNoExit is reported when the stream ended before the host sent the exit event.
var ErrNoExit = errors.New("commands: stream ended before the exit event")

// Result is the collected outcome of an execution.
type Result struct {
	// Stdout holds every stdout line, joined by newlines.
	Stdout string `json:"stdout"`
	// Stderr holds every stderr line, joined by newlines.
	Stderr   string `json:"stderr"`
	ExitCode *int   `json:"exitCode"`
	TimedOut bool   `json:"timedOut"`
	Signal   string `json:"signal,omitempty"`
}

// Success reports whether the process exited on its own with code 0.
func (r *Result) Success() bool {
	return r.ExitCode != nil && *r.ExitCode == 0 && !r.TimedOut
}

// Client executes commands on the host.
type Client struct {
	client *hostlink.Client
	logger *slog.Logger
}

// New returns a commands client using c for every request.
func New(c *hostlink.Client) *Client {
	return &Client{
		client: c,
		logger: c.Logger().With(slogx.LoggerName("commands")),
	}
}

// Stream starts the command and yields its events as they arrive.
//
// The sequence ends after the Exit event. Errors from the underlying stream are yielded once
// and end the sequence; when the stream ends without an Exit event a *hostlink.TransportError
// wrapping ErrNoExit is yielded. Cancelling ctx ends the sequence without an error and without
// an Exit event.
func (c *Client) Stream(ctx context.Context, req Request) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for raw, err := range ndjson.Stream[json.RawMessage](ctx, c.client, http.MethodPost, Endpoint, req) {
			if err != nil {
				yield(nil, err)
				return
			}

			ev, err := FromJSON(raw)
			if err != nil {
				var unknown errUnknownType
				if errors.As(err, &unknown) {
					c.logger.DebugContext(ctx, "skipping command event", slogx.Error(err))
					continue
				}
				yield(nil, &hostlink.MalformedFrameError{Frame: string(raw), Err: err})
				return
			}

			if !yield(ev, nil) {
				return
			}
			if _, ok := ev.(Exit); ok {
				return
			}
		}

		if ctx.Err() == nil {
			yield(nil, &hostlink.TransportError{Endpoint: Endpoint, Err: ErrNoExit})
		}
	}
}

// Execute runs the command to completion and collects its output.
//
// A result is only returned once the host reported the exit. Cancellation before that
// returns a *hostlink.CanceledError; any stream error is returned as is.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	var stdout, stderr []string
	for ev, err := range c.Stream(ctx, req) {
		if err != nil {
			return nil, err
		}
		switch e := ev.(type) {
		case Stdout:
			stdout = append(stdout, e.Data)
		case Stderr:
			stderr = append(stderr, e.Data)
		case Exit:
			return &Result{
				Stdout:   strings.Join(stdout, "\n"),
				Stderr:   strings.Join(stderr, "\n"),
				ExitCode: e.ExitCode,
				TimedOut: e.TimedOut,
				Signal:   e.Signal,
			}, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, &hostlink.CanceledError{Endpoint: Endpoint, Err: err}
	}
	return nil, &hostlink.TransportError{Endpoint: Endpoint, Err: ErrNoExit}
}
