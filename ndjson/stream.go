// Package ndjson reads newline-delimited JSON from chunked HTTP responses as a lazy sequence.
//
// The sequences returned here are pull based. The next chunk of the response body is read only
// when the consumer asks for the next value, so a slow consumer holds the producer back instead
// of letting frames pile up in memory. Stopping the range loop early, or cancelling the context,
// closes the connection.
//
//	for ev, err := range ndjson.Stream[Event](ctx, client, http.MethodPost, "/commands/execute", req) {
//		if err != nil {
//			return err
//		}
//		handle(ev)
//	}
package ndjson

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/internal/frame"
	"github.com/casualjim/hostlink/pkg/slogx"
	json "github.com/goccy/go-json"
)

// ChunkSize is the size of a single read from the response body.
const ChunkSize = 32 << 10

// Stream sends one request and yields every JSON record of the response body, decoded as T.
//
// Exactly one connection attempt is made. The sequence reports at most one error, after which
// it ends:
//   - *hostlink.APIError when the host answered with a non-success status; no record is decoded
//   - *hostlink.MalformedFrameError when a record is not valid JSON for T
//   - *hostlink.TransportError when reading the body fails
//
// Cancelling ctx ends the sequence without an error.
func Stream[T any](ctx context.Context, c *hostlink.Client, method, endpoint string, body any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		log := c.Logger().With(slogx.Endpoint(endpoint))

		resp, err := c.Open(ctx, method, endpoint, body, hostlink.AcceptNDJSON)
		if err != nil {
			var canceled *hostlink.CanceledError
			if errors.As(err, &canceled) {
				log.DebugContext(ctx, "stream canceled before the host answered")
				return
			}
			yield(zero, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		var count int
		for v, err := range decode[T](ctx, resp.Body, endpoint) {
			if err == nil {
				count++
			}
			if !yield(v, err) {
				break
			}
		}
		log.DebugContext(ctx, "stream closed", slog.Int("frames", count))
	}
}

// Decode yields every JSON record read from r, decoded as T. When r is an io.Closer it is
// closed as soon as ctx is cancelled, so a blocked read returns promptly.
func Decode[T any](ctx context.Context, r io.Reader) iter.Seq2[T, error] {
	return decode[T](ctx, r, "")
}

func decode[T any](ctx context.Context, r io.Reader, endpoint string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for text, err := range frames(ctx, r) {
			if err != nil {
				yield(zero, &hostlink.TransportError{Endpoint: endpoint, Err: err})
				return
			}

			var v T
			if err := json.Unmarshal([]byte(text), &v); err != nil {
				yield(zero, &hostlink.MalformedFrameError{Frame: text, Err: err})
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// frames yields the raw text records read from r, split by frame.Split. A read error other
// than io.EOF ends the sequence with that error and drops the unterminated tail; cancellation
// ends it silently.
func frames(ctx context.Context, r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if closer, ok := r.(io.Closer); ok {
			stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
			defer stop()
		}

		var readErr error
		chunks := func(yield func([]byte) bool) {
			buf := make([]byte, ChunkSize)
			for {
				n, err := r.Read(buf)
				if ctx.Err() != nil {
					return
				}
				if n > 0 && !yield(buf[:n]) {
					return
				}
				if err != nil {
					if !errors.Is(err, io.EOF) {
						readErr = err
					}
					return
				}
			}
		}

		for f := range frame.Split(chunks) {
			if ctx.Err() != nil {
				return
			}
			if readErr != nil {
				break
			}
			if !yield(f, nil) {
				return
			}
		}
		if readErr != nil && ctx.Err() == nil {
			yield("", readErr)
		}
	}
}
