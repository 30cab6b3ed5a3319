// Package sse subscribes to Server-Sent Events endpoints of the host and dispatches every
// message, decoded from JSON, to a handler.
//
// Design decisions:
//   - Arrival order: messages are dispatched one at a time on a single goroutine, a handler
//     invocation returns before the next one starts
//   - Failure isolation: a handler that returns an error or panics is logged and counted, the
//     subscription keeps delivering
//   - Explicit lifecycle: a Subscription owns its connection until Close; there is no
//     reconnection and nothing closes a forgotten handle for you
//
// Example usage:
//
//	sub, err := sse.Subscribe(ctx, client, "/vrm/42/events", func(ctx context.Context, msg sse.Message[State]) error {
//		return apply(msg.Data)
//	}, sse.Events("state-change"))
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/casualjim/hostlink/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
)

// ErrStreamEnded is the cause reported by Err when the host closed the stream.
var ErrStreamEnded = errors.New("sse: stream ended by host")

// Message is what a handler receives for every event.
type Message[T any] struct {
	// Path is the endpoint the subscription is bound to.
	Path string `json:"path"`
	// Event is the SSE event type, "message" unless the host named it.
	Event string `json:"event"`
	// ID is the last event id the host sent, if any.
	ID         string          `json:"id,omitempty"`
	Data       T               `json:"data"`
	Raw        json.RawMessage `json:"raw"`
	ReceivedAt strfmt.DateTime `json:"receivedAt"`
}

// Handler processes one message. Returning an error does not end the subscription.
type Handler[T any] func(context.Context, Message[T]) error

type settings struct {
	events  map[string]struct{}
	logger  *slog.Logger
	onClose func(*Subscription)
}

// Option configures a subscription.
type Option = opts.Option[settings]

// WithLogger overrides the logger used for dispatch failures.
var WithLogger = opts.ForName[settings, *slog.Logger]("logger")

// Events restricts dispatch to the named event types. Without it only "message" events
// are dispatched.
func Events(names ...string) Option {
	return opts.Type[settings](func(s *settings) error {
		s.events = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.events[n] = struct{}{}
		}
		return nil
	})
}

// AllEvents dispatches every event type.
func AllEvents() Option {
	return opts.Type[settings](func(s *settings) error {
		s.events = nil
		return nil
	})
}

// OnClose registers a callback run once when the subscription is released, whether by
// Close, by cancellation or because the host ended the stream.
// Callbacks registered more than once run in registration order.
func OnClose(fn func(*Subscription)) Option {
	return opts.Type[settings](func(s *settings) error {
		prev := s.onClose
		s.onClose = func(sub *Subscription) {
			if prev != nil {
				prev(sub)
			}
			fn(sub)
		}
		return nil
	})
}

func (s *settings) accepts(event string) bool {
	if s.events == nil {
		return true
	}
	_, ok := s.events[event]
	return ok
}

// Subscription is one open event stream. It is safe to use from multiple goroutines.
type Subscription struct {
	id     string
	path   string
	logger *slog.Logger

	body      io.Closer
	cancel    context.CancelFunc
	onClose   func(*Subscription)
	closeOnce sync.Once
	done      chan struct{}
	failures  atomic.Int64

	mu     sync.Mutex
	closed bool
	err    error
}

// Subscribe opens the event stream at path and dispatches every accepted event to handler.
//
// The initial response is checked before Subscribe returns: a non-success status is reported
// as *hostlink.APIError. Cancelling ctx closes the subscription.
func Subscribe[T any](ctx context.Context, c *hostlink.Client, path string, handler Handler[T], options ...Option) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	cfg := settings{
		events: map[string]struct{}{DefaultEvent: {}},
		logger: c.Logger(),
	}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	resp, err := c.Open(subCtx, http.MethodGet, path, nil, hostlink.AcceptEventStream)
	if err != nil {
		cancel()
		return nil, err
	}

	id := uuidx.Prefixed("sub")
	sub := &Subscription{
		id:      id,
		path:    path,
		logger:  cfg.logger.With(slogx.Subscription(id), slogx.Endpoint(path)),
		body:    resp.Body,
		cancel:  cancel,
		onClose: cfg.onClose,
		done:    make(chan struct{}),
	}
	go forward(subCtx, sub, NewDecoder(resp.Body), handler, &cfg)
	return sub, nil
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() string {
	return s.id
}

// Path returns the endpoint the subscription is bound to.
func (s *Subscription) Path() string {
	return s.path
}

// Close releases the connection. It is idempotent and always returns nil.
//
// No handler invocation starts after Close returned. An invocation that had already started
// keeps running until its handler returns; its context is cancelled. Calling Close from a
// handler is allowed.
func (s *Subscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.release()
	return nil
}

// Done is closed once the dispatch loop exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the dispatch loop exited. It is nil while the subscription is running and
// after a Close or a cancellation; it is a *hostlink.TransportError when the host closed the
// stream or the connection failed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Failures returns how many handler invocations failed or panicked.
func (s *Subscription) Failures() int64 {
	return s.failures.Load()
}

func (s *Subscription) release() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.body.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// begin checks whether an invocation may start. When it returns true the lock is still held
// and the caller hands the unlock to dispatch, which releases it right before the handler
// runs. Close takes the same lock, so it either sees the invocation started or prevents it.
func (s *Subscription) begin(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	return true
}

// fail records err as the reason the loop exited, unless the caller closed or cancelled first.
func (s *Subscription) fail(ctx context.Context, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return false
	}
	s.err = &hostlink.TransportError{Endpoint: s.path, Err: err}
	return true
}

func forward[T any](ctx context.Context, s *Subscription, dec *Decoder, handler Handler[T], cfg *settings) {
	defer close(s.done)
	defer s.release()

	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamEnded
			}
			if s.fail(ctx, err) {
				s.logger.WarnContext(ctx, "event stream closed", slogx.Error(err))
			}
			return
		}
		if !cfg.accepts(ev.Type()) {
			continue
		}

		msg := Message[T]{
			Path:       s.path,
			Event:      ev.Type(),
			ID:         dec.LastID(),
			Raw:        json.RawMessage(ev.Data),
			ReceivedAt: strfmt.DateTime(time.Now()),
		}
		if err := json.Unmarshal([]byte(ev.Data), &msg.Data); err != nil {
			s.logger.ErrorContext(ctx, "failed to unmarshal event",
				slogx.Error(err), slog.String("event", ev.Type()), slogx.ByteString("data", msg.Raw))
			continue
		}

		if !s.begin(ctx) {
			return
		}
		dispatch(ctx, s, handler, msg, s.mu.Unlock)
	}
}

// dispatch runs one handler invocation behind a recover boundary. started is called
// exactly once, immediately before the handler.
func dispatch[T any](ctx context.Context, s *Subscription, handler Handler[T], msg Message[T], started func()) {
	defer func() {
		if r := recover(); r != nil {
			s.failures.Add(1)
			s.logger.ErrorContext(ctx, "subscription handler panicked", slog.Any("panic", r), slog.String("event", msg.Event))
		}
	}()
	started()
	if err := handler(ctx, msg); err != nil {
		s.failures.Add(1)
		s.logger.ErrorContext(ctx, "subscription handler failed", slogx.Error(err), slog.String("event", msg.Event))
	}
}
