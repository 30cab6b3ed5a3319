// Package relay bridges host signal channels and NATS subjects.
//
// A forward route subscribes to a host channel and republishes every payload on a NATS
// subject. An inbound route subscribes to a NATS subject and publishes every message it
// receives to a host channel. Routes live until their context is canceled, they are closed,
// or the relay is closed.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/casualjim/hostlink/pkg/uuidx"
	"github.com/casualjim/hostlink/signals"
	"github.com/casualjim/hostlink/sse"
	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
)

// Headers set on every message a forward route publishes.
const (
	HeaderChannel = "Hostlink-Channel"
	HeaderEventID = "Hostlink-Event-Id"
)

// Direction tells which way a route moves payloads.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)

var ackJSON = []byte(`{"ok":true}`)

// Route is one active bridge between a host channel and a NATS subject.
type Route struct {
	id        string
	direction Direction
	channel   string
	subject   string

	stopOnce   sync.Once
	finishOnce sync.Once
	stop       func() error
	finished   func()
	done       chan struct{}
}

func (r *Route) ID() string            { return r.id }
func (r *Route) Direction() Direction  { return r.direction }
func (r *Route) Channel() string       { return r.channel }
func (r *Route) Subject() string       { return r.subject }
func (r *Route) Done() <-chan struct{} { return r.done }

func (r *Route) String() string {
	if r.direction == Inbound {
		return fmt.Sprintf("%s -> %s", r.subject, r.channel)
	}
	return fmt.Sprintf("%s -> %s", r.channel, r.subject)
}

// Close tears the route down. It is safe to call more than once.
func (r *Route) Close() error {
	var err error
	r.stopOnce.Do(func() { err = r.stop() })
	r.finish()
	return err
}

// finish marks the route as ended without touching its source.
func (r *Route) finish() {
	r.finishOnce.Do(func() {
		r.finished()
		close(r.done)
	})
}

// Relay owns a set of routes sharing one NATS connection and one signals client.
type Relay struct {
	nc      *nats.Conn
	signals *signals.Client
	logger  *slog.Logger
	routes  *haxmap.Map[string, *Route]
}

// New creates a relay. The caller keeps ownership of nc.
func New(nc *nats.Conn, sc *signals.Client, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		nc:      nc,
		signals: sc,
		logger:  logger.With(slogx.LoggerName("relay")),
		routes:  haxmap.New[string, *Route](),
	}
}

// Forward republishes every payload of the host channel on the NATS subject.
func (r *Relay) Forward(ctx context.Context, channel, subject string) (*Route, error) {
	if subject == "" {
		return nil, errors.New("relay: subject is required")
	}
	route := r.newRoute(Outbound, channel, subject)
	logger := r.logger.With(slogx.Channel(channel), slog.String("subject", subject))

	sub, err := signals.Subscribe[json.RawMessage](ctx, r.signals, channel, func(ctx context.Context, msg sse.Message[json.RawMessage]) error {
		out := nats.NewMsg(subject)
		out.Header.Set(HeaderChannel, channel)
		if msg.ID != "" {
			out.Header.Set(HeaderEventID, msg.ID)
		}
		out.Data = msg.Raw
		if err := r.nc.PublishMsg(out); err != nil {
			return fmt.Errorf("failed to publish to %q: %w", subject, err)
		}
		logger.DebugContext(ctx, "forwarded signal", slog.Int("bytes", len(msg.Raw)))
		return nil
	}, sse.OnClose(func(*sse.Subscription) { route.finish() }))
	if err != nil {
		return nil, err
	}

	route.stop = sub.Close
	return r.track(ctx, route), nil
}

// Inbound publishes every message received on the NATS subject to the host channel.
// Messages that are not JSON are logged and dropped. When a message carries a reply
// subject it is answered once the host accepted the payload.
func (r *Relay) Inbound(ctx context.Context, subject, channel string) (*Route, error) {
	if channel == "" {
		return nil, errors.New("relay: channel is required")
	}
	route := r.newRoute(Inbound, channel, subject)
	logger := r.logger.With(slogx.Channel(channel), slog.String("subject", subject))

	routeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	nsub, err := r.nc.Subscribe(subject, func(msg *nats.Msg) {
		if !gjson.ValidBytes(msg.Data) {
			logger.Warn("dropping message that is not JSON", slog.Int("bytes", len(msg.Data)))
			return
		}
		if err := r.signals.Publish(routeCtx, channel, json.RawMessage(msg.Data)); err != nil {
			logger.Error("failed to publish signal", slogx.Error(err))
			return
		}
		if msg.Reply != "" {
			if err := msg.Respond(ackJSON); err != nil {
				logger.Error("failed to ack message", slogx.Error(err))
			}
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", subject, err)
	}

	route.stop = func() error {
		cancel()
		return nsub.Unsubscribe()
	}
	return r.track(ctx, route), nil
}

// Routes returns the routes that are still active.
func (r *Relay) Routes() []*Route {
	var out []*Route
	r.routes.ForEach(func(_ string, route *Route) bool {
		out = append(out, route)
		return true
	})
	return out
}

// Close tears down every route.
func (r *Relay) Close() error {
	var errs []error
	for _, route := range r.Routes() {
		if err := route.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) newRoute(dir Direction, channel, subject string) *Route {
	route := &Route{
		id:        uuidx.Prefixed("route"),
		direction: dir,
		channel:   channel,
		subject:   subject,
		stop:      func() error { return nil },
		done:      make(chan struct{}),
	}
	route.finished = func() {
		r.routes.Del(route.id)
		r.logger.Info("route stopped", slogx.Stringer("route", route))
	}
	return route
}

func (r *Relay) track(ctx context.Context, route *Route) *Route {
	r.routes.Set(route.id, route)
	select {
	case <-route.done:
		// the source ended before the route was tracked
		r.routes.Del(route.id)
		return route
	default:
	}
	context.AfterFunc(ctx, func() { _ = route.Close() })
	r.logger.Info("route started", slogx.Stringer("route", route), slog.String("direction", string(route.direction)))
	return route
}
