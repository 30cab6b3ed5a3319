// Package signals publishes to and subscribes on the host's named signal channels.
//
// A channel is a named topic with zero or more subscribers. Publishing is a single request
// that does not know or care how many subscribers exist; the host fans the payload out to
// every open subscription as a Server-Sent Event.
package signals

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/casualjim/hostlink/sse"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const basePath = "/signals"

// Client talks to the host's signal endpoints and keeps track of the subscriptions it opened.
type Client struct {
	client *hostlink.Client
	logger *slog.Logger
	subs   *haxmap.Map[string, *sse.Subscription]
}

// New returns a signals client using c for every request.
func New(c *hostlink.Client) *Client {
	return &Client{
		client: c,
		logger: c.Logger().With(slogx.LoggerName("signals")),
		subs:   haxmap.New[string, *sse.Subscription](),
	}
}

// Path returns the endpoint of a channel.
func Path(channel string) string {
	return basePath + "/" + url.PathEscape(channel)
}

// Subscribe opens a subscription on channel. Messages are dispatched to handler in the order
// the host sent them. The returned subscription must be closed by the caller, or by Close.
func Subscribe[T any](ctx context.Context, c *Client, channel string, handler sse.Handler[T], options ...sse.Option) (*sse.Subscription, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel name is required")
	}

	release := sse.OnClose(func(sub *sse.Subscription) { c.subs.Del(sub.ID()) })
	sub, err := sse.Subscribe(ctx, c.client, Path(channel), handler, append(slices.Clip(options), release)...)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %q: %w", channel, err)
	}
	c.subs.Set(sub.ID(), sub)

	// the stream may already have ended before the registry saw it
	select {
	case <-sub.Done():
		c.subs.Del(sub.ID())
	default:
	}

	c.logger.DebugContext(ctx, "subscribed", slogx.Channel(channel), slogx.Subscription(sub.ID()))
	return sub, nil
}

// Subscribe opens a subscription on channel delivering raw JSON payloads.
func (c *Client) Subscribe(ctx context.Context, channel string, handler sse.Handler[json.RawMessage], options ...sse.Option) (*sse.Subscription, error) {
	return Subscribe(ctx, c, channel, handler, options...)
}

// Publish sends payload to every subscriber of channel. It is fire-and-forget: the host
// accepts the payload whether or not anyone is listening.
func (c *Client) Publish(ctx context.Context, channel string, payload any) error {
	if channel == "" {
		return fmt.Errorf("channel name is required")
	}
	if err := c.client.Post(ctx, Path(channel), payload, nil); err != nil {
		return fmt.Errorf("failed to publish to %q: %w", channel, err)
	}
	return nil
}

// List returns the channels the host knows about, mapped to their subscriber count, in the
// order the host reported them.
func (c *Client) List(ctx context.Context) (*orderedmap.OrderedMap[string, int], error) {
	var raw json.RawMessage
	if err := c.client.Get(ctx, basePath, &raw); err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	result := orderedmap.New[string, int]()
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("failed to list signals: expected an array, got %s", parsed.Type)
	}
	parsed.ForEach(func(_, item gjson.Result) bool {
		name := item.Get("signal").String()
		if name == "" {
			return true
		}
		result.Set(name, int(item.Get("subscribers").Int()))
		return true
	})
	return result, nil
}

// Active returns how many subscriptions opened by this client are still open.
func (c *Client) Active() int {
	var n int
	c.subs.ForEach(func(id string, sub *sse.Subscription) bool {
		select {
		case <-sub.Done():
			c.subs.Del(id)
		default:
			n++
		}
		return true
	})
	return n
}

// Close closes every subscription this client opened that is still open.
func (c *Client) Close() error {
	var open []*sse.Subscription
	c.subs.ForEach(func(_ string, sub *sse.Subscription) bool {
		open = append(open, sub)
		return true
	})
	for _, sub := range open {
		_ = sub.Close()
	}
	return nil
}
