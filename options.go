package hostlink

import (
	"log/slog"
	"net/http"

	"github.com/fogfish/opts"
)

// Option configures a Client.
type Option = opts.Option[Client]

var (
	// WithBaseURL pins the client to a base URL instead of the process-wide configuration.
	WithBaseURL = opts.ForName[Client, string]("baseURL")
	// WithHTTPClient sets the *http.Client used for every request.
	WithHTTPClient = opts.ForName[Client, *http.Client]("httpClient")
	// WithLogger sets the logger used by the client and by the streams it opens.
	WithLogger = opts.ForName[Client, *slog.Logger]("logger")
)

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return opts.Type[Client](func(c *Client) error {
		if c.header == nil {
			c.header = make(http.Header)
		}
		c.header.Add(key, value)
		return nil
	})
}
