package natsx

import (
	"os"

	"github.com/nats-io/nats.go"
)

// EnvURL is the environment variable consulted for the NATS server address.
const EnvURL = "NATS_URL"

// NewClient connects to the NATS server named by the NATS_URL environment variable,
// falling back to nats.DefaultURL when it is unset. Without explicit options the
// connection is named "hostlink-relay" and uses compression.
func NewClient(opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name("hostlink-relay"), nats.Compression(true))
	}
	return nats.Connect(URL(), opts...)
}

// URL returns the configured NATS server address.
func URL() string {
	if u := os.Getenv(EnvURL); u != "" {
		return u
	}
	return nats.DefaultURL
}
