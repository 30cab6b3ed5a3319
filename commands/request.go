package commands

import (
	"time"

	"github.com/tidwall/sjson"
)

// Endpoint is where command executions are posted.
const Endpoint = "/commands/execute"

// Request describes one command execution. Limits on arguments, stdin size and timeout are
// enforced by the host; the values are sent as given.
type Request struct {
	Command string
	Args    []string
	// Stdin is written to the process's standard input, then closed.
	Stdin string
	// Timeout is the host-side time budget, zero leaves the host default in place.
	Timeout time.Duration
}

var requestJSON = []byte(`{}`)

// MarshalJSON encodes the request as {command, args?, stdin?, timeoutMs?}.
func (r Request) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(requestJSON, "command", r.Command)
	if err != nil {
		return nil, err
	}
	if r.Args != nil {
		if result, err = sjson.SetBytes(result, "args", r.Args); err != nil {
			return nil, err
		}
	}
	if r.Stdin != "" {
		if result, err = sjson.SetBytes(result, "stdin", r.Stdin); err != nil {
			return nil, err
		}
	}
	if r.Timeout > 0 {
		if result, err = sjson.SetBytes(result, "timeoutMs", r.Timeout.Milliseconds()); err != nil {
			return nil, err
		}
	}
	return result, nil
}
