package hostlink

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the host answers a request with a non-success status.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Endpoint   string `json:"endpoint"`
	Body       string `json:"body"`
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hostlink: %s: %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("hostlink: %s: %d %s: %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// MalformedFrameError is returned when a streamed record can't be decoded as JSON.
// Frame holds the offending text exactly as it was received, after trimming.
type MalformedFrameError struct {
	Frame string
	Err   error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("hostlink: malformed frame %q: %v", e.Frame, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// TransportError is returned when the connection fails, or closes before a stream reached
// the point where it is considered complete.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hostlink: transport failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CanceledError is returned when the caller's context ends a call that has no clean way to
// stop early, such as a non-streaming request or a command that never reported its exit.
type CanceledError struct {
	Endpoint string
	Err      error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("hostlink: %s canceled: %v", e.Endpoint, e.Err)
}

func (e *CanceledError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsNotFound reports whether the host answered with 404.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
