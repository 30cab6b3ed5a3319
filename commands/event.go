package commands

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Event is one event of a command execution: Stdout, Stderr or Exit.
type Event interface {
	commandEvent()
}

// Stdout is one line the command wrote to standard output.
type Stdout struct {
	Data string `json:"data"`
}

func (Stdout) commandEvent() {}

// Stderr is one line the command wrote to standard error.
type Stderr struct {
	Data string `json:"data"`
}

func (Stderr) commandEvent() {}

// Exit is the terminal event of an execution. It is always the last event and never repeated.
type Exit struct {
	// ExitCode is nil when the process did not exit on its own, e.g. it was killed by a signal.
	ExitCode *int `json:"code"`
	// TimedOut is set when the host killed the process because its timeout expired.
	TimedOut bool `json:"timedOut"`
	// Signal names the signal that terminated the process, empty when there was none.
	Signal string `json:"signal,omitempty"`
}

func (Exit) commandEvent() {}

const (
	typeStdout = "stdout"
	typeStderr = "stderr"
	typeExit   = "exit"
)

// errUnknownType marks a wire event whose type this client does not know.
type errUnknownType string

func (e errUnknownType) Error() string {
	return fmt.Sprintf("unknown command event type %q", string(e))
}

// FromJSON decodes one wire event. Anything but a JSON object is an error; an object with a
// type this client does not know returns an error that Stream skips. Absent optional fields
// take their zero value: a missing or null code becomes a nil ExitCode, a missing signal
// becomes "".
func FromJSON(data []byte) (Event, error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, errors.New("command event is not a JSON object")
	}
	kind := parsed.Get("type")
	switch kind.String() {
	case typeStdout:
		return Stdout{Data: parsed.Get("data").String()}, nil
	case typeStderr:
		return Stderr{Data: parsed.Get("data").String()}, nil
	case typeExit:
		var exit Exit
		if err := json.Unmarshal(data, &exit); err != nil {
			return nil, err
		}
		return exit, nil
	default:
		return nil, errUnknownType(kind.String())
	}
}

// ExitCode is a convenience for building an Exit with a code.
func ExitCode(code int) *int {
	return &code
}
