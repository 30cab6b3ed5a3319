package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Event is one dispatched text/event-stream event.
type Event struct {
	// Name is the value of the last "event" field, empty for the default "message" event.
	Name string
	// ID is the value of the last "id" field seen on the stream so far.
	ID string
	// Data holds every "data" field of the event joined by newlines.
	Data string
	// Retry is the reconnection delay in milliseconds advertised by the server, 0 when absent.
	Retry int
}

// Type returns the event name, defaulting to "message".
func (e Event) Type() string {
	if e.Name == "" {
		return DefaultEvent
	}
	return e.Name
}

// DefaultEvent is the type of events that carry no "event" field.
const DefaultEvent = "message"

// Decoder reads events from a text/event-stream body.
type Decoder struct {
	r      *bufio.Reader
	lastID string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next blocks until a complete event arrived and returns it.
// An event that is still incomplete when the stream ends is discarded and io.EOF is returned.
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			return Event{}, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		if line == "" {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.ID = d.lastID
			ev.Data = data.String()
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				ev.Retry = ms
			}
		}
	}
}

// LastID returns the last event id seen on the stream.
func (d *Decoder) LastID() string {
	return d.lastID
}
