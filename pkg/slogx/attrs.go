package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
// A nil error is rendered as an empty string so callers don't need to guard.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// ByteString creates a slog.Attr with the given key and a string representation of the byte slice value.
// It is mostly used to log raw frames and message payloads.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyEndpoint is the key for the request endpoint attribute.
	KeyEndpoint = "endpoint"
	// KeyChannel is the key for the signal channel attribute.
	KeyChannel = "channel"
	// KeySubscription is the key for the subscription id attribute.
	KeySubscription = "subscription"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Endpoint creates a slog.Attr for the path or URL a request was sent to.
func Endpoint(endpoint string) slog.Attr {
	return slog.String(KeyEndpoint, endpoint)
}

// Channel creates a slog.Attr for a signal channel name.
func Channel(name string) slog.Attr {
	return slog.String(KeyChannel, name)
}

// Subscription creates a slog.Attr for a subscription id.
func Subscription(id string) slog.Attr {
	return slog.String(KeySubscription, id)
}
