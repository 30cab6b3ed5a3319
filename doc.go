/*
Package hostlink is the Go SDK core for talking to a long-running local host process over HTTP.

The host exposes plain JSON request/response endpoints for most of its surface, plus two kinds
of streams that need real protocol handling:

  - chunked NDJSON responses, used to stream the output of child processes (see package ndjson
    and package commands)
  - Server-Sent Events, used for pub/sub signal channels and entity event feeds (see package sse
    and package signals)

# Configuration

The base URL of the host is process-wide configuration. Set it once at startup, before any
client issues a request:

	hostlink.Configure(hostlink.ConfigFromEnv())

A client reads the current configuration when it builds a request. A client created with
WithBaseURL ignores the process-wide value:

	c := hostlink.New(hostlink.WithBaseURL("http://127.0.0.1:3100"))

# Errors

Every call reports failures through a small taxonomy:

  - *APIError: the host answered with a non-success status
  - *MalformedFrameError: a streamed record was not valid JSON
  - *TransportError: the connection failed or closed before the stream was complete
  - *CanceledError: the caller's context ended a non-streaming call

Streaming calls treat cancellation as a clean end of the sequence rather than an error.
*/
package hostlink
