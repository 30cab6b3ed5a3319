package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casualjim/hostlink"
	"github.com/casualjim/hostlink/commands"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type run struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

func execute(t *testing.T, baseURL, stdin string, args ...string) *run {
	t.Helper()
	t.Cleanup(func() { hostlink.Configure(hostlink.Config{}) })

	var r run
	cmd := newRootCmd(strings.NewReader(stdin), &r.stdout, &r.stderr)
	cmd.SetArgs(append([]string{"--base-url", baseURL, "--no-color"}, args...))
	r.err = cmd.ExecuteContext(context.Background())
	return &r
}

// commandHost answers every execution with the given NDJSON lines and records the request.
func commandHost(t *testing.T, lines ...string) (*httptest.Server, *[]byte) {
	t.Helper()
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != commands.Endpoint {
			http.NotFound(w, r)
			return
		}
		body, _ = io.ReadAll(r.Body)
		for _, l := range lines {
			_, _ = io.WriteString(w, l+"\n")
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func TestExecCommand(t *testing.T) {
	color.NoColor = true

	t.Run("prints output", func(t *testing.T) {
		srv, body := commandHost(t,
			`{"type":"stdout","data":"a"}`,
			`{"type":"stderr","data":"x"}`,
			`{"type":"stdout","data":"b"}`,
			`{"type":"exit","code":0}`,
		)
		r := execute(t, srv.URL, "", "exec", "--timeout", "2s", "--", "ls", "-la")
		require.NoError(t, r.err)

		assert.Equal(t, "a\nb\n", r.stdout.String())
		assert.Equal(t, "x\n", r.stderr.String())
		assert.Equal(t, "ls", gjson.GetBytes(*body, "command").String())
		assert.Equal(t, `["-la"]`, gjson.GetBytes(*body, "args").Raw)
		assert.EqualValues(t, 2000, gjson.GetBytes(*body, "timeoutMs").Int())
	})

	t.Run("streams output", func(t *testing.T) {
		srv, _ := commandHost(t,
			`{"type":"stdout","data":"a"}`,
			`{"type":"stderr","data":"x"}`,
			`{"type":"exit","code":0}`,
		)
		r := execute(t, srv.URL, "", "exec", "--stream", "--", "ls")
		require.NoError(t, r.err)
		assert.Equal(t, "a\n", r.stdout.String())
		assert.Equal(t, "x\n", r.stderr.String())
	})

	t.Run("exits with the command's code", func(t *testing.T) {
		srv, _ := commandHost(t, `{"type":"exit","code":3}`)
		r := execute(t, srv.URL, "", "exec", "--", "false")

		var exit *exitError
		require.ErrorAs(t, r.err, &exit)
		assert.Equal(t, 3, exit.code)
		assert.Equal(t, "exited: code 3\n", r.stderr.String())
	})

	t.Run("timeout exits with 124", func(t *testing.T) {
		srv, _ := commandHost(t, `{"type":"exit","code":null,"timedOut":true,"signal":"SIGTERM"}`)
		r := execute(t, srv.URL, "", "exec", "--stream", "--", "sleep", "10")

		var exit *exitError
		require.ErrorAs(t, r.err, &exit)
		assert.Equal(t, exitTimedOut, exit.code)
		assert.Equal(t, "exited: timed out, signal SIGTERM\n", r.stderr.String())
	})

	t.Run("reads stdin", func(t *testing.T) {
		srv, body := commandHost(t, `{"type":"exit","code":0}`)
		r := execute(t, srv.URL, "piped input", "exec", "--stdin", "-", "--", "cat")
		require.NoError(t, r.err)
		assert.Equal(t, "piped input", gjson.GetBytes(*body, "stdin").String())
	})

	t.Run("raw dumps events", func(t *testing.T) {
		srv, _ := commandHost(t, `{"type":"stdout","data":"hello"}`, `{"type":"exit","code":0}`)
		r := execute(t, srv.URL, "", "exec", "--raw", "--", "echo", "hello")
		require.NoError(t, r.err)
		assert.Contains(t, r.stdout.String(), "commands.Stdout")
		assert.Contains(t, r.stdout.String(), `"hello"`)
		assert.Contains(t, r.stdout.String(), "commands.Exit")
	})

	t.Run("verbose logs requests with the base url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
		t.Cleanup(func() {
			slog.SetDefault(prev)
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		})

		r := execute(t, srv.URL, "", "--verbose", "exec", "--", "uptime")
		require.Error(t, r.err)

		out := buf.String()
		assert.Contains(t, out, "host rejected request")
		assert.Contains(t, out, "base_url="+srv.URL)
		assert.Contains(t, out, "status=502")
	})

	t.Run("api errors are returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		r := execute(t, srv.URL, "", "exec", "--", "rm")
		var apiErr *hostlink.APIError
		require.ErrorAs(t, r.err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestSignalsCommand(t *testing.T) {
	color.NoColor = true

	var published []byte
	mux := http.NewServeMux()
	mux.HandleFunc("GET /signals", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"signal":"deploys","subscribers":2},{"signal":"alerts","subscribers":0}]`)
	})
	mux.HandleFunc("POST /signals/{name}", func(w http.ResponseWriter, r *http.Request) {
		published, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /signals/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"n\":1}\n\nevent: note\ndata: \"hi\"\n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("list", func(t *testing.T) {
		r := execute(t, srv.URL, "", "signals", "list")
		require.NoError(t, r.err)
		assert.Equal(t, "CHANNEL  SUBSCRIBERS\ndeploys  2\nalerts   0\n", r.stdout.String())
	})

	t.Run("publish", func(t *testing.T) {
		r := execute(t, srv.URL, "", "signals", "publish", "deploys", `{"version":"1.2.3"}`)
		require.NoError(t, r.err)
		assert.JSONEq(t, `{"version":"1.2.3"}`, string(published))
	})

	t.Run("publish rejects invalid json", func(t *testing.T) {
		r := execute(t, srv.URL, "", "signals", "publish", "deploys", `{version`)
		assert.ErrorContains(t, r.err, "payload is not valid JSON")
	})

	t.Run("listen until the host ends the stream", func(t *testing.T) {
		r := execute(t, srv.URL, "", "signals", "listen", "deploys")
		require.NoError(t, r.err)
		assert.Equal(t, "message {\"n\":1}\nnote \"hi\"\n", r.stdout.String())
	})

	t.Run("listen filters events", func(t *testing.T) {
		r := execute(t, srv.URL, "", "signals", "listen", "--event", "note", "deploys")
		require.NoError(t, r.err)
		assert.Equal(t, "note \"hi\"\n", r.stdout.String())
	})
}
