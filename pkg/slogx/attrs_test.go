package slogx

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type named string

func (n named) String() string { return "named:" + string(n) }

func TestAttrs(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		attr := Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, "boom", attr.Value.String())
	})

	t.Run("nil error", func(t *testing.T) {
		attr := Error(nil)
		assert.Equal(t, slog.KindString, attr.Value.Kind())
		assert.Empty(t, attr.Value.String())
	})

	t.Run("byte string", func(t *testing.T) {
		attr := ByteString("frame", []byte(`{"a":1}`))
		assert.Equal(t, `{"a":1}`, attr.Value.String())
	})

	t.Run("stringer", func(t *testing.T) {
		attr := Stringer("value", named("x"))
		assert.Equal(t, "named:x", attr.Value.String())
	})

	t.Run("domain keys", func(t *testing.T) {
		assert.Equal(t, KeyLoggerName, LoggerName("hostlink").Key)
		assert.Equal(t, KeyEndpoint, Endpoint("/signals").Key)
		assert.Equal(t, KeyChannel, Channel("ping").Key)
		assert.Equal(t, KeySubscription, Subscription("abc").Key)
		assert.Equal(t, "ping", Channel("ping").Value.String())
	})
}
