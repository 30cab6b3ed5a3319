package frame

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunked(parts ...string) func(func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for _, p := range parts {
			if !yield([]byte(p)) {
				return
			}
		}
	}
}

// chunksOf cuts s into pieces of size n.
func chunksOf(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func TestDecoder(t *testing.T) {
	records := []string{`{"type":"stdout","data":"a"}`, `{"type":"stdout","data":"b"}`, `{"type":"exit","code":0}`}
	stream := strings.Join(records, "\n") + "\n"

	t.Run("any chunking yields the same records", func(t *testing.T) {
		for size := 1; size <= len(stream); size++ {
			got := slices.Collect(Split(chunked(chunksOf(stream, size)...)))
			require.Equal(t, records, got, "chunk size %d", size)
		}
	})

	t.Run("every split point yields the same records", func(t *testing.T) {
		for i := 0; i <= len(stream); i++ {
			got := slices.Collect(Split(chunked(stream[:i], stream[i:])))
			require.Equal(t, records, got, "split at %d", i)
		}
	})

	t.Run("crlf split mid delimiter", func(t *testing.T) {
		got := slices.Collect(Split(chunked("one\r", "\ntwo\r\n")))
		assert.Equal(t, []string{"one", "two"}, got)
	})

	t.Run("multiple delimiters in one chunk emit in order", func(t *testing.T) {
		var d Decoder
		assert.Equal(t, []string{"1", "2", "3"}, d.Feed([]byte("1\n2\n3\n4")))
		assert.Equal(t, 1, d.Buffered())
	})

	t.Run("partial line is held back", func(t *testing.T) {
		var d Decoder
		assert.Empty(t, d.Feed([]byte(`{"type":"std`)))
		assert.Equal(t, []string{`{"type":"stdout"}`}, d.Feed([]byte(`out"}`+"\n")))
	})

	t.Run("empty and blank lines are dropped", func(t *testing.T) {
		got := slices.Collect(Split(chunked("\n\n  \t\na\n \n", "\r\n", "b")))
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("trailing record without delimiter is flushed once", func(t *testing.T) {
		got := slices.Collect(Split(chunked("a\n", "b")))
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("trailing complete record is not duplicated on flush", func(t *testing.T) {
		got := slices.Collect(Split(chunked("a\nb\n")))
		assert.Equal(t, []string{"a", "b"}, got)

		var d Decoder
		assert.Equal(t, []string{"a"}, d.Feed([]byte("a\n")))
		_, ok := d.Flush()
		assert.False(t, ok)
	})

	t.Run("flush resets the decoder", func(t *testing.T) {
		var d Decoder
		d.Feed([]byte("tail"))
		f, ok := d.Flush()
		require.True(t, ok)
		assert.Equal(t, "tail", f)
		_, ok = d.Flush()
		assert.False(t, ok)
	})

	t.Run("multi-byte rune split across chunks", func(t *testing.T) {
		text := "héllo wörld"
		raw := []byte(text + "\n")
		// split inside the two-byte é
		got := slices.Collect(Split(chunked(string(raw[:2]), string(raw[2:]))))
		assert.Equal(t, []string{text}, got)
	})

	t.Run("early stop does not pull more chunks", func(t *testing.T) {
		pulled := 0
		src := func(yield func([]byte) bool) {
			for _, p := range []string{"a\n", "b\n", "c\n"} {
				pulled++
				if !yield([]byte(p)) {
					return
				}
			}
		}
		for f := range Split(src) {
			assert.Equal(t, "a", f)
			break
		}
		assert.Equal(t, 1, pulled)
	})

	t.Run("producer may reuse its read buffer", func(t *testing.T) {
		src := func(yield func([]byte) bool) {
			buf := make([]byte, 4)
			for _, p := range []string{`{"a"`, ":1}\n", `{"b"`, ":2}"} {
				n := copy(buf, p)
				if !yield(buf[:n]) {
					return
				}
			}
		}
		assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, slices.Collect(Split(src)))
	})

	t.Run("empty stream yields nothing", func(t *testing.T) {
		assert.Empty(t, slices.Collect(Split(chunked())))
	})
}
