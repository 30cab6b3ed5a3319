// Package frame splits an arbitrarily chunked byte stream into newline-delimited records.
//
// A record is only emitted once its trailing newline has been seen, or once the stream has
// ended. Records are trimmed of surrounding whitespace and empty records are dropped. The
// decoder works on bytes, so a multi-byte UTF-8 sequence split across two chunks is put back
// together before it is ever turned into text.
package frame

import (
	"bytes"
	"iter"
)

const delimiter = '\n'

// Decoder holds the unterminated tail of the stream seen so far.
// It is not safe for concurrent use; each stream owns its own Decoder.
type Decoder struct {
	buf []byte
}

// Feed appends chunk to the buffer and returns every record it completed, in order.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []string
	for {
		i := bytes.IndexByte(d.buf, delimiter)
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(d.buf[:i]); len(line) > 0 {
			frames = append(frames, string(line))
		}
		d.buf = d.buf[i+1:]
	}

	// reclaim the consumed prefix once the buffer drained
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
	return frames
}

// Flush returns the final record held in the buffer, if any, and resets the decoder.
// Call it once the underlying stream reported its end.
func (d *Decoder) Flush() (string, bool) {
	line := bytes.TrimSpace(d.buf)
	d.buf = nil
	if len(line) == 0 {
		return "", false
	}
	return string(line), true
}

// Buffered reports how many bytes are waiting for a delimiter.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Split turns a sequence of chunks into a sequence of records.
// The returned sequence is lazy and single-use: it pulls the next chunk only when the
// consumer asks for the next record. The producer may reuse the chunk slice between yields.
// Whatever is buffered when chunks ends is flushed as the last record.
func Split(chunks iter.Seq[[]byte]) iter.Seq[string] {
	return func(yield func(string) bool) {
		var d Decoder
		for chunk := range chunks {
			for _, f := range d.Feed(chunk) {
				if !yield(f) {
					return
				}
			}
		}
		if f, ok := d.Flush(); ok {
			yield(f)
		}
	}
}
