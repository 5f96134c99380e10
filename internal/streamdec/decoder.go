// Package streamdec turns a chunked byte stream into UTF-8 text fragments
// without ever splitting a multi-byte character.
package streamdec

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"pkt.systems/notechat/schema"
)

// ErrInvalidUTF8 marks bytes that can never form valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

const defaultReadSize = 4096

// Decoder yields decoded text fragments from a reader. It is single-use.
type Decoder struct {
	reader  io.Reader
	buf     []byte
	pending []byte
	eof     bool
	done    bool
}

// NewDecoder wraps reader. size is the maximum number of bytes read per call;
// zero selects a default.
func NewDecoder(reader io.Reader, size int) *Decoder {
	if size <= 0 {
		size = defaultReadSize
	}
	return &Decoder{reader: reader, buf: make([]byte, size)}
}

// Next returns the next non-empty fragment. It returns io.EOF once the
// underlying stream is exhausted and every complete character was delivered.
func (d *Decoder) Next(ctx context.Context) (string, error) {
	if d.done {
		return "", io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if d.eof {
			d.done = true
			if len(d.pending) > 0 {
				trailing := append([]byte(nil), d.pending...)
				d.pending = nil
				return "", &schema.DecodeError{Op: "decode stream", Trailing: trailing, Err: io.ErrUnexpectedEOF}
			}
			return "", io.EOF
		}
		n, err := d.reader.Read(d.buf)
		if errors.Is(err, io.EOF) {
			d.eof = true
		} else if err != nil {
			d.done = true
			return "", schema.NewTransportError("read reply", err)
		}
		if n == 0 {
			continue
		}
		data := append(d.pending, d.buf[:n]...)
		cut := len(data) - incompleteTail(data)
		if !utf8.Valid(data[:cut]) {
			d.done = true
			d.pending = nil
			return "", &schema.DecodeError{Op: "decode stream", Err: ErrInvalidUTF8}
		}
		// copy the tail so the next read does not alias it
		d.pending = append([]byte(nil), data[cut:]...)
		if cut > 0 {
			return string(data[:cut]), nil
		}
	}
}

// incompleteTail reports how many trailing bytes start a multi-byte
// sequence that has not been fully received yet.
func incompleteTail(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		b := data[len(data)-i]
		if b < utf8.RuneSelf {
			return 0
		}
		if !utf8.RuneStart(b) {
			continue
		}
		if sequenceLength(b) > i {
			return i
		}
		return 0
	}
	return 0
}

func sequenceLength(lead byte) int {
	switch {
	case lead >= 0xF0:
		return 4
	case lead >= 0xE0:
		return 3
	case lead >= 0xC0:
		return 2
	default:
		return 1
	}
}
