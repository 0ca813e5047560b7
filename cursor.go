// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
)

// Cursor is a bounded, forward-only reader over a DNS message.
//
// Construct using [NewCursor]. The cursor borrows the buffer, which
// MUST NOT be modified while the cursor is in use. A failed read never
// advances the cursor. A Cursor is not safe for concurrent use.
type Cursor struct {
	buf  []byte
	rest cryptobyte.String
}

// NewCursor returns a [*Cursor] positioned at the beginning of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf, rest: cryptobyte.String(buf)}
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return len(c.buf) - len(c.rest)
}

// Len returns the number of bytes that remain to be read.
func (c *Cursor) Len() int {
	return len(c.rest)
}

// ReadByte returns the next byte and advances the cursor by one.
func (c *Cursor) ReadByte() (byte, error) {
	var v uint8
	if !c.rest.ReadUint8(&v) {
		return 0, c.underrun(1)
	}
	return v, nil
}

// ReadUint16 reads a big-endian 16-bit integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	var v uint16
	if !c.rest.ReadUint16(&v) {
		return 0, c.underrun(2)
	}
	return v, nil
}

// ReadVec returns a copy of the next n bytes.
//
// The bounds are checked before copying, so on failure nothing is consumed.
func (c *Cursor) ReadVec(n int) ([]byte, error) {
	var v []byte
	if !c.rest.ReadBytes(&v, n) {
		return nil, c.underrun(n)
	}
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

// ReadLengthPrefixedString reads a one-byte length followed by that many
// bytes of UTF-8 text. The cursor only advances when the whole string has
// been read and validated.
func (c *Cursor) ReadLengthPrefixedString() (string, error) {
	rest := c.rest
	var v cryptobyte.String
	if !rest.ReadUint8LengthPrefixed(&v) {
		if len(c.rest) < 1 {
			return "", c.underrun(1)
		}
		return "", c.underrun(1 + int(c.rest[0]))
	}
	if !utf8.Valid(v) {
		return "", fmt.Errorf("%w: string at offset %d is not valid UTF-8", ErrInvalidEncoding, c.Offset())
	}
	c.rest = rest
	return string(v), nil
}

func (c *Cursor) underrun(want int) error {
	return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrBufferUnderrun, want, c.Offset(), c.Len())
}
