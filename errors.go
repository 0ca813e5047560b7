// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import "errors"

// Errors emitted by the [*Cursor] and by the header and question codecs.
//
// Returned errors wrap these values with context, so use [errors.Is].
var (
	// ErrBufferUnderrun means that a read needs more bytes than remain in the buffer.
	ErrBufferUnderrun = errors.New("buffer underrun")

	// ErrInvalidEncoding means that the bytes read cannot be interpreted
	// as required (e.g., a label that is not valid UTF-8).
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrEncoding means that a value cannot be represented in wire format
	// (e.g., a label longer than 63 bytes).
	ErrEncoding = errors.New("cannot encode")
)
