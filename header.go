// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"encoding/binary"
	"fmt"

	"github.com/miekg/dns"
)

// HeaderSize is the size of the DNS header in bytes.
const HeaderSize = 12

// Bit positions and masks of the sub-fields packed in the flags word:
//
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA|   Z    |   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	 15 14 13 12 11 10  9  8  7  6  5  4  3  2  1  0
const (
	headerShiftQR     = 15
	headerShiftOpcode = 11
	headerShiftAA     = 10
	headerShiftTC     = 9
	headerShiftRD     = 8
	headerShiftRA     = 7
	headerShiftZ      = 4

	headerMaskOpcode = 0x0f
	headerMaskZ      = 0x07
	headerMaskRcode  = 0x0f
)

// Header is the fixed-size header of a DNS message.
//
// Sub-fields narrower than their Go type are masked to their wire
// width by [Header.Encode]; values are never otherwise validated.
type Header struct {
	// ID is the transaction identifier.
	ID uint16

	// Response is the QR bit: false for queries, true for responses.
	Response bool

	// Opcode is the 4-bit operation code (0 is a standard query).
	Opcode uint8

	// Authoritative is the AA bit.
	Authoritative bool

	// Truncated is the TC bit.
	Truncated bool

	// RecursionDesired is the RD bit.
	RecursionDesired bool

	// RecursionAvailable is the RA bit.
	RecursionAvailable bool

	// Zero is the 3-bit reserved field, which round-trips unchanged.
	Zero uint8

	// Rcode is the 4-bit response code.
	Rcode uint8

	// QDCount is the number of entries in the question section.
	QDCount uint16

	// ANCount is the number of entries in the answer section.
	ANCount uint16

	// NSCount is the number of entries in the authority section.
	NSCount uint16

	// ARCount is the number of entries in the additional section.
	ARCount uint16
}

// Flags returns the 16-bit flags word packed from the header sub-fields.
func (h Header) Flags() uint16 {
	var flags uint16
	flags |= headerBit(h.Response) << headerShiftQR
	flags |= uint16(h.Opcode&headerMaskOpcode) << headerShiftOpcode
	flags |= headerBit(h.Authoritative) << headerShiftAA
	flags |= headerBit(h.Truncated) << headerShiftTC
	flags |= headerBit(h.RecursionDesired) << headerShiftRD
	flags |= headerBit(h.RecursionAvailable) << headerShiftRA
	flags |= uint16(h.Zero&headerMaskZ) << headerShiftZ
	flags |= uint16(h.Rcode & headerMaskRcode)
	return flags
}

func headerBit(v bool) uint16 {
	if v {
		return 1
	}
	return 0
}

// Encode returns the 12-byte wire representation of the header.
func (h Header) Encode() []byte {
	return h.Append(make([]byte, 0, HeaderSize))
}

// Append appends the wire representation of the header to b.
func (h Header) Append(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, h.ID)
	b = binary.BigEndian.AppendUint16(b, h.Flags())
	b = binary.BigEndian.AppendUint16(b, h.QDCount)
	b = binary.BigEndian.AppendUint16(b, h.ANCount)
	b = binary.BigEndian.AppendUint16(b, h.NSCount)
	b = binary.BigEndian.AppendUint16(b, h.ARCount)
	return b
}

// DecodeHeader reads a [Header] from the cursor.
//
// On failure the cursor is left wherever the failing read stopped, so
// callers should not try to resume decoding with the same cursor.
func DecodeHeader(c *Cursor) (Header, error) {
	var h Header
	var err error

	// 1. transaction ID
	if h.ID, err = c.ReadUint16(); err != nil {
		return Header{}, err
	}

	// 2. the two flag bytes
	hi, err := c.ReadByte()
	if err != nil {
		return Header{}, err
	}
	lo, err := c.ReadByte()
	if err != nil {
		return Header{}, err
	}
	h.setFlags(uint16(hi)<<8 | uint16(lo))

	// 3. the section counts
	for _, count := range []*uint16{&h.QDCount, &h.ANCount, &h.NSCount, &h.ARCount} {
		if *count, err = c.ReadUint16(); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

func (h *Header) setFlags(flags uint16) {
	h.Response = flags>>headerShiftQR&1 != 0
	h.Opcode = uint8(flags >> headerShiftOpcode & headerMaskOpcode)
	h.Authoritative = flags>>headerShiftAA&1 != 0
	h.Truncated = flags>>headerShiftTC&1 != 0
	h.RecursionDesired = flags>>headerShiftRD&1 != 0
	h.RecursionAvailable = flags>>headerShiftRA&1 != 0
	h.Zero = uint8(flags >> headerShiftZ & headerMaskZ)
	h.Rcode = uint8(flags & headerMaskRcode)
}

// String returns a dig-like summary of the header.
func (h Header) String() string {
	return fmt.Sprintf(
		";; opcode: %s, status: %s, id: %d\n;; flags:%s; QUERY: %d, ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d",
		headerMnemonic(dns.OpcodeToString, int(h.Opcode&headerMaskOpcode)),
		headerMnemonic(dns.RcodeToString, int(h.Rcode&headerMaskRcode)),
		h.ID,
		h.flagNames(),
		h.QDCount, h.ANCount, h.NSCount, h.ARCount,
	)
}

func headerMnemonic(table map[int]string, v int) string {
	if s, ok := table[v]; ok {
		return s
	}
	return fmt.Sprintf("%d", v)
}

func (h Header) flagNames() (out string) {
	for _, f := range []struct {
		set  bool
		name string
	}{
		{h.Response, "qr"},
		{h.Authoritative, "aa"},
		{h.Truncated, "tc"},
		{h.RecursionDesired, "rd"},
		{h.RecursionAvailable, "ra"},
	} {
		if f.set {
			out += " " + f.name
		}
	}
	return
}
