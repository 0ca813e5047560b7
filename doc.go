// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnswire is a minimal DNS client message encoder and decoder.
//
// [Header] and [Question] implement the bit-exact wire format of the
// fixed 12-byte DNS header and of a single question. [Cursor] is the
// bounded reader used by [DecodeHeader] and [DecodeQuestion].
//
// [NewQuery] and [*Query] allow constructing and packing a DNS query
// message. [ParseResponse] and [*Response] allow decoding and validating
// the header and the echoed question of a raw DNS response.
//
// This package does not parse resource records and does not support
// name compression. We use [github.com/miekg/dns] only for its constants
// and mnemonic tables.
package dnswire
