//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/encoder.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/query.go
//

package dnswire

import (
	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	// QueryFlagNoRecursion clears the RD bit in the query header.
	QueryFlagNoRecursion = 1 << iota
)

// QueryMaxResponseSizeUDP is the maximum size of a DNS response over UDP
// without EDNS(0), hence the smallest receive buffer that is always large enough.
const QueryMaxResponseSizeUDP = 512

// Query is a DNS query containing exactly one question.
//
// Construct using [NewQuery] or set the MANDATORY fields.
type Query struct {
	// Flags OPTIONALLY modify the query flags.
	//
	// Use [QueryFlagNoRecursion].
	Flags uint16

	// ID is the OPTIONAL query ID.
	ID uint16

	// Name is the MANDATORY domain name to query.
	Name string

	// Type is the MANDATORY query type.
	Type uint16

	// Class is the query class. Zero means [dns.ClassINET].
	Class uint16
}

// NewQuery constructs a new [*Query] with safe defaults.
//
// By default, the query uses a randomized ID, the IN class
// and requests recursion.
func NewQuery(name string, qtype uint16) *Query {
	return &Query{
		Flags: 0,
		ID:    dns.Id(),
		Name:  name,
		Type:  qtype,
		Class: dns.ClassINET,
	}
}

// Clone returns a deep copy of the query.
func (q *Query) Clone() *Query {
	return &Query{
		Flags: q.Flags,
		ID:    q.ID,
		Name:  q.Name,
		Type:  q.Type,
		Class: q.Class,
	}
}

// Header returns the [Header] of the query message.
func (q *Query) Header() Header {
	return Header{
		ID:               q.ID,
		Opcode:           dns.OpcodeQuery,
		RecursionDesired: q.Flags&QueryFlagNoRecursion == 0,
		QDCount:          1,
	}
}

// Question returns the [Question] of the query message.
//
// The name is converted to its IDNA ASCII form.
func (q *Query) Question() (Question, error) {
	punyName, err := idna.Lookup.ToASCII(q.Name)
	if err != nil {
		return Question{}, err
	}
	qclass := q.Class
	if qclass == 0 {
		qclass = dns.ClassINET
	}
	return Question{Name: punyName, Type: q.Type, Class: qclass}, nil
}

// Pack returns the wire representation of the query: the
// encoded header followed by the encoded question.
func (q *Query) Pack() ([]byte, error) {
	question, err := q.Question()
	if err != nil {
		return nil, err
	}
	rawQuestion, err := question.Encode()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 0, HeaderSize+len(rawQuestion))
	raw = q.Header().Append(raw)
	raw = append(raw, rawQuestion...)
	return raw, nil
}
