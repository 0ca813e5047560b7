//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/decoder.go
// Adapted from: https://github.com/golang/go/blob/go1.21.10/src/net/dnsclient_unix.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/response.go
//

package dnswire

import (
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// Additional errors emitted by [ValidateResponseForQuery].
var (
	// ErrInvalidQuery means that the query cannot be packed.
	ErrInvalidQuery = errors.New("invalid query")
)

// ValidateResponseForQuery validates the header of a DNS response for a given query.
func ValidateResponseForQuery(query *Query, resp Header) error {
	// 1. make sure the message is actually a response
	if !resp.Response {
		return ErrInvalidResponse
	}

	// 2. make sure the response ID matches the query ID
	if resp.ID != query.ID {
		return ErrInvalidResponse
	}

	// 3. make sure the response answers a standard query
	if resp.Opcode != dns.OpcodeQuery {
		return ErrInvalidResponse
	}

	// 4. make sure the response echoes at most our single question
	if resp.QDCount > 1 {
		return ErrInvalidResponse
	}
	return nil
}

// ValidateQuestionForQuery makes sure that the question echoed by
// the response matches the question we sent.
func ValidateQuestionForQuery(query, resp Question) error {
	if !responseEqualASCIIName(dns.Fqdn(resp.Name), dns.Fqdn(query.Name)) {
		return ErrInvalidResponse
	}
	if resp.Class != query.Class {
		return ErrInvalidResponse
	}
	if resp.Type != query.Type {
		return ErrInvalidResponse
	}
	return nil
}

// SPDX-License-Identifier: BSD-3-Clause
//
// Borrowed from Go src/net package.
func responseEqualASCIIName(x, y string) bool {
	if len(x) != len(y) {
		return false
	}
	for i := 0; i < len(x); i++ {
		a := x[i]
		b := y[i]
		if 'A' <= a && a <= 'Z' {
			a += 0x20
		}
		if 'A' <= b && b <= 'Z' {
			b += 0x20
		}
		if a != b {
			return false
		}
	}
	return true
}

// These error messages use the same suffixes used by the Go standard library.
var (
	// ErrCannotUnmarshalMessage indicates that we cannot unmarshal a DNS message.
	ErrCannotUnmarshalMessage = errors.New("cannot unmarshal DNS message")

	// ErrInvalidResponse means that the response is not a response message
	// or does not match the query.
	ErrInvalidResponse = errors.New("invalid DNS response")

	// ErrNoName indicates that the server response code is NXDOMAIN.
	ErrNoName = errors.New("no such host")

	// ErrServerMisbehaving indicates that the server response code is
	// neither 0, nor NXDOMAIN, nor SERVFAIL.
	ErrServerMisbehaving = errors.New("server misbehaving")

	// ErrServerTemporarilyMisbehaving indicates that the server answer is SERVFAIL.
	//
	// The error message is same as [ErrServerMisbehaving] for compatibility with the
	// Go standard library, which assigns the same error string to both errors.
	ErrServerTemporarilyMisbehaving = errors.New("server misbehaving")

	// ErrNoData indicates that there is no pertinent answer in the response.
	ErrNoData = errors.New("no answer from DNS server")
)

// ResponseErrorFromRCODE maps the RCODE inside a valid DNS response
// header to an error string using a suffix compatible with the error
// strings returned by [*net.Resolver].
//
// For example, if a domain does not exist, the error
// will use the "no such host" suffix.
//
// If the RCODE is zero and the response is not a lame
// referral, this function returns nil.
//
// Before invoking this function, make sure the response is valid
// for the request by calling [ValidateResponseForQuery].
func ResponseErrorFromRCODE(resp Header) error {
	// 1. handle NXDOMAIN case by mapping it to EAI_NONAME
	if resp.Rcode == dns.RcodeNameError {
		return ErrNoName
	}

	// 2. handle the case of lame referral by mapping it to EAI_NODATA
	if resp.Rcode == dns.RcodeSuccess &&
		!resp.Authoritative &&
		!resp.RecursionAvailable &&
		resp.ANCount == 0 {
		return ErrNoData
	}

	// 3. handle any other error by mapping to EAI_FAIL
	if resp.Rcode != dns.RcodeSuccess {
		if resp.Rcode == dns.RcodeServerFailure {
			return ErrServerTemporarilyMisbehaving
		}
		return ErrServerMisbehaving
	}
	return nil
}

// Response is a DNS response.
//
// Construct a new instance using [ParseResponse].
type Response struct {
	// Query is the original query.
	Query *Query

	// Header is the decoded response header.
	Header Header

	// Question is the question echoed by the response, if any.
	Question Question

	// Raw contains the raw response bytes.
	Raw []byte
}

// ParseResponse returns a [*Response] given a query and the raw response
// bytes or an error if the response cannot be decoded or is not valid for
// the query.
//
// Only the header and the question section are decoded.
func ParseResponse(query *Query, raw []byte) (*Response, error) {
	// 1. decode and validate the header
	cursor := NewCursor(raw)
	header, err := DecodeHeader(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotUnmarshalMessage, err)
	}
	if err := ValidateResponseForQuery(query, header); err != nil {
		return nil, err
	}

	// 2. decode and validate the echoed question, if any
	var question Question
	if header.QDCount == 1 {
		question, err = DecodeQuestion(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCannotUnmarshalMessage, err)
		}
		expected, err := query.Question()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		if err := ValidateQuestionForQuery(expected, question); err != nil {
			return nil, err
		}
	}

	// 3. map the response code
	if err := ResponseErrorFromRCODE(header); err != nil {
		return nil, err
	}

	rp := &Response{
		Query:    query,
		Header:   header,
		Question: question,
		Raw:      raw,
	}
	return rp, nil
}

// Answers returns the number of answer records announced by the header.
func (r *Response) Answers() int {
	return int(r.Header.ANCount)
}

// Truncated returns whether the server truncated the response.
func (r *Response) Truncated() bool {
	return r.Header.Truncated
}
