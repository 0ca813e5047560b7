// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/crypto/cryptobyte"
)

const (
	// MaxLabelLength is the maximum length of a single label.
	MaxLabelLength = 63

	// MaxNameLength is the maximum length of an encoded name,
	// including the length bytes and the terminating zero byte.
	MaxNameLength = 255
)

// Question is an entry of the question section of a DNS message.
type Question struct {
	// Name is the domain name, with or without a trailing dot.
	Name string

	// Type is the query type (e.g., [dns.TypeA]).
	Type uint16

	// Class is the query class (usually [dns.ClassINET]).
	Class uint16
}

// Encode returns the wire representation of the question.
//
// Each label is written as a length byte followed by the label bytes,
// then a zero byte, then the big-endian type and class. Empty labels,
// labels longer than [MaxLabelLength], and names whose encoding exceeds
// [MaxNameLength] cause an error wrapping [ErrEncoding].
func (q Question) Encode() ([]byte, error) {
	labels, err := questionSplitName(q.Name)
	if err != nil {
		return nil, err
	}

	b := cryptobyte.NewBuilder(make([]byte, 0, questionEncodedLen(labels)))
	for _, label := range labels {
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes([]byte(label))
		})
	}
	b.AddUint8(0)
	b.AddUint16(q.Type)
	b.AddUint16(q.Class)
	return b.Bytes()
}

// questionSplitName splits name into labels enforcing the wire limits.
func questionSplitName(name string) ([]string, error) {
	// 1. a single trailing dot denotes the root and the
	// empty name is the root itself
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return nil, nil
	}

	// 2. validate each label
	labels := strings.Split(name, ".")
	for _, label := range labels {
		if label == "" {
			return nil, fmt.Errorf("%w: empty label in %q", ErrEncoding, name)
		}
		if len(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: label too long (%d > %d): %q", ErrEncoding, len(label), MaxLabelLength, label)
		}
	}

	// 3. validate the overall length
	if size := questionNameLen(labels); size > MaxNameLength {
		return nil, fmt.Errorf("%w: name too long (%d > %d)", ErrEncoding, size, MaxNameLength)
	}
	return labels, nil
}

func questionNameLen(labels []string) int {
	size := 1
	for _, label := range labels {
		size += len(label) + 1
	}
	return size
}

func questionEncodedLen(labels []string) int {
	return questionNameLen(labels) + 4
}

// DecodeQuestion reads a [Question] from the cursor.
//
// Compressed names are not supported: a label length byte with either
// of the two high bits set causes an error wrapping [ErrInvalidEncoding].
func DecodeQuestion(c *Cursor) (Question, error) {
	var (
		labels []string
		size   = 1
	)
	for {
		// 1. peek at the length byte to reject pointers before reading
		if c.Len() > 0 && c.rest[0]&0xc0 != 0 {
			return Question{}, fmt.Errorf("%w: unsupported label type 0x%02x at offset %d",
				ErrInvalidEncoding, c.rest[0], c.Offset())
		}

		// 2. read the label, where the empty label terminates the name
		label, err := c.ReadLengthPrefixedString()
		if err != nil {
			return Question{}, err
		}
		if label == "" {
			break
		}

		// 3. a dot would be indistinguishable from a label separator
		if strings.IndexByte(label, '.') >= 0 {
			return Question{}, fmt.Errorf("%w: label %q contains a dot", ErrInvalidEncoding, label)
		}
		if size += len(label) + 1; size > MaxNameLength {
			return Question{}, fmt.Errorf("%w: name too long (%d > %d)", ErrInvalidEncoding, size, MaxNameLength)
		}
		labels = append(labels, label)
	}

	// 4. read type and class
	qtype, err := c.ReadUint16()
	if err != nil {
		return Question{}, err
	}
	qclass, err := c.ReadUint16()
	if err != nil {
		return Question{}, err
	}
	return Question{Name: strings.Join(labels, "."), Type: qtype, Class: qclass}, nil
}

// String returns the question formatted like in a zone file.
func (q Question) String() string {
	return fmt.Sprintf("%s\t%s\t%s", dns.Fqdn(q.Name), dns.Class(q.Class).String(), dns.Type(q.Type).String())
}
