// SPDX-License-Identifier: GPL-3.0-or-later

// Package transport exchanges raw DNS messages with a resolver over UDP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bassosimone/dnswire"
	"github.com/bassosimone/dnswire/internal/log"
)

// ErrShortResponse means that the datagram received from the
// server cannot even contain a DNS header.
var ErrShortResponse = errors.New("short DNS response")

// UDPTransport sends one query and receives one response over UDP.
//
// There is no retry: the caller decides what to do on failure.
type UDPTransport struct {
	// Server is the MANDATORY HOST:PORT of the resolver.
	Server string

	// Timeout OPTIONALLY bounds the exchange when the
	// context has no earlier deadline.
	Timeout time.Duration

	// RecvSize is the OPTIONAL size of the receive buffer. Zero
	// means [dnswire.QueryMaxResponseSizeUDP].
	RecvSize int

	// Logger is the OPTIONAL logger. Nil means no logging.
	Logger log.Logger

	// Dialer is the OPTIONAL dialer. Nil means a zero [net.Dialer].
	Dialer *net.Dialer
}

// NewUDPTransport returns a [*UDPTransport] for the given server.
func NewUDPTransport(server string, timeout time.Duration, logger log.Logger) *UDPTransport {
	return &UDPTransport{
		Server:   server,
		Timeout:  timeout,
		RecvSize: dnswire.QueryMaxResponseSizeUDP,
		Logger:   logger,
	}
}

// Exchange sends the raw query and returns the first datagram received in
// response. The returned buffer is owned by the caller.
func (t *UDPTransport) Exchange(ctx context.Context, query []byte) ([]byte, error) {
	logger := t.logger()

	// 1. bound the exchange
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	// 2. create the connected socket
	dialer := t.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(ctx, "udp", t.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", t.Server, err)
	}
	defer conn.Close()

	// 3. make sure we unblock when the context is done
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	// 4. send the query
	logger.Debug(map[string]any{
		"server": t.Server,
		"local":  conn.LocalAddr().String(),
		"bytes":  len(query),
	}, "sending DNS query")
	if _, err := conn.Write(query); err != nil {
		return nil, t.wrapErr(ctx, "write", err)
	}

	// 5. receive the response
	buf := make([]byte, t.recvSize())
	n, err := conn.Read(buf)
	if err != nil {
		return nil, t.wrapErr(ctx, "read", err)
	}
	logger.Debug(map[string]any{
		"server": t.Server,
		"bytes":  n,
	}, "received DNS response")

	if n < dnswire.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortResponse, n)
	}
	return buf[:n], nil
}

func (t *UDPTransport) wrapErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	t.logger().Warn(map[string]any{
		"server": t.Server,
		"op":     op,
		"error":  err.Error(),
	}, "DNS exchange failed")
	return fmt.Errorf("failed to %s %s: %w", op, t.Server, err)
}

func (t *UDPTransport) logger() log.Logger {
	if t.Logger == nil {
		return log.NewNoopLogger()
	}
	return t.Logger
}

func (t *UDPTransport) recvSize() int {
	if t.RecvSize <= 0 {
		return dnswire.QueryMaxResponseSizeUDP
	}
	return t.RecvSize
}
