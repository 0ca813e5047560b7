// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bassosimone/dnswire"
	"github.com/bassosimone/dnswire/internal/log"
	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

type exchangerFunc func(ctx context.Context, query []byte) ([]byte, error)

func (f exchangerFunc) Exchange(ctx context.Context, query []byte) ([]byte, error) {
	return f(ctx, query)
}

// replyWith returns an exchanger answering with the given rcode.
func replyWith(rcode int) exchangerFunc {
	return func(ctx context.Context, query []byte) ([]byte, error) {
		msg := new(dns.Msg)
		if err := msg.Unpack(query); err != nil {
			return nil, err
		}
		resp := new(dns.Msg)
		resp.SetRcode(msg, rcode)
		resp.RecursionAvailable = true
		return resp.Pack()
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
		wantErr  bool
	}{
		{"A", dns.TypeA, false},
		{"aaaa", dns.TypeAAAA, false},
		{"MX", dns.TypeMX, false},
		{"28", dns.TypeAAAA, false},
		{"TYPE65", 65, false},
		{"NOPE", 0, true},
		{"70000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestRun(t *testing.T) {
	query := dnswire.NewQuery("example.com", dns.TypeA)
	query.ID = 37

	var out strings.Builder
	err := run(context.Background(), replyWith(dns.RcodeSuccess), query, &out, "")
	require.NoError(t, err)

	expected := ";; opcode: QUERY, status: NOERROR, id: 37\n" +
		";; flags: qr rd ra; QUERY: 1, ANSWER: 0, AUTHORITY: 0, ADDITIONAL: 0\n" +
		"\n;; QUESTION SECTION:\n;example.com.\tIN\tA\n"
	require.Equal(t, expected, out.String())
}

func TestRunRcodeError(t *testing.T) {
	query := dnswire.NewQuery("nonexistent.example", dns.TypeA)

	var out strings.Builder
	err := run(context.Background(), replyWith(dns.RcodeNameError), query, &out, "")
	require.ErrorIs(t, err, dnswire.ErrNoName)
	require.Contains(t, out.String(), "status: NXDOMAIN")
	require.Contains(t, out.String(), "\n;; QUESTION SECTION:\n;nonexistent.example.\tIN\tA\n")
}

func TestRunServerFailureShowsQuestion(t *testing.T) {
	query := dnswire.NewQuery("example.com", dns.TypeAAAA)

	var out strings.Builder
	err := run(context.Background(), replyWith(dns.RcodeServerFailure), query, &out, "")
	require.ErrorIs(t, err, dnswire.ErrServerTemporarilyMisbehaving)
	require.Contains(t, out.String(), "status: SERVFAIL")
	require.Contains(t, out.String(), ";example.com.\tIN\tAAAA\n")
}

// recordingLogger keeps the messages logged at each level.
type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *recordingLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *recordingLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *recordingLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }

func TestRunLogsResponse(t *testing.T) {
	orig := log.GetLogger()
	defer log.SetLogger(orig)
	rec := &recordingLogger{}
	log.SetLogger(rec)

	truncated := exchangerFunc(func(ctx context.Context, q []byte) ([]byte, error) {
		msg := new(dns.Msg)
		if err := msg.Unpack(q); err != nil {
			return nil, err
		}
		resp := new(dns.Msg)
		resp.SetReply(msg)
		resp.RecursionAvailable = true
		resp.Truncated = true
		return resp.Pack()
	})

	var out strings.Builder
	require.NoError(t, run(context.Background(), truncated, dnswire.NewQuery("example.com", dns.TypeA), &out, ""))
	require.Equal(t, []string{"INFO:got DNS response", "WARN:DNS response truncated"}, rec.entries)
	require.Contains(t, out.String(), ";; response truncated\n")
}

func TestRunExchangeError(t *testing.T) {
	expected := errors.New("mocked error")
	fail := exchangerFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, expected
	})

	var out strings.Builder
	err := run(context.Background(), fail, dnswire.NewQuery("example.com", dns.TypeA), &out, "")
	require.ErrorIs(t, err, expected)
	require.Empty(t, out.String())
}

func TestRunInvalidResponse(t *testing.T) {
	query := dnswire.NewQuery("example.com", dns.TypeA)
	echo := exchangerFunc(func(_ context.Context, q []byte) ([]byte, error) {
		return q, nil
	})

	var out strings.Builder
	err := run(context.Background(), echo, query, &out, "")
	require.ErrorIs(t, err, dnswire.ErrInvalidResponse)
}

func TestRunDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packets.txt")
	query := dnswire.NewQuery("example.com", dns.TypeA)

	var out strings.Builder
	require.NoError(t, run(context.Background(), replyWith(dns.RcodeSuccess), query, &out, path))

	data := string(runtimex.PanicOnError1(os.ReadFile(path)))
	require.Contains(t, data, ";; query\n")
	require.Contains(t, data, ";; response\n")
	require.Contains(t, data, "07 65 78 61")
}
