// SPDX-License-Identifier: GPL-3.0-or-later

// Command dnsquery sends a single DNS query over UDP and prints
// the header and question of the response.
//
// Usage:
//
//	dnsquery [flags] [name]
//
// Defaults for the flags are read from DNSQUERY_* environment variables.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bassosimone/dnswire"
	"github.com/bassosimone/dnswire/internal/config"
	"github.com/bassosimone/dnswire/internal/log"
	"github.com/bassosimone/dnswire/internal/transport"
	"github.com/miekg/dns"
)

// exchanger abstracts [*transport.UDPTransport] for testing.
type exchanger interface {
	Exchange(ctx context.Context, query []byte) ([]byte, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dnsquery: %v\n", err)
		os.Exit(1)
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "dnsquery: %v\n", err)
		os.Exit(1)
	}

	var (
		server   = flag.String("server", cfg.Server, "DNS server HOST:PORT")
		qtype    = flag.String("type", "A", "Query type (mnemonic or numeric)")
		timeout  = flag.Duration("timeout", cfg.Timeout, "Timeout for the whole exchange")
		recvSize = flag.Int("recv-size", cfg.RecvSize, "UDP receive buffer size")
		dump     = flag.String("dump", "", "Write a hex dump of the query and response to this file")
		norec    = flag.Bool("norec", false, "Do not request recursion")
	)
	flag.Parse()

	cfg.Server, cfg.Timeout, cfg.RecvSize = *server, *timeout, *recvSize
	if err := config.Validate(cfg); err != nil {
		log.Error(map[string]any{"error": err.Error()}, "invalid flags")
		os.Exit(1)
	}

	name := "example.com"
	if flag.NArg() > 0 {
		name = flag.Arg(0)
	}
	t, err := parseType(*qtype)
	if err != nil {
		log.Error(map[string]any{"error": err.Error()}, "invalid query type")
		os.Exit(1)
	}

	query := dnswire.NewQuery(name, t)
	if *norec {
		query.Flags |= dnswire.QueryFlagNoRecursion
	}
	log.Debug(map[string]any{
		"server":    cfg.Server,
		"timeout":   cfg.Timeout.String(),
		"recv_size": cfg.RecvSize,
		"name":      name,
		"type":      dns.Type(t).String(),
	}, "prepared DNS query")

	txp := transport.NewUDPTransport(cfg.Server, cfg.Timeout, log.GetLogger())
	txp.RecvSize = cfg.RecvSize

	if err := run(context.Background(), txp, query, os.Stdout, *dump); err != nil {
		log.Error(map[string]any{
			"server": cfg.Server,
			"name":   name,
			"error":  err.Error(),
		}, "query failed")
		os.Exit(1)
	}
}

// run performs the query, optionally dumps the raw packets, and prints the result.
func run(ctx context.Context, txp exchanger, query *dnswire.Query, w io.Writer, dumpPath string) error {
	rawQuery, err := query.Pack()
	if err != nil {
		return err
	}

	rawResp, err := txp.Exchange(ctx, rawQuery)
	if err != nil {
		return err
	}

	if dumpPath != "" {
		if err := writeDump(dumpPath, rawQuery, rawResp); err != nil {
			return err
		}
	}

	resp, err := dnswire.ParseResponse(query, rawResp)
	if err != nil && !isRcodeError(err) {
		return err
	}
	if resp != nil {
		log.Info(map[string]any{
			"id":      resp.Header.ID,
			"answers": resp.Answers(),
		}, "got DNS response")
	}

	// RCODE errors still have a meaningful header and question to show,
	// and the validation in ParseResponse already succeeded for both.
	cursor := dnswire.NewCursor(rawResp)
	header, herr := dnswire.DecodeHeader(cursor)
	if herr != nil {
		return herr
	}
	fmt.Fprintf(w, "%s\n", header.String())
	if header.QDCount == 1 {
		question, qerr := dnswire.DecodeQuestion(cursor)
		if qerr != nil {
			return qerr
		}
		fmt.Fprintf(w, "\n;; QUESTION SECTION:\n;%s\n", question.String())
	}
	if header.Truncated {
		log.Warn(map[string]any{"id": header.ID}, "DNS response truncated")
		fmt.Fprintf(w, "\n;; response truncated\n")
	}
	return err
}

func isRcodeError(err error) bool {
	return errors.Is(err, dnswire.ErrNoName) ||
		errors.Is(err, dnswire.ErrNoData) ||
		errors.Is(err, dnswire.ErrServerMisbehaving) ||
		errors.Is(err, dnswire.ErrServerTemporarilyMisbehaving)
}

// parseType accepts either a mnemonic (e.g., "AAAA") or a number.
func parseType(s string) (uint16, error) {
	if t, ok := dns.StringToType[strings.ToUpper(s)]; ok {
		return t, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(s), "TYPE"), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown query type %q", s)
	}
	return uint16(v), nil
}

func writeDump(path string, query, resp []byte) error {
	var sb strings.Builder
	sb.WriteString(";; query\n")
	sb.WriteString(hex.Dump(query))
	sb.WriteString(";; response\n")
	sb.WriteString(hex.Dump(resp))
	return os.WriteFile(path, []byte(sb.String()), 0o600)
}
