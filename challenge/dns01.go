// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package challenge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"cloudeng.io/logging/ctxlog"
	"github.com/miekg/dns"
)

// TXTLookupFunc looks up the TXT records for fqdn and returns their
// values.
type TXTLookupFunc func(ctx context.Context, fqdn string) ([]string, error)

// DNS01Prompt solves DNS-01 challenges interactively: it prints the
// TXT record the operator must create, waits for confirmation and then
// verifies that the record is visible before the CA is asked to
// validate it.
type DNS01Prompt struct {
	// In and Out are the operator's terminal, typically os.Stdin and
	// os.Stdout.
	In  io.Reader
	Out io.Writer
	// Lookup is used to verify the TXT record; LookupTXT is used if nil.
	Lookup TXTLookupFunc
	// Retries is the number of verification attempts before giving up,
	// with a short pause between attempts. Defaults to 5.
	Retries int
}

// Type implements Solver.
func (d *DNS01Prompt) Type() string { return TypeDNS01 }

// Sequential marks the solver as interactive, one challenge at a time.
func (d *DNS01Prompt) Sequential() bool { return true }

// RecordName returns the name of the TXT record used to validate the
// supplied domain.
func RecordName(domain string) string {
	return "_acme-challenge." + domain
}

// Present implements Solver.
func (d *DNS01Prompt) Present(ctx context.Context, domain, _, response string) error {
	name := RecordName(domain)
	fmt.Fprintf(d.Out, "Please create a TXT record for %v with the value:\n\n  %v\n\nPress enter to continue\n", name, response)
	lines := bufio.NewScanner(d.In)
	if !lines.Scan() {
		if err := lines.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no confirmation received for the TXT record for %v", name)
	}
	return d.verify(ctx, name, response)
}

// CleanUp implements Solver. The record was created by the operator so
// removal is left to them too.
func (d *DNS01Prompt) CleanUp(ctx context.Context, domain, _ string) error {
	ctxlog.Info(ctx, "the TXT record is no longer needed and can be removed", "record", RecordName(domain))
	return nil
}

func (d *DNS01Prompt) verify(ctx context.Context, name, response string) error {
	lookup := d.Lookup
	if lookup == nil {
		lookup = LookupTXT
	}
	retries := d.Retries
	if retries <= 0 {
		retries = 5
	}
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
		var values []string
		values, err = lookup(ctx, dns.Fqdn(name))
		if err != nil {
			continue
		}
		for _, v := range values {
			if v == response {
				ctxlog.Info(ctx, "TXT record verified", "record", name)
				return nil
			}
		}
		err = fmt.Errorf("TXT record for %v does not contain the expected value", name)
	}
	return err
}

// LookupTXT queries the system's configured resolvers for the TXT
// records of fqdn.
func LookupTXT(ctx context.Context, fqdn string) ([]string, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver configuration: %w", err)
	}
	m := new(dns.Msg)
	m.SetQuestion(fqdn, dns.TypeTXT)
	client := &dns.Client{Timeout: 10 * time.Second}
	var lastErr error
	for _, server := range cfg.Servers {
		reply, _, err := client.ExchangeContext(ctx, m, net.JoinHostPort(server, cfg.Port))
		if err != nil {
			lastErr = err
			continue
		}
		if reply.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("TXT query for %v failed: %v", fqdn, dns.RcodeToString[reply.Rcode])
			continue
		}
		var values []string
		for _, rr := range reply.Answer {
			if txt, ok := rr.(*dns.TXT); ok {
				values = append(values, txt.Txt...)
			}
		}
		return values, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no resolvers configured")
	}
	return nil, lastErr
}
