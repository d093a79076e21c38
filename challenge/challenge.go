// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package challenge provides solvers for ACME challenges. A solver
// makes a challenge response visible to the certificate authority,
// either by placing a file under a web server's document root, by
// serving it directly, or by instructing the operator to create a DNS
// record.
package challenge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloudeng.io/logging/ctxlog"
)

const (
	// ACMEHTTP01Prefix is the well-known URL prefix for ACME HTTP-01
	// challenges.
	ACMEHTTP01Prefix = "/.well-known/acme-challenge/"

	// TypeHTTP01 and TypeDNS01 are the challenge type identifiers used
	// in RFC 8555.
	TypeHTTP01 = "http-01"
	TypeDNS01  = "dns-01"
)

// Solver is the interface implemented by all challenge solvers. The
// interface follows the shape of go-acme/lego's challenge providers:
// Present makes the challenge response retrievable by the CA and
// CleanUp removes it once validation has completed.
type Solver interface {
	// Type returns the RFC 8555 challenge type this solver handles.
	Type() string
	// Present publishes the challenge response for the given domain.
	Present(ctx context.Context, domain, token, response string) error
	// CleanUp removes a previously presented response.
	CleanUp(ctx context.Context, domain, token string) error
}

// IsSequential returns true if the solver must present one challenge
// at a time, as interactive solvers do.
func IsSequential(s Solver) bool {
	q, ok := s.(interface{ Sequential() bool })
	return ok && q.Sequential()
}

// HTTP01Dir solves HTTP-01 challenges by writing the key authorization
// into the well-known challenge directory below the document root of a
// web server that already serves the domain on port 80.
type HTTP01Dir struct {
	// Root is the document root of the public web server.
	Root string
}

// Type implements Solver.
func (h HTTP01Dir) Type() string { return TypeHTTP01 }

func (h HTTP01Dir) path(token string) string {
	return filepath.Join(h.Root, filepath.FromSlash(ACMEHTTP01Prefix), token)
}

// Present implements Solver.
func (h HTTP01Dir) Present(ctx context.Context, domain, token, response string) error {
	filename := h.path(token)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create challenge directory: %w", err)
	}
	// World readable so that the web server can serve it.
	if err := os.WriteFile(filename, []byte(response), 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write challenge file: %w", err)
	}
	ctxlog.Info(ctx, "wrote http-01 challenge file", "domain", domain, "file", filename)
	return nil
}

// CleanUp implements Solver.
func (h HTTP01Dir) CleanUp(ctx context.Context, domain, token string) error {
	if err := os.Remove(h.path(token)); err != nil && !os.IsNotExist(err) {
		return err
	}
	ctxlog.Info(ctx, "removed http-01 challenge file", "domain", domain, "token", token)
	return nil
}
