// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"strings"

	"cloudeng.io/acmecli/csrutil"
)

type inspectFlags struct{}

func inspectCSRCmd(_ context.Context, _ any, args []string) error {
	req, err := csrutil.Load(args[0])
	if err != nil {
		return err
	}
	printCSR(os.Stdout, req)
	return nil
}

func printCSR(out io.Writer, req *x509.CertificateRequest) {
	fmt.Fprintf(out, "Subject: %v\n", req.Subject)
	fmt.Fprintf(out, "Signature Algorithm: %v\n", req.SignatureAlgorithm)
	fmt.Fprintf(out, "Domains: %v\n", strings.Join(csrutil.Names(req), ", "))
}

func inspectCertCmd(_ context.Context, _ any, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var found bool
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("%v: %w", args[0], err)
		}
		printCert(os.Stdout, cert)
		found = true
	}
	if !found {
		return fmt.Errorf("%v contains no certificates", args[0])
	}
	return nil
}

func printCert(out io.Writer, cert *x509.Certificate) {
	fmt.Fprintf(out, "Subject: %v\n", cert.Subject)
	fmt.Fprintf(out, "Issuer: %v\n", cert.Issuer)
	fmt.Fprintf(out, "Serial: %v\n", cert.SerialNumber)
	fmt.Fprintf(out, "Not Before: %v\n", cert.NotBefore.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Not After: %v\n", cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
	if len(cert.DNSNames) > 0 {
		fmt.Fprintf(out, "Domains: %v\n", strings.Join(cert.DNSNames, ", "))
	}
	fmt.Fprintln(out)
}
