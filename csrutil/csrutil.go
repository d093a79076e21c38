// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package csrutil provides support for creating and parsing PEM encoded
// certificate signing requests, including extraction of the domain
// names that a request covers.
package csrutil

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"os"
	"slices"

	"cloudeng.io/errors"
)

var (
	// ErrNotPEM is returned when the supplied data contains no PEM block.
	ErrNotPEM = errors.New("no PEM block found")
	// ErrNotCSR is returned when the first PEM block is not a
	// certificate signing request.
	ErrNotCSR = errors.New("PEM block is not a certificate request")
)

const pemCSRType = "CERTIFICATE REQUEST"

// Parse parses a PEM encoded certificate signing request and verifies
// its signature. Both "CERTIFICATE REQUEST" and the legacy
// "NEW CERTIFICATE REQUEST" block types are accepted.
func Parse(pemData []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, ErrNotPEM
	}
	if block.Type != pemCSRType && block.Type != "NEW "+pemCSRType {
		return nil, fmt.Errorf("%q: %w", block.Type, ErrNotCSR)
	}
	req, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate request: %w", err)
	}
	if err := req.CheckSignature(); err != nil {
		return nil, fmt.Errorf("certificate request has an invalid signature: %w", err)
	}
	return req, nil
}

// Load reads and parses the PEM encoded certificate signing request
// stored in the specified file.
func Load(filename string) (*x509.CertificateRequest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	req, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return req, nil
}

// Names returns the set of domain names covered by the supplied
// certificate request, that is, its subject common name (if any)
// followed by all of its subject alternative name DNS entries. The
// returned slice is deduplicated and sorted; it is empty if the request
// names no domains at all.
func Names(req *x509.CertificateRequest) []string {
	names := make([]string, 0, len(req.DNSNames)+1)
	if len(req.Subject.CommonName) > 0 {
		names = append(names, req.Subject.CommonName)
	}
	names = append(names, req.DNSNames...)
	slices.Sort(names)
	return slices.Compact(names)
}

// NamesFromFile is like Names but operates on the PEM encoded
// certificate request stored in the specified file.
func NamesFromFile(filename string) ([]string, error) {
	req, err := Load(filename)
	if err != nil {
		return nil, err
	}
	return Names(req), nil
}

// New creates a certificate signing request for the supplied domains
// signed by key. The first domain becomes the subject common name and
// all domains are included as subject alternative name DNS entries.
// The request is returned in DER form; use EncodePEM to obtain its PEM
// encoding.
func New(key crypto.Signer, domains []string) ([]byte, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("no domains specified for certificate request")
	}
	tpl := x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: domains[0]},
		DNSNames: domains,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, &tpl, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}
	return der, nil
}

// EncodePEM returns the PEM encoding of a DER encoded certificate
// request.
func EncodePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemCSRType, Bytes: der})
}
