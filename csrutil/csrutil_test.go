// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package csrutil_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloudeng.io/acmecli/csrutil"
	"cloudeng.io/errors"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func newCSRFile(t *testing.T, tpl *x509.CertificateRequest) string {
	t.Helper()
	der, err := x509.CreateCertificateRequest(rand.Reader, tpl, newKey(t))
	if err != nil {
		t.Fatalf("failed to create certificate request: %v", err)
	}
	filename := filepath.Join(t.TempDir(), "domain.csr")
	if err := os.WriteFile(filename, csrutil.EncodePEM(der), 0600); err != nil {
		t.Fatalf("failed to write csr: %v", err)
	}
	return filename
}

func TestNamesWithSAN(t *testing.T) {
	filename := newCSRFile(t, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: "cn.example.com"},
		DNSNames: []string{"www.example.com", "example.com"},
	})
	names, err := csrutil.NamesFromFile(filename)
	if err != nil {
		t.Fatalf("NamesFromFile: %v", err)
	}
	want := []string{"cn.example.com", "example.com", "www.example.com"}
	if got := names; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNamesWithoutSAN(t *testing.T) {
	filename := newCSRFile(t, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: "cn.example.com"},
	})
	names, err := csrutil.NamesFromFile(filename)
	if err != nil {
		t.Fatalf("NamesFromFile: %v", err)
	}
	if got, want := len(names), 1; got != want {
		t.Fatalf("got %v names, want %v", got, want)
	}
	if got, want := names[0], "cn.example.com"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNamesEmpty(t *testing.T) {
	filename := newCSRFile(t, &x509.CertificateRequest{})
	names, err := csrutil.NamesFromFile(filename)
	if err != nil {
		t.Fatalf("NamesFromFile: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}

func TestNamesDeduplicated(t *testing.T) {
	filename := newCSRFile(t, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: "example.com"},
		DNSNames: []string{"example.com", "www.example.com", "www.example.com"},
	})
	names, err := csrutil.NamesFromFile(filename)
	if err != nil {
		t.Fatalf("NamesFromFile: %v", err)
	}
	want := []string{"example.com", "www.example.com"}
	if got := names; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := csrutil.Parse([]byte("not pem at all")); !errors.Is(err, csrutil.ErrNotPEM) {
		t.Errorf("expected ErrNotPEM, got %v", err)
	}
	if _, err := csrutil.Parse([]byte(`-----BEGIN CERTIFICATE-----
aGVsbG8=
-----END CERTIFICATE-----
`)); !errors.Is(err, csrutil.ErrNotCSR) {
		t.Errorf("expected ErrNotCSR, got %v", err)
	}
	if _, err := csrutil.Load(filepath.Join(t.TempDir(), "missing.csr")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestNewRoundTrip(t *testing.T) {
	key := newKey(t)
	der, err := csrutil.New(key, []string{"a.example.com", "b.example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req, err := csrutil.Parse(csrutil.EncodePEM(der))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := req.Subject.CommonName, "a.example.com"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	want := []string{"a.example.com", "b.example.com"}
	if got := csrutil.Names(req); !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := csrutil.New(key, nil); err == nil {
		t.Errorf("expected an error for an empty domain list")
	}
}

func TestDNSNamesFromSAN(t *testing.T) {
	// A name longer than 255 bytes forces a multi-byte DER length for
	// its GeneralName entry.
	long := strings.Repeat("a", 63) + "." + strings.Repeat("b", 63) + "." +
		strings.Repeat("c", 63) + "." + strings.Repeat("d", 63) + ".example.com"
	tpl := &x509.CertificateRequest{
		DNSNames:    []string{"example.com", long},
		IPAddresses: []net.IP{net.ParseIP("192.0.2.1")},
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, tpl, newKey(t))
	if err != nil {
		t.Fatalf("failed to create certificate request: %v", err)
	}
	req, err := x509.ParseCertificateRequest(der)
	if err != nil {
		t.Fatalf("failed to parse certificate request: %v", err)
	}
	ext := csrutil.SANExtension(req)
	if ext == nil {
		t.Fatal("expected a subjectAltName extension")
	}
	names, err := csrutil.DNSNamesFromSAN(ext)
	if err != nil {
		t.Fatalf("DNSNamesFromSAN: %v", err)
	}
	// The IP address entry is skipped, the DNS entries survive intact.
	want := []string{"example.com", long}
	if got := names; !equalSets(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDNSNamesFromSANMalformed(t *testing.T) {
	for _, tc := range [][]byte{
		nil,
		{0x82},
		{0x30, 0x05, 0x82},
		{0x04, 0x02, 0x61, 0x62}, // OCTET STRING, not a SEQUENCE
	} {
		if _, err := csrutil.DNSNamesFromSAN(tc); err == nil {
			t.Errorf("expected an error for %#v", tc)
		}
	}
}

func equalSets(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := map[string]bool{}
	for _, g := range got {
		seen[g] = true
	}
	for _, w := range want {
		if !seen[w] {
			return false
		}
	}
	return true
}
