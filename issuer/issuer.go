// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package issuer sequences the golang.org/x/crypto/acme client through
// the RFC 8555 certificate lifecycle: account registration, order
// authorization, challenge validation, certificate issuance and
// revocation. All protocol state, nonce handling and JWS signing is
// owned by the acme package; this package only drives it.
package issuer

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"cloudeng.io/acmecli/challenge"
	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"golang.org/x/crypto/acme"
)

var (
	// ErrNoDomains is returned by Sign when the request names no domains.
	ErrNoDomains = errors.New("no domains to authorize")
	// ErrNoChallenge is returned when an authorization offers no
	// challenge of the configured type.
	ErrNoChallenge = errors.New("no suitable challenge offered")
	// ErrNoSolver is returned by Sign when no challenge solver has been
	// configured.
	ErrNoSolver = errors.New("no challenge solver configured")
)

// Service wraps an acme.Client for a single account key.
type Service struct {
	client *acme.Client
	opts   options
}

// Option represents an option for New.
type Option func(o *options)

type options struct {
	directoryURL string
	httpClient   *http.Client
	solver       challenge.Solver
	userAgent    string
}

// WithDirectoryURL sets the ACME directory URL. The default is the
// Let's Encrypt production directory.
func WithDirectoryURL(url string) Option {
	return func(o *options) {
		o.directoryURL = url
	}
}

// WithHTTPClient sets the HTTP client used for all ACME requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithSolver sets the challenge solver used to validate
// authorizations.
func WithSolver(solver challenge.Solver) Option {
	return func(o *options) {
		o.solver = solver
	}
}

// WithUserAgent sets the User-Agent header sent to the CA.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// New returns a Service that authenticates to the CA with the supplied
// account key.
func New(key crypto.Signer, opts ...Option) *Service {
	o := options{
		directoryURL: acme.LetsEncryptURL,
		userAgent:    "acmecli",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		client: &acme.Client{
			Key:          key,
			DirectoryURL: o.directoryURL,
			HTTPClient:   o.httpClient,
			UserAgent:    o.userAgent,
		},
		opts: o,
	}
}

// HTTPClientWithRootCA returns an HTTP client that trusts the CAs in
// the supplied PEM file in addition to the system roots. It is used to
// talk to test CAs such as pebble.
func HTTPClientWithRootCA(pemFile string) (*http.Client, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	data, err := os.ReadFile(pemFile)
	if err != nil {
		return nil, err
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %q", pemFile)
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool}, //nolint:gosec
		},
	}, nil
}

// Register registers the account key with the CA, accepting its terms
// of service. Registration is idempotent: if the key is already bound
// to an account that account is returned.
func (s *Service) Register(ctx context.Context, email string) (*acme.Account, error) {
	tpl := &acme.Account{}
	if len(email) > 0 {
		tpl.Contact = []string{"mailto:" + email}
	}
	account, err := s.client.Register(ctx, tpl, acme.AcceptTOS)
	if errors.Is(err, acme.ErrAccountAlreadyExists) {
		account, err = s.client.GetReg(ctx, "")
	}
	if err != nil {
		return nil, fmt.Errorf("account registration failed: %w", err)
	}
	ctxlog.Info(ctx, "registered with the CA", "account", account.URI, "status", account.Status)
	return account, nil
}
