// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package issuer

import (
	"context"
	"fmt"

	"cloudeng.io/acmecli/challenge"
	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/sync/errgroup"
	"golang.org/x/crypto/acme"
)

// Request describes a certificate to be signed.
type Request struct {
	// Domains are the domains the certificate must cover. The CA
	// validates every one of them.
	Domains []string
	// CSR is the DER encoded certificate signing request submitted
	// when the order is finalized.
	CSR []byte
}

// Certificate is a signed certificate as returned by the CA.
type Certificate struct {
	// DER holds the issued certificate followed by the rest of the
	// chain as supplied by the CA.
	DER [][]byte
	// URL is the CA's URL for the issued certificate.
	URL string
}

// Sign obtains a signed certificate for the supplied request: it
// creates an order for all domains, validates every pending
// authorization using the configured solver and finalizes the order
// with the CSR. Non-interactive solvers validate multiple domains
// concurrently; interactive ones one at a time.
func (s *Service) Sign(ctx context.Context, req Request) (Certificate, error) {
	if len(req.Domains) == 0 {
		return Certificate{}, ErrNoDomains
	}
	if s.opts.solver == nil {
		return Certificate{}, ErrNoSolver
	}

	order, err := s.client.AuthorizeOrder(ctx, acme.DomainIDs(req.Domains...))
	if err != nil {
		return Certificate{}, fmt.Errorf("failed to create order: %w", err)
	}
	ctxlog.Info(ctx, "created order", "order", order.URI, "status", order.Status, "authorizations", len(order.AuthzURLs))

	if err := s.authorizeAll(ctx, order.AuthzURLs); err != nil {
		return Certificate{}, err
	}

	order, err = s.client.WaitOrder(ctx, order.URI)
	if err != nil {
		return Certificate{}, fmt.Errorf("order did not become ready: %w", err)
	}

	der, certURL, err := s.client.CreateOrderCert(ctx, order.FinalizeURL, req.CSR, true)
	if err != nil {
		return Certificate{}, fmt.Errorf("failed to finalize order: %w", err)
	}
	ctxlog.Info(ctx, "certificate issued", "url", certURL, "chain", len(der))
	return Certificate{DER: der, URL: certURL}, nil
}

func (s *Service) authorizeAll(ctx context.Context, authzURLs []string) error {
	if challenge.IsSequential(s.opts.solver) {
		for _, u := range authzURLs {
			if err := s.authorize(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, u := range authzURLs {
		g.Go(func() error {
			return s.authorize(ctx, u)
		})
	}
	return g.Wait()
}

func (s *Service) authorize(ctx context.Context, authzURL string) (err error) {
	authz, err := s.client.GetAuthorization(ctx, authzURL)
	if err != nil {
		return fmt.Errorf("failed to fetch authorization: %w", err)
	}
	domain := authz.Identifier.Value
	if authz.Status == acme.StatusValid {
		ctxlog.Info(ctx, "authorization already valid", "domain", domain)
		return nil
	}
	if authz.Status != acme.StatusPending {
		return fmt.Errorf("authorization for %v is %v", domain, authz.Status)
	}

	chal := pickChallenge(authz, s.opts.solver.Type())
	if chal == nil {
		return fmt.Errorf("%v challenge for %v: %w", s.opts.solver.Type(), domain, ErrNoChallenge)
	}

	response, err := s.challengeResponse(chal)
	if err != nil {
		return err
	}
	if err := s.opts.solver.Present(ctx, domain, chal.Token, response); err != nil {
		return fmt.Errorf("failed to present challenge for %v: %w", domain, err)
	}
	defer func() {
		// The context may be canceled by the time cleanup runs.
		cerr := s.opts.solver.CleanUp(context.WithoutCancel(ctx), domain, chal.Token)
		err = errors.NewM(err, cerr)
	}()

	if _, err := s.client.Accept(ctx, chal); err != nil {
		return fmt.Errorf("challenge for %v was not accepted: %w", domain, err)
	}
	if _, err := s.client.WaitAuthorization(ctx, authz.URI); err != nil {
		return fmt.Errorf("validation failed for %v: %w", domain, err)
	}
	ctxlog.Info(ctx, "authorization validated", "domain", domain, "challenge", chal.Type)
	return nil
}

func (s *Service) challengeResponse(chal *acme.Challenge) (string, error) {
	switch chal.Type {
	case challenge.TypeHTTP01:
		return s.client.HTTP01ChallengeResponse(chal.Token)
	case challenge.TypeDNS01:
		return s.client.DNS01ChallengeRecord(chal.Token)
	}
	return "", fmt.Errorf("unsupported challenge type %v", chal.Type)
}

func pickChallenge(authz *acme.Authorization, typ string) *acme.Challenge {
	for _, c := range authz.Challenges {
		if c.Type == typ {
			return c
		}
	}
	return nil
}
