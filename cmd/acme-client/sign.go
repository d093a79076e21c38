// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto"
	"fmt"
	"os"
	"time"

	"cloudeng.io/acmecli/challenge"
	"cloudeng.io/acmecli/csrutil"
	"cloudeng.io/acmecli/issuer"
	"cloudeng.io/acmecli/keyutil"
	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"golang.org/x/crypto/acme"
)

type signFlags struct {
	LoggingFlags
	UserKey       string `subcmd:"user-key,,'file containing the PEM encoded account private key, a new key is generated if not specified'"`
	DomainKey     string `subcmd:"domain-key,,'file containing the PEM encoded certificate private key, a new key is generated if not specified'"`
	DomainCSR     string `subcmd:"domain-csr,,'file containing a PEM encoded certificate signing request to use instead of generating one, the domains are taken from the request'"`
	PublicDir     string `subcmd:"public-dir,,'directory served by an existing web server, http-01 challenges are written beneath it'"`
	Listen        string `subcmd:"listen,,'address for a built-in web server that answers http-01 challenges itself, the port defaults to 80'"`
	Email         string `subcmd:"email,,contact email address registered with the certificate authority"`
	DNS           bool   `subcmd:"dns,false,solve dns-01 challenges interactively instead of http-01"`
	AccountFile   string `subcmd:"account-file,,'file recording the account registration, reused on subsequent invocations'"`
	Provider      string `subcmd:"provider,,'ACME directory URL, the Lets Encrypt production directory if not specified'"`
	TestingCAPEM  string `subcmd:"testing-ca-pem,,'PEM file with additional root CAs to trust, for test CAs such as pebble'"`
	Chain         bool   `subcmd:"chain,false,save the full certificate chain instead of just the leaf"`
	SaveCrt       string `subcmd:"save-crt,,file to write the signed certificate to"`
	SaveUserKey   string `subcmd:"save-user-key,,file to write a newly generated account key to"`
	SaveDomainKey string `subcmd:"save-domain-key,,file to write a newly generated certificate key to"`
	SaveCSR       string `subcmd:"save-csr,,file to write a newly generated certificate signing request to"`
}

// validate catches unusable flag combinations before any key is
// generated or the certificate authority is contacted.
func (fl *signFlags) validate(args []string) error {
	if len(fl.SaveCrt) == 0 {
		return fmt.Errorf("--save-crt must be specified, there is nowhere to write the certificate otherwise")
	}
	if len(args) == 0 && len(fl.DomainCSR) == 0 {
		return fmt.Errorf("no domains specified, list them as arguments or supply a signing request via --domain-csr")
	}
	if len(args) > 0 && len(fl.DomainCSR) > 0 {
		return fmt.Errorf("domain arguments cannot be combined with --domain-csr, the domains are taken from the request")
	}
	if len(fl.DomainCSR) > 0 && (len(fl.SaveDomainKey) > 0 || len(fl.SaveCSR) > 0) {
		return fmt.Errorf("--save-domain-key and --save-csr only apply when the signing request is generated")
	}
	if fl.DNS {
		if len(fl.PublicDir) > 0 || len(fl.Listen) > 0 {
			return fmt.Errorf("--public-dir and --listen do not apply to dns-01 challenges")
		}
		return nil
	}
	if (len(fl.PublicDir) > 0) == (len(fl.Listen) > 0) {
		return fmt.Errorf("exactly one of --public-dir or --listen must be specified for http-01 challenges")
	}
	return nil
}

func signCmd(ctx context.Context, values any, args []string) error {
	fl := values.(*signFlags)
	ctx = fl.withLogger(ctx)
	if err := fl.validate(args); err != nil {
		return err
	}

	userKey, err := loadOrGenerateKey(ctx, fl.UserKey, fl.SaveUserKey, "account")
	if err != nil {
		return err
	}
	csrDER, domains, err := signingRequest(ctx, fl, args)
	if err != nil {
		return err
	}

	solver, cleanup, err := newSolver(ctx, fl)
	if err != nil {
		return err
	}
	err = obtain(ctx, fl, userKey, csrDER, domains, solver)
	return errors.NewM(err, cleanup())
}

func obtain(ctx context.Context, fl *signFlags, userKey crypto.Signer, csrDER []byte, domains []string, solver challenge.Solver) error {
	opts := []issuer.Option{issuer.WithSolver(solver)}
	if len(fl.Provider) > 0 {
		opts = append(opts, issuer.WithDirectoryURL(fl.Provider))
	}
	if len(fl.TestingCAPEM) > 0 {
		client, err := issuer.HTTPClientWithRootCA(fl.TestingCAPEM)
		if err != nil {
			return err
		}
		opts = append(opts, issuer.WithHTTPClient(client))
	}
	svc := issuer.New(userKey, opts...)

	if err := register(ctx, svc, fl); err != nil {
		return err
	}

	cert, err := svc.Sign(ctx, issuer.Request{Domains: domains, CSR: csrDER})
	if err != nil {
		return err
	}
	if err := issuer.WriteCertificate(fl.SaveCrt, cert.DER, fl.Chain); err != nil {
		return err
	}
	ctxlog.Info(ctx, "certificate saved", "file", fl.SaveCrt, "domains", domains)
	return nil
}

// loadOrGenerateKey loads the key from filename if one was supplied
// and generates a fresh one otherwise, optionally saving it.
func loadOrGenerateKey(ctx context.Context, filename, saveAs, purpose string) (crypto.Signer, error) {
	if len(filename) > 0 {
		return keyutil.Load(filename)
	}
	key, err := keyutil.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate the %v key: %w", purpose, err)
	}
	ctxlog.Info(ctx, "generated a new key", "purpose", purpose)
	if len(saveAs) > 0 {
		if err := keyutil.Save(saveAs, key); err != nil {
			return nil, err
		}
		ctxlog.Info(ctx, "key saved", "purpose", purpose, "file", saveAs)
	}
	return key, nil
}

// signingRequest returns the DER encoded signing request to submit to
// the CA and the domains it covers, either loaded from --domain-csr or
// generated from the domain arguments.
func signingRequest(ctx context.Context, fl *signFlags, args []string) ([]byte, []string, error) {
	if len(fl.DomainCSR) > 0 {
		req, err := csrutil.Load(fl.DomainCSR)
		if err != nil {
			return nil, nil, err
		}
		domains := csrutil.Names(req)
		if len(domains) == 0 {
			return nil, nil, fmt.Errorf("%v names no domains", fl.DomainCSR)
		}
		ctxlog.Info(ctx, "using the supplied signing request", "file", fl.DomainCSR, "domains", domains)
		return req.Raw, domains, nil
	}
	domainKey, err := loadOrGenerateKey(ctx, fl.DomainKey, fl.SaveDomainKey, "certificate")
	if err != nil {
		return nil, nil, err
	}
	csrDER, err := csrutil.New(domainKey, args)
	if err != nil {
		return nil, nil, err
	}
	if len(fl.SaveCSR) > 0 {
		if err := os.WriteFile(fl.SaveCSR, csrutil.EncodePEM(csrDER), 0600); err != nil {
			return nil, nil, err
		}
		ctxlog.Info(ctx, "signing request saved", "file", fl.SaveCSR)
	}
	return csrDER, args, nil
}

// newSolver returns the challenge solver implied by the flags together
// with a cleanup function to run once the order completes.
func newSolver(ctx context.Context, fl *signFlags) (challenge.Solver, func() error, error) {
	noop := func() error { return nil }
	if fl.DNS {
		return &challenge.DNS01Prompt{In: os.Stdin, Out: os.Stdout}, noop, nil
	}
	if len(fl.PublicDir) > 0 {
		return challenge.HTTP01Dir{Root: fl.PublicDir}, noop, nil
	}
	srv := challenge.NewHTTP01Server(fl.Listen)
	stop, err := srv.Start(ctx, time.Minute)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start the http-01 challenge server: %w", err)
	}
	return srv, stop, nil
}

// register binds the account key to a CA account, reusing a stored
// registration when --account-file names one for the same directory.
func register(ctx context.Context, svc *issuer.Service, fl *signFlags) error {
	directory := fl.Provider
	if len(directory) == 0 {
		directory = acme.LetsEncryptURL
	}
	var af *issuer.AccountFile
	if len(fl.AccountFile) > 0 {
		af = issuer.NewAccountFile(fl.AccountFile)
		stored, err := af.Load()
		switch {
		case err == nil && stored.DirectoryURL == directory:
			ctxlog.Info(ctx, "reusing the stored account", "account", stored.URI)
			return nil
		case err == nil:
			ctxlog.Info(ctx, "stored account is for a different CA, re-registering", "stored", stored.DirectoryURL, "directory", directory)
		case !errors.Is(err, issuer.ErrNoAccount):
			return err
		}
	}
	account, err := svc.Register(ctx, fl.Email)
	if err != nil {
		return err
	}
	if af == nil {
		return nil
	}
	return af.Store(issuer.NewAccount(account, directory))
}
