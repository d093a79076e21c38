// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"cloudeng.io/acmecli/issuer"
	"cloudeng.io/acmecli/keyutil"
	"cloudeng.io/logging/ctxlog"
	"golang.org/x/crypto/acme"
)

type revokeFlags struct {
	LoggingFlags
	UserKey      string `subcmd:"user-key,,file containing the PEM encoded account private key that obtained the certificate"`
	SignedCrt    string `subcmd:"signed-crt,,file containing the PEM encoded certificate to revoke"`
	Reason       int    `subcmd:"reason,0,'RFC 5280 revocation reason code, 0 for unspecified, 1 for key compromise, 4 for superseded, 5 for cessation of operation'"`
	Provider     string `subcmd:"provider,,'ACME directory URL, the Lets Encrypt production directory if not specified'"`
	TestingCAPEM string `subcmd:"testing-ca-pem,,'PEM file with additional root CAs to trust, for test CAs such as pebble'"`
}

// validate catches missing flags before the certificate authority is
// contacted.
func (fl *revokeFlags) validate() error {
	if len(fl.UserKey) == 0 {
		return fmt.Errorf("--user-key must be specified, revocation is authorized by the account key")
	}
	if len(fl.SignedCrt) == 0 {
		return fmt.Errorf("--signed-crt must be specified, there is nothing to revoke otherwise")
	}
	return nil
}

func revokeCmd(ctx context.Context, values any, _ []string) error {
	fl := values.(*revokeFlags)
	ctx = fl.withLogger(ctx)
	if err := fl.validate(); err != nil {
		return err
	}
	userKey, err := keyutil.Load(fl.UserKey)
	if err != nil {
		return err
	}
	certPEM, err := os.ReadFile(fl.SignedCrt)
	if err != nil {
		return err
	}
	opts := []issuer.Option{}
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
	if err := svc.Revoke(ctx, certPEM, acme.CRLReasonCode(fl.Reason)); err != nil {
		return err
	}
	ctxlog.Info(ctx, "certificate revoked", "file", fl.SignedCrt)
	return nil
}
