// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// acme-client obtains and revokes TLS certificates from an ACME
// certificate authority such as letsencrypt.org.
package main

import (
	"context"

	"cloudeng.io/cmdutil/subcmd"
)

const cmdSpec = `name: acme-client
summary: acme-client obtains and revokes TLS certificates from an ACME certificate authority
commands:
  - name: sign
    summary: obtain a signed certificate for the requested domains
    arguments:
      - domains... - the domains the certificate must cover, unless --domain-csr is used
  - name: revoke
    summary: revoke a previously issued certificate
  - name: inspect
    summary: display the contents of certificates and certificate signing requests
    commands:
      - name: csr
        arguments:
          - filename - the PEM encoded certificate signing request to display
      - name: cert
        arguments:
          - filename - the PEM encoded certificate to display
`

func cli() *subcmd.CommandSetYAML {
	cmd := subcmd.MustFromYAML(cmdSpec)

	cmd.Set("sign").MustRunner(signCmd, &signFlags{})
	cmd.Set("revoke").MustRunner(revokeCmd, &revokeFlags{})
	cmd.Set("inspect", "csr").MustRunner(inspectCSRCmd, &inspectFlags{})
	cmd.Set("inspect", "cert").MustRunner(inspectCertCmd, &inspectFlags{})

	return cmd
}

func main() {
	ctx := context.Background()
	subcmd.Dispatch(ctx, cli())
}
