// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package issuer

import (
	"context"
	"encoding/pem"
	"fmt"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"golang.org/x/crypto/acme"
)

// ErrNoCertificate is returned by Revoke when the supplied PEM data
// contains no certificate.
var ErrNoCertificate = errors.New("no certificate found")

// Revoke revokes the first certificate in the supplied PEM data. The
// revocation is authorized by the account key the Service was created
// with, which must be the account that issued the certificate.
func (s *Service) Revoke(ctx context.Context, certPEM []byte, reason acme.CRLReasonCode) error {
	der, err := firstCertificate(certPEM)
	if err != nil {
		return err
	}
	if err := s.client.RevokeCert(ctx, nil, der, reason); err != nil {
		return fmt.Errorf("revocation failed: %w", err)
	}
	ctxlog.Info(ctx, "certificate revoked", "reason", reason)
	return nil
}

func firstCertificate(pemData []byte) ([]byte, error) {
	for {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			return nil, ErrNoCertificate
		}
		if block.Type == "CERTIFICATE" {
			return block.Bytes, nil
		}
	}
}
