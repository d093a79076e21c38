// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package issuer

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// EncodePEM encodes the supplied DER certificates as a PEM chain. Each
// certificate is parsed to catch corrupt CA responses before they are
// written anywhere.
func EncodePEM(der [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	for i, d := range der {
		if _, err := x509.ParseCertificate(d); err != nil {
			return nil, fmt.Errorf("certificate %v in chain: %w", i, err)
		}
		if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: d}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteCertificate writes the certificate to filename in PEM form.
// With chain set the full chain is written, otherwise just the leaf.
func WriteCertificate(filename string, der [][]byte, chain bool) error {
	if len(der) == 0 {
		return ErrNoCertificate
	}
	if !chain {
		der = der[:1]
	}
	data, err := EncodePEM(der)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}
