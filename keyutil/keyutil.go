// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package keyutil provides support for reading and writing PEM encoded
// private keys as used for ACME accounts and certificate requests.
package keyutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"cloudeng.io/errors"
)

// ErrNotPrivateKey is returned when a PEM file does not contain a
// supported private key block.
var ErrNotPrivateKey = errors.New("no private key found")

// Generate returns a new ECDSA P-256 private key, the default key type
// for both accounts and certificates.
func Generate() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// Parse parses a PEM encoded private key. EC, PKCS#8 and PKCS#1 blocks
// are accepted; any leading non-key blocks (such as certificates) are
// skipped.
func Parse(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			return nil, ErrNotPrivateKey
		}
		pemData = rest
		switch block.Type {
		case "EC PRIVATE KEY":
			return x509.ParseECPrivateKey(block.Bytes)
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			signer, ok := key.(crypto.Signer)
			if !ok {
				return nil, fmt.Errorf("unsupported key type %T", key)
			}
			return signer, nil
		}
	}
}

// Load reads and parses the PEM encoded private key stored in the
// specified file.
func Load(filename string) (crypto.Signer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	key, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return key, nil
}

// EncodePEM returns the PEM encoding of the supplied private key.
// ECDSA keys are written as "EC PRIVATE KEY" blocks, RSA keys as
// "RSA PRIVATE KEY" blocks and anything else as PKCS#8 "PRIVATE KEY"
// blocks.
func EncodePEM(key crypto.Signer) ([]byte, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}), nil
	default:
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	}
}

// Save writes the PEM encoding of key to the specified file with mode
// 0600.
func Save(filename string, key crypto.Signer) error {
	data, err := EncodePEM(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write key file %q: %w", filename, err)
	}
	return nil
}
