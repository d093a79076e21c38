// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package csrutil

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// OIDSubjectAltName is the object identifier of the X.509v3 subject
// alternative name extension (id-ce-subjectAltName).
var OIDSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

// GeneralName tag numbers from RFC 5280 4.2.1.6.
const tagDNSName = 2

// DNSNamesFromSAN decodes the DER encoded value of a subject
// alternative name extension (a GeneralNames SEQUENCE) and returns the
// dNSName entries it contains. General names of other types, such as IP
// addresses or URIs, are skipped. Malformed input returns an error
// rather than truncated or garbled names.
func DNSNamesFromSAN(der []byte) ([]string, error) {
	var seq asn1.RawValue
	rest, err := asn1.Unmarshal(der, &seq)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subjectAltName: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after subjectAltName extension")
	}
	if !seq.IsCompound || seq.Tag != asn1.TagSequence || seq.Class != asn1.ClassUniversal {
		return nil, fmt.Errorf("subjectAltName is not a SEQUENCE of GeneralName")
	}
	var names []string
	data := seq.Bytes
	for len(data) > 0 {
		var v asn1.RawValue
		data, err = asn1.Unmarshal(data, &v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse GeneralName: %w", err)
		}
		if v.Class != asn1.ClassContextSpecific {
			return nil, fmt.Errorf("unexpected GeneralName class %v", v.Class)
		}
		if v.Tag == tagDNSName {
			names = append(names, string(v.Bytes))
		}
	}
	return names, nil
}

// SANExtension returns the DER encoded value of the subject alternative
// name extension in the supplied certificate request, or nil if the
// request carries no such extension.
func SANExtension(req *x509.CertificateRequest) []byte {
	for _, ext := range req.Extensions {
		if ext.Id.Equal(OIDSubjectAltName) {
			return ext.Value
		}
	}
	return nil
}
