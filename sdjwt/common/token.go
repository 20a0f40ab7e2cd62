/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"strings"

	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// SDToken is the combined SD-JWT serialization: <issuer jwt>~<d1>~...~<dn>~<kb jwt>.
// KeyBindingJWT is empty when key binding is not attached.
type SDToken struct {
	IssuerJWT     string
	Disclosures   []string
	KeyBindingJWT string
}

// ParseSDToken splits combined serialization into parts.
// The separator after the issuer JWT is mandatory, even without disclosures.
func ParseSDToken(combined string) (*SDToken, error) {
	parts := strings.Split(combined, CombinedFormatSeparator)

	if parts[0] == "" {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "issuer-signed JWT is missing")
	}

	if len(parts) == 1 {
		return nil, vcerr.New(vcerr.KindMalformedEncoding, "SD-JWT separator '%s' is missing", CombinedFormatSeparator)
	}

	token := &SDToken{IssuerJWT: parts[0]}

	for _, disclosure := range parts[1 : len(parts)-1] {
		if disclosure == "" {
			return nil, vcerr.New(vcerr.KindMalformedEncoding, "empty disclosure in SD-JWT")
		}

		token.Disclosures = append(token.Disclosures, disclosure)
	}

	token.KeyBindingJWT = parts[len(parts)-1]

	return token, nil
}

// Serialize assembles combined serialization. The separator after the last disclosure is always present.
func (t *SDToken) Serialize() string {
	var sb strings.Builder

	sb.WriteString(t.SDHashInput())
	sb.WriteString(t.KeyBindingJWT)

	return sb.String()
}

// SDHashInput is the serialization without Key Binding JWT, the input of sd_hash.
func (t *SDToken) SDHashInput() string {
	var sb strings.Builder

	sb.WriteString(t.IssuerJWT)
	sb.WriteString(CombinedFormatSeparator)

	for _, d := range t.Disclosures {
		sb.WriteString(d)
		sb.WriteString(CombinedFormatSeparator)
	}

	return sb.String()
}

// SDHash computes sd_hash value bound by the Key Binding JWT.
func (t *SDToken) SDHash(hash crypto.Hash) (string, error) {
	return GetHash(hash, t.SDHashInput())
}

// Copy returns a copy of token.
func (t *SDToken) Copy() *SDToken {
	return &SDToken{
		IssuerJWT:     t.IssuerJWT,
		Disclosures:   append([]string(nil), t.Disclosures...),
		KeyBindingJWT: t.KeyBindingJWT,
	}
}
