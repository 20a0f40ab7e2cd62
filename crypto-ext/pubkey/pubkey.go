/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package pubkey

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/trustbloc/kms-go/doc/jose/jwk"
	"github.com/trustbloc/kms-go/spi/kms"
)

// Post-quantum key types. kms-go has no constants for them.
const (
	MLDSA44Type = kms.KeyType("ML-DSA-44")
	MLDSA65Type = kms.KeyType("ML-DSA-65")
	MLDSA87Type = kms.KeyType("ML-DSA-87")
)

// JWKThumbprintURNPrefix prefixes a base64url SHA-256 JWK thumbprint (RFC 9278).
const JWKThumbprintURNPrefix = "urn:ietf:params:oauth:jwk-thumbprint:sha-256:"

// BytesKey contains bytes of public key.
type BytesKey struct {
	Bytes []byte
}

// PublicKey contains a result of public key resolution.
type PublicKey struct {
	Type kms.KeyType

	BytesKey *BytesKey
	JWK      *jwk.JWK
}

// FromJWK creates public key of the given type from JWK. Private material is dropped.
func FromJWK(j *jwk.JWK, keyType kms.KeyType) (*PublicKey, error) {
	if j == nil || j.Key == nil {
		return nil, errors.New("jwk is empty")
	}

	public := j.Public()
	if public.Key == nil {
		return nil, errors.New("jwk has no public projection")
	}

	return &PublicKey{
		Type: keyType,
		JWK: &jwk.JWK{
			JSONWebKey: public,
			Kty:        j.Kty,
			Crv:        j.Crv,
		},
	}, nil
}

// Thumbprint computes base64url RFC 7638 SHA-256 thumbprint of the public members of the JWK.
func Thumbprint(j *jwk.JWK) (string, error) {
	if j == nil {
		return "", errors.New("jwk is empty")
	}

	public := j.Public()

	tp, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwk thumbprint: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// ThumbprintURN returns the JWK thumbprint URI of the key.
func ThumbprintURN(j *jwk.JWK) (string, error) {
	tp, err := Thumbprint(j)
	if err != nil {
		return "", err
	}

	return JWKThumbprintURNPrefix + tp, nil
}
