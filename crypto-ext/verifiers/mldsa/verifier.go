/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mldsa verifies ML-DSA (FIPS 204) signatures.
package mldsa

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
)

// Verifier verifies signatures of one ML-DSA parameter set over raw public key bytes.
type Verifier struct {
	keyType kms.KeyType
	scheme  sign.Scheme
}

func newVerifier(keyType kms.KeyType) *Verifier {
	return &Verifier{keyType: keyType, scheme: schemes.ByName(string(keyType))}
}

// NewMLDSA44 creates ML-DSA-44 verifier.
func NewMLDSA44() *Verifier {
	return newVerifier(pubkey.MLDSA44Type)
}

// NewMLDSA65 creates ML-DSA-65 verifier.
func NewMLDSA65() *Verifier {
	return newVerifier(pubkey.MLDSA65Type)
}

// NewMLDSA87 creates ML-DSA-87 verifier.
func NewMLDSA87() *Verifier {
	return newVerifier(pubkey.MLDSA87Type)
}

// SupportedKeyType checks if verifier supports given key.
func (sv *Verifier) SupportedKeyType(keyType kms.KeyType) bool {
	return keyType == sv.keyType
}

// Verify verifies the signature.
func (sv *Verifier) Verify(signature, msg []byte, key *pubkey.PublicKey) error {
	if !sv.SupportedKeyType(key.Type) {
		return fmt.Errorf("unsupported key type %s", key.Type)
	}

	if sv.scheme == nil {
		return fmt.Errorf("mldsa: scheme %s is not available", sv.keyType)
	}

	if key.BytesKey == nil || len(key.BytesKey.Bytes) != sv.scheme.PublicKeySize() {
		return errors.New("mldsa: invalid key")
	}

	pub, err := sv.scheme.UnmarshalBinaryPublicKey(key.BytesKey.Bytes)
	if err != nil {
		return errors.New("mldsa: invalid key")
	}

	if len(signature) != sv.scheme.SignatureSize() || !sv.scheme.Verify(pub, msg, signature, nil) {
		return errors.New("mldsa: invalid signature")
	}

	return nil
}
