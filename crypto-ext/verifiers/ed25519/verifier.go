/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ed25519

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
)

// Verifier verifies EdDSA signatures over Ed25519 keys given as raw bytes or JWK.
type Verifier struct{}

// New creates a new ed25519 Verifier.
func New() *Verifier {
	return &Verifier{}
}

// SupportedKeyType checks if verifier supports given key.
func (sv *Verifier) SupportedKeyType(keyType kms.KeyType) bool {
	return keyType == kms.ED25519Type
}

// Verify verifies the signature.
func (sv *Verifier) Verify(signature, msg []byte, pubKey *pubkey.PublicKey) error {
	if !sv.SupportedKeyType(pubKey.Type) {
		return fmt.Errorf("unsupported key type %s", pubKey.Type)
	}

	value, err := keyValue(pubKey)
	if err != nil {
		return err
	}

	// ed25519.Verify panics on a key of the wrong size.
	if len(value) != ed25519.PublicKeySize {
		return errors.New("ed25519: invalid key")
	}

	if len(signature) != ed25519.SignatureSize || !ed25519.Verify(value, msg, signature) {
		return errors.New("ed25519: invalid signature")
	}

	return nil
}

func keyValue(pubKey *pubkey.PublicKey) (ed25519.PublicKey, error) {
	if pubKey.JWK != nil {
		value, ok := pubKey.JWK.Public().Key.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("ed25519: jwk does not hold an ed25519 public key")
		}

		return value, nil
	}

	if pubKey.BytesKey == nil {
		return nil, errors.New("ed25519: invalid key")
	}

	return pubKey.BytesKey.Bytes, nil
}
