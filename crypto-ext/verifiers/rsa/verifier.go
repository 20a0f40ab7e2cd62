/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rsa

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
)

const minKeyBits = 2048

type padding int

const (
	paddingPKCS1v15 padding = iota
	paddingPSS
)

// Verifier verifies RSA SHA-256 signatures taking PKCS#1 public key bytes or JWK as input.
type Verifier struct {
	keyType kms.KeyType
	padding padding
}

// NewPS256 creates a verifier of RSASSA-PSS SHA-256 signatures.
func NewPS256() *Verifier {
	return &Verifier{keyType: kms.RSAPS256Type, padding: paddingPSS}
}

// NewRS256 creates a verifier of RSASSA-PKCS1-v1_5 SHA-256 signatures.
func NewRS256() *Verifier {
	return &Verifier{keyType: kms.RSARS256Type, padding: paddingPKCS1v15}
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

	pubKey, err := parseKey(key)
	if err != nil {
		return err
	}

	if pubKey.N.BitLen() < minKeyBits {
		return fmt.Errorf("rsa: key size %d is below %d bits", pubKey.N.BitLen(), minKeyBits)
	}

	hasher := crypto.SHA256.New()
	_, _ = hasher.Write(msg)
	hashed := hasher.Sum(nil)

	switch sv.padding {
	case paddingPSS:
		err = rsa.VerifyPSS(pubKey, crypto.SHA256, hashed, signature, nil)
	default:
		err = rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, hashed, signature)
	}

	if err != nil {
		return errors.New("rsa: invalid signature")
	}

	return nil
}

func parseKey(key *pubkey.PublicKey) (*rsa.PublicKey, error) {
	if key.JWK != nil {
		pubKey, ok := key.JWK.Public().Key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("rsa: invalid public key")
		}

		return pubKey, nil
	}

	if key.BytesKey == nil {
		return nil, errors.New("rsa: invalid public key")
	}

	pubKey, err := x509.ParsePKCS1PublicKey(key.BytesKey.Bytes)
	if err != nil {
		return nil, errors.New("rsa: invalid public key")
	}

	return pubKey, nil
}
