/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cloudflare/circl/sign/schemes"
	"github.com/trustbloc/kms-go/doc/jose/jwk/jwksupport"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
)

const rsaKeySize = 2048

// CreateEd25519 creates signer and corresponding public key.
func CreateEd25519(jwkVM bool) (*Ed25519Signer, *pubkey.PublicKey, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	pub := &pubkey.PublicKey{
		Type:     kms.ED25519Type,
		BytesKey: &pubkey.BytesKey{Bytes: pubKey},
	}

	if jwkVM {
		pubJWK, err := jwksupport.JWKFromKey(pubKey)
		if err != nil {
			return nil, nil, err
		}

		pub = &pubkey.PublicKey{Type: kms.ED25519Type, JWK: pubJWK}
	}

	return NewEd25519Signer(privKey), pub, nil
}

// CreateRSARS256 creates signer and corresponding public key.
func CreateRSARS256(jwkVM bool) (*RS256Signer, *pubkey.PublicKey, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, nil, err
	}

	pub, err := rsaPublicKey(&privKey.PublicKey, kms.RSARS256Type, jwkVM)
	if err != nil {
		return nil, nil, err
	}

	return NewRS256Signer(privKey), pub, nil
}

// CreateRSAPS256 creates signer and corresponding public key.
func CreateRSAPS256(jwkVM bool) (*PS256Signer, *pubkey.PublicKey, error) {
	privKey, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, nil, err
	}

	pub, err := rsaPublicKey(&privKey.PublicKey, kms.RSAPS256Type, jwkVM)
	if err != nil {
		return nil, nil, err
	}

	return NewPS256Signer(privKey), pub, nil
}

func rsaPublicKey(pubKey *rsa.PublicKey, keyType kms.KeyType, jwkVM bool) (*pubkey.PublicKey, error) {
	if !jwkVM {
		return &pubkey.PublicKey{
			Type:     keyType,
			BytesKey: &pubkey.BytesKey{Bytes: x509.MarshalPKCS1PublicKey(pubKey)},
		}, nil
	}

	pubJWK, err := jwksupport.JWKFromKey(pubKey)
	if err != nil {
		return nil, err
	}

	return &pubkey.PublicKey{Type: keyType, JWK: pubJWK}, nil
}

// CreateECDSA creates signer and public key for one of P-256, P-384, P-521 and secp256k1.
func CreateECDSA(keyType kms.KeyType, jwkVM bool) (*ECDSASigner, *pubkey.PublicKey, error) {
	var (
		curve elliptic.Curve
		hash  crypto.Hash
	)

	switch keyType {
	case kms.ECDSAP256TypeIEEEP1363:
		curve, hash = elliptic.P256(), crypto.SHA256
	case kms.ECDSAP384TypeIEEEP1363:
		curve, hash = elliptic.P384(), crypto.SHA384
	case kms.ECDSAP521TypeIEEEP1363:
		curve, hash = elliptic.P521(), crypto.SHA512
	case kms.ECDSASecp256k1TypeIEEEP1363:
		curve, hash = btcec.S256(), crypto.SHA256
	default:
		return nil, nil, fmt.Errorf("unsupported key type %s", keyType)
	}

	privKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	pubKey := &privKey.PublicKey

	pub := &pubkey.PublicKey{
		Type:     keyType,
		BytesKey: &pubkey.BytesKey{Bytes: elliptic.Marshal(pubKey.Curve, pubKey.X, pubKey.Y)}, //nolint:staticcheck
	}

	if jwkVM {
		pubJWK, err := jwksupport.JWKFromKey(pubKey)
		if err != nil {
			return nil, nil, err
		}

		pub = &pubkey.PublicKey{Type: keyType, JWK: pubJWK}
	}

	return NewECDSASigner(privKey, hash), pub, nil
}

// CreateMLDSA creates signer and public key for the given ML-DSA parameter set.
func CreateMLDSA(keyType kms.KeyType) (*MLDSASigner, *pubkey.PublicKey, error) {
	scheme := schemes.ByName(string(keyType))
	if scheme == nil {
		return nil, nil, fmt.Errorf("unsupported key type %s", keyType)
	}

	pubKey, privKey, err := scheme.GenerateKey()
	if err != nil {
		return nil, nil, err
	}

	pubBytes, err := pubKey.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	return NewMLDSASigner(scheme, privKey), &pubkey.PublicKey{
		Type:     keyType,
		BytesKey: &pubkey.BytesKey{Bytes: pubBytes},
	}, nil
}
