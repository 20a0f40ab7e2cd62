/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/samber/lo"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
)

const (
	p256KeySize      = 32
	p384KeySize      = 48
	p521KeySize      = 66
	secp256k1KeySize = 32
)

type ellipticCurve struct {
	curve   elliptic.Curve
	keySize int
	hash    crypto.Hash
}

// Verifier verifies elliptic curve signatures.
// IEEE P1363 key types accept only r||s signatures, DER key types accept only ASN.1 signatures.
type Verifier struct {
	ec          ellipticCurve
	p1363KeyTyp kms.KeyType
	derKeyType  kms.KeyType
}

// SupportedKeyType checks if verifier supports given key.
func (sv *Verifier) SupportedKeyType(keyType kms.KeyType) bool {
	return lo.Contains([]kms.KeyType{sv.p1363KeyTyp, sv.derKeyType}, keyType)
}

func (sv *Verifier) parseKey(pubKey *pubkey.PublicKey) (*ecdsa.PublicKey, error) {
	if !sv.SupportedKeyType(pubKey.Type) {
		return nil, fmt.Errorf("unsupported key type %s", pubKey.Type)
	}

	if pubKey.JWK != nil {
		ecdsaPubKey, ok := pubKey.JWK.Public().Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("ecdsa: invalid public key type")
		}

		if ecdsaPubKey.Curve.Params().Name != sv.ec.curve.Params().Name {
			return nil, fmt.Errorf("ecdsa: key curve %s does not match %s",
				ecdsaPubKey.Curve.Params().Name, sv.ec.curve.Params().Name)
		}

		return ecdsaPubKey, nil
	}

	if pubKey.BytesKey == nil {
		return nil, errors.New("ecdsa: public key is missing")
	}

	ecdsaPubKey, err := sv.createECDSAPublicKey(pubKey.BytesKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: create public key from bytes: %w", err)
	}

	return ecdsaPubKey, nil
}

// Verify verifies the signature.
func (sv *Verifier) Verify(signature, msg []byte, pubKey *pubkey.PublicKey) error {
	ecdsaPubKey, err := sv.parseKey(pubKey)
	if err != nil {
		return err
	}

	r, s, err := sv.splitSignature(signature, pubKey.Type == sv.derKeyType)
	if err != nil {
		return err
	}

	hasher := sv.ec.hash.New()
	_, _ = hasher.Write(msg)

	if !ecdsa.Verify(ecdsaPubKey, hasher.Sum(nil), r, s) {
		return errors.New("ecdsa: invalid signature")
	}

	return nil
}

func (sv *Verifier) splitSignature(signature []byte, der bool) (*big.Int, *big.Int, error) {
	if der {
		var esig struct {
			R, S *big.Int
		}

		rest, err := asn1.Unmarshal(signature, &esig)
		if err != nil || len(rest) > 0 {
			return nil, nil, errors.New("ecdsa: invalid DER signature")
		}

		return esig.R, esig.S, nil
	}

	if len(signature) != 2*sv.ec.keySize {
		return nil, nil, errors.New("ecdsa: invalid signature size")
	}

	r := new(big.Int).SetBytes(signature[:sv.ec.keySize])
	s := new(big.Int).SetBytes(signature[sv.ec.keySize:])

	return r, s, nil
}

func (sv *Verifier) createECDSAPublicKey(pubKeyBytes []byte) (*ecdsa.PublicKey, error) {
	curve := sv.ec.curve

	x, y := elliptic.Unmarshal(curve, pubKeyBytes) //nolint:staticcheck
	if x == nil {
		return nil, errors.New("invalid public key bytes")
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     x,
		Y:     y,
	}, nil
}

// NewSecp256k1 creates a verifier of ES256K signatures.
func NewSecp256k1() *Verifier {
	return &Verifier{
		ec: ellipticCurve{
			curve:   btcec.S256(),
			keySize: secp256k1KeySize,
			hash:    crypto.SHA256,
		},
		p1363KeyTyp: kms.ECDSASecp256k1TypeIEEEP1363,
		derKeyType:  kms.ECDSASecp256k1TypeDER,
	}
}

// NewES256 creates a verifier of ES256 (P-256) signatures.
func NewES256() *Verifier {
	return &Verifier{
		ec: ellipticCurve{
			curve:   elliptic.P256(),
			keySize: p256KeySize,
			hash:    crypto.SHA256,
		},
		p1363KeyTyp: kms.ECDSAP256TypeIEEEP1363,
		derKeyType:  kms.ECDSAP256TypeDER,
	}
}

// NewES384 creates a verifier of ES384 (P-384) signatures.
func NewES384() *Verifier {
	return &Verifier{
		ec: ellipticCurve{
			curve:   elliptic.P384(),
			keySize: p384KeySize,
			hash:    crypto.SHA384,
		},
		p1363KeyTyp: kms.ECDSAP384TypeIEEEP1363,
		derKeyType:  kms.ECDSAP384TypeDER,
	}
}

// NewES512 creates a verifier of ES512 (P-521) signatures.
func NewES512() *Verifier {
	return &Verifier{
		ec: ellipticCurve{
			curve:   elliptic.P521(),
			keySize: p521KeySize,
			hash:    crypto.SHA512,
		},
		p1363KeyTyp: kms.ECDSAP521TypeIEEEP1363,
		derKeyType:  kms.ECDSAP521TypeDER,
	}
}
