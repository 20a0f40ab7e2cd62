/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"

	"github.com/cloudflare/circl/sign"
)

// Ed25519Signer signs with an ed25519 private key.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
}

// NewEd25519Signer creates Ed25519Signer.
func NewEd25519Signer(privKey ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{privKey: privKey}
}

// Sign data.
func (s *Ed25519Signer) Sign(data []byte) ([]byte, error) {
	if len(s.privKey) != ed25519.PrivateKeySize {
		return nil, errors.New("ed25519: bad private key length")
	}

	return ed25519.Sign(s.privKey, data), nil
}

// RS256Signer makes RSASSA-PKCS1-v1_5 SHA-256 signatures.
type RS256Signer struct {
	privKey *rsa.PrivateKey
}

// NewRS256Signer creates RS256Signer.
func NewRS256Signer(privKey *rsa.PrivateKey) *RS256Signer {
	return &RS256Signer{privKey: privKey}
}

// Sign data.
func (s *RS256Signer) Sign(data []byte) ([]byte, error) {
	hashed := crypto.SHA256.New()
	_, _ = hashed.Write(data)

	return rsa.SignPKCS1v15(rand.Reader, s.privKey, crypto.SHA256, hashed.Sum(nil))
}

// PS256Signer makes RSASSA-PSS SHA-256 signatures.
type PS256Signer struct {
	privKey *rsa.PrivateKey
}

// NewPS256Signer creates PS256Signer.
func NewPS256Signer(privKey *rsa.PrivateKey) *PS256Signer {
	return &PS256Signer{privKey: privKey}
}

// Sign data.
func (s *PS256Signer) Sign(data []byte) ([]byte, error) {
	hashed := crypto.SHA256.New()
	_, _ = hashed.Write(data)

	return rsa.SignPSS(rand.Reader, s.privKey, crypto.SHA256, hashed.Sum(nil), &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
}

// ECDSASigner makes ECDSA signatures in IEEE P1363 (r||s) form.
type ECDSASigner struct {
	privateKey *ecdsa.PrivateKey
	hash       crypto.Hash
}

// NewECDSASigner creates ECDSASigner.
func NewECDSASigner(privKey *ecdsa.PrivateKey, hash crypto.Hash) *ECDSASigner {
	return &ECDSASigner{privateKey: privKey, hash: hash}
}

// Sign signs a message.
func (es *ECDSASigner) Sign(msg []byte) ([]byte, error) {
	hasher := es.hash.New()
	_, _ = hasher.Write(msg)

	r, s, err := ecdsa.Sign(rand.Reader, es.privateKey, hasher.Sum(nil))
	if err != nil {
		return nil, err
	}

	keyBytes := (es.privateKey.Curve.Params().BitSize + 7) / 8 //nolint:gomnd

	copyPadded := func(source []byte, size int) []byte {
		dest := make([]byte, size)
		copy(dest[size-len(source):], source)

		return dest
	}

	return append(copyPadded(r.Bytes(), keyBytes), copyPadded(s.Bytes(), keyBytes)...), nil
}

// MLDSASigner makes ML-DSA signatures.
type MLDSASigner struct {
	scheme  sign.Scheme
	privKey sign.PrivateKey
}

// NewMLDSASigner creates MLDSASigner.
func NewMLDSASigner(scheme sign.Scheme, privKey sign.PrivateKey) *MLDSASigner {
	return &MLDSASigner{scheme: scheme, privKey: privKey}
}

// Sign signs a message.
func (s *MLDSASigner) Sign(msg []byte) ([]byte, error) {
	return s.scheme.Sign(s.privKey, msg, nil), nil
}
