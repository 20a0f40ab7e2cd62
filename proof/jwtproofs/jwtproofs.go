/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jwtproofs holds the closed set of JWS algorithms together with the verifier and
// key shapes each of them accepts.
package jwtproofs

import (
	"sort"

	"github.com/samber/lo"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/ecdsa"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/ed25519"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/mldsa"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/rsa"
	"github.com/trustbloc/sdjwt-vc-go/proof"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

// Algorithm is a JWS "alg" value.
type Algorithm string

// Registered algorithms.
const (
	EdDSA   Algorithm = "EdDSA"
	ES256   Algorithm = "ES256"
	ES256K  Algorithm = "ES256K"
	ES384   Algorithm = "ES384"
	ES512   Algorithm = "ES512"
	PS256   Algorithm = "PS256"
	RS256   Algorithm = "RS256"
	MLDSA44 Algorithm = "ML-DSA-44"
	MLDSA65 Algorithm = "ML-DSA-65"
	MLDSA87 Algorithm = "ML-DSA-87"

	// None is the unsecured JWS algorithm. It is never registered.
	None Algorithm = "none"
)

// Verification method types.
const (
	JSONWebKey2020Type   = "JsonWebKey2020"
	JSONWebKeyType       = "JsonWebKey"
	MultikeyType         = "Multikey"
	Ed25519Key2018Type   = "Ed25519VerificationKey2018"
	Ed25519Key2020Type   = "Ed25519VerificationKey2020"
	Secp256k1Key2019Type = "EcdsaSecp256k1VerificationKey2019"
	Secp256r1Key2019Type = "EcdsaSecp256r1VerificationKey2019"
	RSAKey2018Type       = "RsaVerificationKey2018"
)

type signatureVerifier interface {
	// SupportedKeyType checks if verifier supports given key.
	SupportedKeyType(keyType kms.KeyType) bool
	// Verify verifies the signature.
	Verify(sig, msg []byte, pub *pubkey.PublicKey) error
}

// Proof describes one registered algorithm.
type Proof struct {
	alg          Algorithm
	supportedVMs []proof.SupportedVerificationMethod
	verifier     signatureVerifier
}

// JWTAlgorithm returns the JWS alg value.
func (p *Proof) JWTAlgorithm() string {
	return string(p.alg)
}

// Algorithm returns the algorithm.
func (p *Proof) Algorithm() Algorithm {
	return p.alg
}

// SupportedVerificationMethods returns list of verification methods supported by this algorithm.
func (p *Proof) SupportedVerificationMethods() []proof.SupportedVerificationMethod {
	return p.supportedVMs
}

// KeyTypes returns kms key types accepted by this algorithm.
func (p *Proof) KeyTypes() []kms.KeyType {
	return lo.Uniq(lo.Map(p.supportedVMs, func(vm proof.SupportedVerificationMethod, _ int) kms.KeyType {
		return vm.KMSKeyType
	}))
}

// Verify checks that the key has a shape accepted by the algorithm and verifies the signature.
func (p *Proof) Verify(signature, msg []byte, pubKey *pubkey.PublicKey) error {
	if !lo.Contains(p.KeyTypes(), pubKey.Type) || !p.verifier.SupportedKeyType(pubKey.Type) {
		return vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg %s does not accept %s keys", p.alg, pubKey.Type)
	}

	if err := p.verifier.Verify(signature, msg, pubKey); err != nil {
		return vcerr.New(vcerr.KindSignatureVerificationFailed, "alg %s: %w", p.alg, err)
	}

	return nil
}

func jwkMethods(keyType kms.KeyType, kty, crv string, plainTypes ...string) []proof.SupportedVerificationMethod {
	var vms []proof.SupportedVerificationMethod

	for _, vmType := range []string{JSONWebKey2020Type, JSONWebKeyType} {
		vms = append(vms, proof.SupportedVerificationMethod{
			VerificationMethodType: vmType,
			KMSKeyType:             keyType,
			JWKKeyType:             kty,
			JWKCurve:               crv,
			RequireJWK:             true,
		})
	}

	for _, vmType := range plainTypes {
		vms = append(vms, proof.SupportedVerificationMethod{
			VerificationMethodType: vmType,
			KMSKeyType:             keyType,
			JWKKeyType:             kty,
			JWKCurve:               crv,
		})
	}

	return vms
}

func bytesMethods(keyType kms.KeyType, vmTypes ...string) []proof.SupportedVerificationMethod {
	return lo.Map(vmTypes, func(vmType string, _ int) proof.SupportedVerificationMethod {
		return proof.SupportedVerificationMethod{VerificationMethodType: vmType, KMSKeyType: keyType}
	})
}

// nolint: gochecknoglobals
var registry = map[Algorithm]*Proof{
	EdDSA: {
		alg:          EdDSA,
		supportedVMs: jwkMethods(kms.ED25519Type, "OKP", "Ed25519", Ed25519Key2018Type, Ed25519Key2020Type, MultikeyType),
		verifier:     ed25519.New(),
	},
	ES256: {
		alg: ES256,
		supportedVMs: append(
			jwkMethods(kms.ECDSAP256TypeIEEEP1363, "EC", "P-256", Secp256r1Key2019Type, MultikeyType),
			jwkMethods(kms.ECDSAP256TypeDER, "EC", "P-256")...),
		verifier: ecdsa.NewES256(),
	},
	ES256K: {
		alg: ES256K,
		supportedVMs: append(
			jwkMethods(kms.ECDSASecp256k1TypeIEEEP1363, "EC", "secp256k1", Secp256k1Key2019Type, MultikeyType),
			jwkMethods(kms.ECDSASecp256k1TypeDER, "EC", "secp256k1")...),
		verifier: ecdsa.NewSecp256k1(),
	},
	ES384: {
		alg:          ES384,
		supportedVMs: jwkMethods(kms.ECDSAP384TypeIEEEP1363, "EC", "P-384", MultikeyType),
		verifier:     ecdsa.NewES384(),
	},
	ES512: {
		alg:          ES512,
		supportedVMs: jwkMethods(kms.ECDSAP521TypeIEEEP1363, "EC", "P-521", MultikeyType),
		verifier:     ecdsa.NewES512(),
	},
	PS256: {
		alg:          PS256,
		supportedVMs: jwkMethods(kms.RSAPS256Type, "RSA", "", RSAKey2018Type),
		verifier:     rsa.NewPS256(),
	},
	RS256: {
		alg:          RS256,
		supportedVMs: jwkMethods(kms.RSARS256Type, "RSA", "", RSAKey2018Type),
		verifier:     rsa.NewRS256(),
	},
	MLDSA44: {
		alg:          MLDSA44,
		supportedVMs: bytesMethods(pubkey.MLDSA44Type, MultikeyType),
		verifier:     mldsa.NewMLDSA44(),
	},
	MLDSA65: {
		alg:          MLDSA65,
		supportedVMs: bytesMethods(pubkey.MLDSA65Type, MultikeyType),
		verifier:     mldsa.NewMLDSA65(),
	},
	MLDSA87: {
		alg:          MLDSA87,
		supportedVMs: bytesMethods(pubkey.MLDSA87Type, MultikeyType),
		verifier:     mldsa.NewMLDSA87(),
	},
}

// Lookup returns the registered algorithm with the given name.
func Lookup(alg string) (*Proof, error) {
	if alg == "" {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "alg is not defined")
	}

	p, ok := registry[Algorithm(alg)]
	if !ok {
		return nil, vcerr.New(vcerr.KindUnsupportedAlgorithm, "unsupported jwt alg: %s", alg)
	}

	return p, nil
}

// Algorithms returns all registered algorithms in a stable order.
func Algorithms() []Algorithm {
	algs := lo.Keys(registry)

	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })

	return algs
}

// ForKeyType returns the algorithm that signs with keys of the given kms key type.
func ForKeyType(keyType kms.KeyType) (Algorithm, error) {
	for _, alg := range Algorithms() {
		if lo.Contains(registry[alg].KeyTypes(), keyType) {
			return alg, nil
		}
	}

	return "", vcerr.New(vcerr.KindUnsupportedAlgorithm, "no jwt alg supports %s keys", keyType)
}
