/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testsupport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/testutil"
	"github.com/trustbloc/sdjwt-vc-go/proof/checker"
	"github.com/trustbloc/sdjwt-vc-go/proof/creator"
	"github.com/trustbloc/sdjwt-vc-go/proof/defaults"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/vermethod"
)

// SigningKey describes a test key.
type SigningKey struct {
	Type        kms.KeyType
	PublicKeyID string
	// JWK publishes the key as JsonWebKey2020 instead of raw bytes.
	JWK bool
}

// Signer signs raw data.
type Signer interface {
	Sign(data []byte) ([]byte, error)
}

// NewSingleKeyResolver returns resolver that knows one key.
func NewSingleKeyResolver(lookupID string, vm *vermethod.VerificationMethod) vermethod.StaticResolver {
	return vermethod.StaticResolver{lookupID: vm}
}

// NewKey generates a key of the given type and returns its signer and verification method.
func NewKey(t *testing.T, key SigningKey) (Signer, *vermethod.VerificationMethod) {
	t.Helper()

	var (
		signer Signer
		pub    *pubkey.PublicKey
		err    error
	)

	switch key.Type {
	case kms.ED25519Type:
		signer, pub, err = testutil.CreateEd25519(key.JWK)
	case kms.RSARS256Type:
		signer, pub, err = testutil.CreateRSARS256(key.JWK)
	case kms.RSAPS256Type:
		signer, pub, err = testutil.CreateRSAPS256(key.JWK)
	case pubkey.MLDSA44Type, pubkey.MLDSA65Type, pubkey.MLDSA87Type:
		signer, pub, err = testutil.CreateMLDSA(key.Type)
	default:
		signer, pub, err = testutil.CreateECDSA(key.Type, key.JWK)
	}

	require.NoError(t, err)

	if pub.JWK != nil {
		return signer, &vermethod.VerificationMethod{Type: jwtproofs.JSONWebKey2020Type, JWK: pub.JWK}
	}

	return signer, &vermethod.VerificationMethod{Type: bytesVMType(key.Type), Value: pub.BytesKey.Bytes}
}

// NewSigVerPairs creates one proof creator per key and a checker that resolves all of them.
func NewSigVerPairs(t *testing.T, keys []SigningKey) ([]*creator.ProofCreator, *checker.ProofChecker) {
	t.Helper()

	resolver := vermethod.StaticResolver{}

	var creators []*creator.ProofCreator

	for _, key := range keys {
		signer, vm := NewKey(t, key)

		alg, err := jwtproofs.ForKeyType(key.Type)
		require.NoError(t, err)

		proof, err := jwtproofs.Lookup(string(alg))
		require.NoError(t, err)

		creators = append(creators, creator.New(creator.WithJWTAlg(proof, signer)))
		resolver[key.PublicKeyID] = vm
	}

	return creators, defaults.NewDefaultProofChecker(resolver)
}

// NewSigVerPair creates proof creator and checker for a single key.
func NewSigVerPair(t *testing.T, key SigningKey) (*creator.ProofCreator, *checker.ProofChecker) {
	t.Helper()

	creators, proofChecker := NewSigVerPairs(t, []SigningKey{key})

	return creators[0], proofChecker
}

func bytesVMType(keyType kms.KeyType) string {
	switch keyType {
	case kms.ED25519Type:
		return jwtproofs.Ed25519Key2018Type
	case kms.ECDSASecp256k1TypeIEEEP1363:
		return jwtproofs.Secp256k1Key2019Type
	case kms.ECDSAP256TypeIEEEP1363:
		return jwtproofs.Secp256r1Key2019Type
	case kms.RSARS256Type, kms.RSAPS256Type:
		return jwtproofs.RSAKey2018Type
	default:
		return jwtproofs.MultikeyType
	}
}
