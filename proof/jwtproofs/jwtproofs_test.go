/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwtproofs_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/testutil"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

func TestLookup(t *testing.T) {
	t.Run("success - every algorithm is registered once", func(t *testing.T) {
		algs := jwtproofs.Algorithms()
		require.Len(t, algs, 10)

		for _, alg := range algs {
			p, err := jwtproofs.Lookup(string(alg))
			require.NoError(t, err)
			require.Equal(t, string(alg), p.JWTAlgorithm())
			require.NotEmpty(t, p.SupportedVerificationMethods())
			require.NotEmpty(t, p.KeyTypes())
		}
	})

	t.Run("error - none and unknown algorithms", func(t *testing.T) {
		for _, alg := range []string{"none", "HS256", "", "eddsa"} {
			_, err := jwtproofs.Lookup(alg)
			require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
		}
	})
}

func TestForKeyType(t *testing.T) {
	alg, err := jwtproofs.ForKeyType(kms.ED25519Type)
	require.NoError(t, err)
	require.Equal(t, jwtproofs.EdDSA, alg)

	alg, err = jwtproofs.ForKeyType(kms.ECDSASecp256k1TypeIEEEP1363)
	require.NoError(t, err)
	require.Equal(t, jwtproofs.ES256K, alg)

	alg, err = jwtproofs.ForKeyType(pubkey.MLDSA65Type)
	require.NoError(t, err)
	require.Equal(t, jwtproofs.MLDSA65, alg)

	_, err = jwtproofs.ForKeyType(kms.BLS12381G2Type)
	require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
}

func TestProofVerify(t *testing.T) {
	msg := []byte("message")

	signer, pubKey, err := testutil.CreateEd25519(true)
	require.NoError(t, err)

	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	eddsa, err := jwtproofs.Lookup("EdDSA")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		require.NoError(t, eddsa.Verify(sig, msg, pubKey))
	})

	t.Run("error - signature mismatch", func(t *testing.T) {
		err := eddsa.Verify(sig, []byte("other"), pubKey)
		require.ErrorIs(t, err, vcerr.ErrSignatureVerificationFailed)
	})

	t.Run("error - key shape of another algorithm", func(t *testing.T) {
		es256, err := jwtproofs.Lookup("ES256")
		require.NoError(t, err)

		err = es256.Verify(sig, msg, pubKey)
		require.ErrorIs(t, err, vcerr.ErrUnsupportedAlgorithm)
		require.Contains(t, err.Error(), "alg ES256 does not accept ED25519 keys")
	})
}
