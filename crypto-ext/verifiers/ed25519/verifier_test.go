/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ed25519_test

import (
	"testing"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose/jwk"
	kmsapi "github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/testutil"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/ed25519"
)

func TestNewEd25519SignatureVerifier(t *testing.T) {
	v := ed25519.New()
	require.NotNil(t, v)

	msg := []byte("test message")

	for _, jwkVM := range []bool{true, false} {
		signer, pubKey, err := testutil.CreateEd25519(jwkVM)
		require.NoError(t, err)

		msgSig, err := signer.Sign(msg)
		require.NoError(t, err)

		require.NoError(t, v.Verify(msgSig, msg, pubKey))

		err = v.Verify([]byte("invalid signature"), msg, pubKey)
		require.EqualError(t, err, "ed25519: invalid signature")

		err = v.Verify(msgSig, []byte("other message"), pubKey)
		require.EqualError(t, err, "ed25519: invalid signature")
	}

	t.Run("error - invalid key bytes", func(t *testing.T) {
		err := v.Verify([]byte("sig"), msg, &pubkey.PublicKey{
			Type:     kmsapi.ED25519Type,
			BytesKey: &pubkey.BytesKey{Bytes: []byte("invalid-key")},
		})
		require.EqualError(t, err, "ed25519: invalid key")

		err = v.Verify([]byte("sig"), msg, &pubkey.PublicKey{Type: kmsapi.ED25519Type})
		require.EqualError(t, err, "ed25519: invalid key")
	})

	t.Run("error - unsupported key type", func(t *testing.T) {
		err := v.Verify([]byte("sig"), msg, &pubkey.PublicKey{
			Type:     kmsapi.RSAPS256Type,
			BytesKey: &pubkey.BytesKey{Bytes: []byte("invalid-key")},
		})
		require.EqualError(t, err, "unsupported key type RSAPS256")
	})

	t.Run("error - jwk of another type", func(t *testing.T) {
		err := v.Verify([]byte("sig"), msg, &pubkey.PublicKey{
			Type: kmsapi.ED25519Type,
			JWK: &jwk.JWK{
				JSONWebKey: gojose.JSONWebKey{Key: "foo"},
				Kty:        "OKP",
				Crv:        "Ed25519",
			},
		})
		require.EqualError(t, err, "ed25519: jwk does not hold an ed25519 public key")
	})
}
