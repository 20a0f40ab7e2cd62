/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdsa_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose/jwk/jwksupport"
	kmsapi "github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/pubkey"
	"github.com/trustbloc/sdjwt-vc-go/crypto-ext/testutil"
	ecdsaverifier "github.com/trustbloc/sdjwt-vc-go/crypto-ext/verifiers/ecdsa"
)

func TestVerifier(t *testing.T) {
	msg := []byte("test message")

	tests := []struct {
		name      string
		sVerifier *ecdsaverifier.Verifier
		keyType   kmsapi.KeyType
	}{
		{name: "ES256", sVerifier: ecdsaverifier.NewES256(), keyType: kmsapi.ECDSAP256TypeIEEEP1363},
		{name: "ES384", sVerifier: ecdsaverifier.NewES384(), keyType: kmsapi.ECDSAP384TypeIEEEP1363},
		{name: "ES512", sVerifier: ecdsaverifier.NewES512(), keyType: kmsapi.ECDSAP521TypeIEEEP1363},
		{name: "ES256K", sVerifier: ecdsaverifier.NewSecp256k1(), keyType: kmsapi.ECDSASecp256k1TypeIEEEP1363},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, jwkVM := range []bool{true, false} {
				signer, pubKey, err := testutil.CreateECDSA(tc.keyType, jwkVM)
				require.NoError(t, err)

				msgSig, err := signer.Sign(msg)
				require.NoError(t, err)

				require.NoError(t, tc.sVerifier.Verify(msgSig, msg, pubKey))

				err = tc.sVerifier.Verify(msgSig, []byte("tampered"), pubKey)
				require.EqualError(t, err, "ecdsa: invalid signature")

				err = tc.sVerifier.Verify(msgSig[1:], msg, pubKey)
				require.EqualError(t, err, "ecdsa: invalid signature size")
			}
		})
	}

	t.Run("success - DER signature with DER key type", func(t *testing.T) {
		privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		digest := sha256Sum(msg)

		r, s, err := ecdsa.Sign(rand.Reader, privKey, digest)
		require.NoError(t, err)

		der, err := asn1.Marshal(struct{ R, S *big.Int }{r, s})
		require.NoError(t, err)

		pubJWK, err := jwksupport.JWKFromKey(&privKey.PublicKey)
		require.NoError(t, err)

		v := ecdsaverifier.NewES256()

		require.NoError(t, v.Verify(der, msg, &pubkey.PublicKey{Type: kmsapi.ECDSAP256TypeDER, JWK: pubJWK}))

		err = v.Verify(der, msg, &pubkey.PublicKey{Type: kmsapi.ECDSAP256TypeIEEEP1363, JWK: pubJWK})
		require.EqualError(t, err, "ecdsa: invalid signature size")

		err = v.Verify([]byte("not der"), msg, &pubkey.PublicKey{Type: kmsapi.ECDSAP256TypeDER, JWK: pubJWK})
		require.EqualError(t, err, "ecdsa: invalid DER signature")
	})

	t.Run("error - key of other curve", func(t *testing.T) {
		_, pubKey, err := testutil.CreateECDSA(kmsapi.ECDSAP384TypeIEEEP1363, true)
		require.NoError(t, err)

		pubKey.Type = kmsapi.ECDSAP256TypeIEEEP1363

		err = ecdsaverifier.NewES256().Verify(make([]byte, 64), msg, pubKey)
		require.EqualError(t, err, "ecdsa: key curve P-384 does not match P-256")
	})

	t.Run("error - unsupported key type", func(t *testing.T) {
		err := ecdsaverifier.NewES256().Verify(nil, msg, &pubkey.PublicKey{Type: kmsapi.ED25519Type})
		require.EqualError(t, err, "unsupported key type ED25519")
	})

	t.Run("error - invalid key bytes", func(t *testing.T) {
		err := ecdsaverifier.NewES256().Verify(make([]byte, 64), msg, &pubkey.PublicKey{
			Type:     kmsapi.ECDSAP256TypeIEEEP1363,
			BytesKey: &pubkey.BytesKey{Bytes: []byte("invalid")},
		})
		require.EqualError(t, err, "ecdsa: create public key from bytes: invalid public key bytes")

		err = ecdsaverifier.NewES256().Verify(make([]byte, 64), msg, &pubkey.PublicKey{
			Type: kmsapi.ECDSAP256TypeIEEEP1363,
		})
		require.EqualError(t, err, "ecdsa: public key is missing")
	})
}
