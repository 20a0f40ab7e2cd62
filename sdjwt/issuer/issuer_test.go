/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"testing"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose/jwk"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/checker"
	"github.com/trustbloc/sdjwt-vc-go/proof/creator"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/proof/testsupport"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
)

const (
	testIssuer = "did:example:issuer"
	testKeyID  = testIssuer + "#key-1"
)

func testClaims() map[string]interface{} {
	return map[string]interface{}{
		"iss":        testIssuer,
		"given_name": "John",
		"address": map[string]interface{}{
			"street_address": "Schulstr. 12",
			"country":        "DE",
		},
		"nationalities": []interface{}{"US", "DE"},
	}
}

func setUp(t *testing.T) (*creator.ProofCreator, *checker.ProofChecker) {
	t.Helper()

	return testsupport.NewSigVerPair(t, testsupport.SigningKey{Type: kms.ED25519Type, PublicKeyID: testKeyID})
}

func signParams() jwt.SignParameters {
	return jwt.SignParameters{KeyID: testKeyID, JWTAlg: string(jwtproofs.EdDSA)}
}

func counterSalt() func() (string, error) {
	i := 0

	return func() (string, error) {
		i++

		return fmt.Sprintf("salt-%d", i), nil
	}
}

func TestBuilder(t *testing.T) {
	proofCreator, proofChecker := setUp(t)

	t.Run("success - nested concealment and decoys", func(t *testing.T) {
		r := require.New(t)

		b, err := NewBuilder(testClaims(), WithSaltFnc(counterSalt()))
		r.NoError(err)

		// parent first, children are still applied before it.
		r.NoError(b.MakeConcealable("/address"))
		r.NoError(b.MakeConcealable("/address/street_address"))
		r.NoError(b.MakeConcealable("/given_name"))
		r.NoError(b.MakeConcealable("/nationalities/1"))
		r.NoError(b.AddDecoys("", 2))
		r.NoError(b.AddDecoys("/address", 1))

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		r.NoError(err)
		r.Len(sdJWT.Disclosures, 4)

		combined, err := sdJWT.Serialize()
		r.NoError(err)

		token, err := common.ParseSDToken(combined)
		r.NoError(err)
		r.Len(token.Disclosures, 4)
		r.Empty(token.KeyBindingJWT)

		parsed, _, err := jwt.Parse(token.IssuerJWT, jwt.WithProofChecker(proofChecker))
		r.NoError(err)

		payload := parsed.Payload
		r.Equal("sha-256", payload[common.SDAlgorithmKey])
		r.NotContains(payload, "given_name")
		r.NotContains(payload, "address")
		r.Len(payload[common.SDKey], 4)

		var digests []string
		for _, d := range payload[common.SDKey].([]interface{}) {
			digests = append(digests, d.(string))
		}

		r.True(sort.StringsAreSorted(digests))

		nationalities := payload["nationalities"].([]interface{})
		r.Len(nationalities, 2)
		r.Equal("US", nationalities[0])

		_, isPlaceholder := common.ArrayElementDigest(nationalities[1])
		r.True(isPlaceholder)

		disclosures, err := common.ParseDisclosures(token.Disclosures, crypto.SHA256)
		r.NoError(err)

		var address *common.DisclosureClaim

		for _, dc := range disclosures {
			if dc.Name == "address" {
				address = dc
			}
		}

		r.NotNil(address)
		r.Len(address.Value.(map[string]interface{})[common.SDKey], 2, "street digest and decoy")

		claims, err := common.DiscloseClaims(payload, disclosures)
		r.NoError(err)
		r.Equal(testClaims(), claims)
	})

	t.Run("success - nothing concealed", func(t *testing.T) {
		b, err := NewBuilder(testClaims())
		require.NoError(t, err)

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)
		require.Empty(t, sdJWT.Disclosures)

		combined, err := sdJWT.Serialize()
		require.NoError(t, err)
		require.Equal(t, "~", combined[len(combined)-1:])
	})

	t.Run("success - holder binding and typ", func(t *testing.T) {
		_, vm := testsupport.NewKey(t, testsupport.SigningKey{Type: kms.ED25519Type, JWK: true})

		b, err := NewBuilder(testClaims(), WithHolderPublicKey(vm.JWK), WithTyp("vc+sd-jwt"),
			WithHashAlgorithm(crypto.SHA384))
		require.NoError(t, err)

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)

		combined, err := sdJWT.Serialize()
		require.NoError(t, err)

		token, err := common.ParseSDToken(combined)
		require.NoError(t, err)

		parsed, _, err := jwt.Parse(token.IssuerJWT, jwt.WithProofChecker(proofChecker))
		require.NoError(t, err)

		require.Equal(t, "vc+sd-jwt", parsed.LookupStringHeader("typ"))
		require.Equal(t, "sha-384", parsed.Payload[common.SDAlgorithmKey])

		cnf, err := common.GetCNF(parsed.Payload)
		require.NoError(t, err)
		require.Contains(t, cnf, "jwk")
	})

	t.Run("success - private holder key is embedded as public key", func(t *testing.T) {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		b, err := NewBuilder(testClaims(), WithHolderPublicKey(&jwk.JWK{
			JSONWebKey: gojose.JSONWebKey{Key: priv},
			Kty:        "OKP",
			Crv:        "Ed25519",
		}))
		require.NoError(t, err)

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)

		combined, err := sdJWT.Serialize()
		require.NoError(t, err)

		token, err := common.ParseSDToken(combined)
		require.NoError(t, err)

		parsed, _, err := jwt.Parse(token.IssuerJWT, jwt.WithProofChecker(proofChecker))
		require.NoError(t, err)

		cnf, err := common.GetCNF(parsed.Payload)
		require.NoError(t, err)

		holderJWK, ok := cnf["jwk"].(map[string]interface{})
		require.True(t, ok)
		require.NotContains(t, holderJWK, "d")
		require.Equal(t, base64.RawURLEncoding.EncodeToString(pub), holderJWK["x"])
	})

	t.Run("error - symmetric holder key", func(t *testing.T) {
		_, err := NewBuilder(testClaims(), WithHolderPublicKey(&jwk.JWK{
			JSONWebKey: gojose.JSONWebKey{Key: []byte("0123456789abcdef")},
		}))
		require.ErrorContains(t, err, "holder public key")
	})

	t.Run("success - array decoys", func(t *testing.T) {
		b, err := NewBuilder(testClaims(), WithSaltFnc(counterSalt()))
		require.NoError(t, err)

		require.NoError(t, b.MakeConcealable("/nationalities/0"))
		require.NoError(t, b.AddDecoys("/nationalities", 2))

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)
		require.Len(t, sdJWT.Disclosures, 1)

		nationalities, ok := sdJWT.SignedJWT.Payload["nationalities"].([]interface{})
		require.True(t, ok)
		require.Len(t, nationalities, 4)
		require.Equal(t, "DE", nationalities[1])

		for _, i := range []int{0, 2, 3} {
			_, isPlaceholder := common.ArrayElementDigest(nationalities[i])
			require.True(t, isPlaceholder)
		}

		claims, err := common.DiscloseClaims(sdJWT.SignedJWT.Payload, sdJWT.Disclosures)
		require.NoError(t, err)
		require.Equal(t, "US", claims["nationalities"].([]interface{})[0])
	})

	t.Run("success - holder key id", func(t *testing.T) {
		b, err := NewBuilder(testClaims(), WithHolderKeyID("did:example:holder#key-1"))
		require.NoError(t, err)

		sdJWT, err := b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)
		require.Equal(t, map[string]interface{}{"kid": "did:example:holder#key-1"},
			sdJWT.SignedJWT.Payload[common.CNFKey])
	})

	t.Run("error - finished builder", func(t *testing.T) {
		b, err := NewBuilder(testClaims())
		require.NoError(t, err)

		_, err = b.Finish(context.Background(), proofCreator, signParams())
		require.NoError(t, err)

		require.ErrorIs(t, b.MakeConcealable("/given_name"), ErrBuilderFinished)
		require.ErrorIs(t, b.AddDecoys("", 1), ErrBuilderFinished)

		_, err = b.Finish(context.Background(), proofCreator, signParams())
		require.ErrorIs(t, err, ErrBuilderFinished)
	})

	t.Run("error - sign failure consumes builder", func(t *testing.T) {
		b, err := NewBuilder(testClaims())
		require.NoError(t, err)

		_, err = b.Finish(context.Background(), proofCreator, jwt.SignParameters{JWTAlg: "ES256"})
		require.ErrorContains(t, err, "failed to create SD-JWT")

		_, err = b.Finish(context.Background(), proofCreator, signParams())
		require.ErrorIs(t, err, ErrBuilderFinished)
	})

	t.Run("error - salt", func(t *testing.T) {
		b, err := NewBuilder(testClaims(), WithSaltFnc(func() (string, error) {
			return "", fmt.Errorf("no entropy")
		}))
		require.NoError(t, err)
		require.NoError(t, b.MakeConcealable("/given_name"))

		_, err = b.Finish(context.Background(), proofCreator, signParams())
		require.ErrorContains(t, err, "no entropy")
	})
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("invalid options and claims", func(t *testing.T) {
		_, err := NewBuilder(testClaims(), WithHashAlgorithm(crypto.MD5))
		require.ErrorContains(t, err, "not supported")

		_, err = NewBuilder(testClaims(), WithHolderKeyID("kid"),
			WithHolderPublicKey(testsupportJWK(t)))
		require.ErrorContains(t, err, "mutually exclusive")

		_, err = NewBuilder(map[string]interface{}{"a": map[string]interface{}{"_sd": "x"}})
		require.ErrorContains(t, err, "key '_sd' cannot be present in the claims")

		_, err = NewBuilder(map[string]interface{}{"a": []interface{}{map[string]interface{}{"...": "x"}}})
		require.ErrorContains(t, err, "key '...' cannot be present in the claims")

		_, err = NewBuilder("not json")
		require.ErrorContains(t, err, "convert payload to map")
	})

	b, err := NewBuilder(testClaims())
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{name: "root", path: "", errMsg: "the root object cannot be concealed"},
		{name: "not a pointer", path: "given_name", errMsg: "invalid claim path"},
		{name: "missing claim", path: "/family_name", errMsg: "claim '/family_name' not found"},
		{name: "index out of range", path: "/nationalities/2", errMsg: "out of range"},
		{name: "not an index", path: "/nationalities/x", errMsg: "out of range"},
		{name: "scalar container", path: "/given_name/x", errMsg: "claim '/given_name' is not a container"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorContains(t, b.MakeConcealable(tc.path), tc.errMsg)
		})
	}

	t.Run("duplicate path", func(t *testing.T) {
		require.NoError(t, b.MakeConcealable("/given_name"))
		require.ErrorContains(t, b.MakeConcealable("/given_name"), "already concealable")
	})

	t.Run("decoys", func(t *testing.T) {
		require.ErrorContains(t, b.AddDecoys("/given_name", 1), "decoys can be added to objects and arrays only")
		require.ErrorContains(t, b.AddDecoys("", -1), "invalid decoy count")
		require.ErrorContains(t, b.AddDecoys("/missing", 1), "not found")
	})
}

func testsupportJWK(t *testing.T) *jwk.JWK {
	t.Helper()

	_, vm := testsupport.NewKey(t, testsupport.SigningKey{Type: kms.ECDSAP256TypeIEEEP1363, JWK: true})

	return vm.JWK
}
