/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/go-jose/go-jose/v3/json"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/testsupport"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	issuerDID = "did:example:issuer"
	issuerKID = issuerDID + "#key-1"
)

type CustomClaim struct {
	*jwt.Claims

	PrivateClaim1 string `json:"privateClaim1,omitempty"`
}

func newClaims() *CustomClaim {
	return &CustomClaim{
		Claims: &jwt.Claims{
			Issuer:  issuerDID,
			Subject: "did:example:holder",
			ID:      "urn:uuid:1",
		},
		PrivateClaim1: "private claim",
	}
}

func TestNewSigned(t *testing.T) {
	r := require.New(t)

	proofCreator, proofChecker := testsupport.NewSigVerPair(t,
		testsupport.SigningKey{Type: kms.ED25519Type, PublicKeyID: issuerKID})

	params := jwt.SignParameters{JWTAlg: "EdDSA", KeyID: issuerKID}

	t.Run("success - round trip", func(t *testing.T) {
		token, err := jwt.NewSigned(context.Background(), newClaims(), params, proofCreator)
		r.NoError(err)

		serialized, err := token.Serialize(false)
		r.NoError(err)
		r.True(jwt.IsJWS(serialized))
		r.False(jwt.IsJWTUnsecured(serialized))

		parsed, payload, err := jwt.Parse(serialized, jwt.WithProofChecker(proofChecker))
		r.NoError(err)
		r.Equal(token.Payload["privateClaim1"], parsed.Payload["privateClaim1"])
		r.Equal("EdDSA", parsed.LookupStringHeader(jose.HeaderAlgorithm))
		r.Equal(issuerKID, parsed.LookupStringHeader(jose.HeaderKeyID))

		var claims CustomClaim
		r.NoError(parsed.DecodeClaims(&claims))
		r.Equal(issuerDID, claims.Issuer)
		r.JSONEq(string(payload), mustMarshal(t, parsed.Payload))

		reserialized, err := parsed.Serialize(false)
		r.NoError(err)
		r.Equal(serialized, reserialized)
	})

	t.Run("success - verification is idempotent", func(t *testing.T) {
		token, err := jwt.NewSigned(context.Background(), newClaims(), params, proofCreator)
		r.NoError(err)

		for i := 0; i < 3; i++ {
			r.NoError(token.Compact().Verify(context.Background(), proofChecker, issuerDID))
		}
	})

	t.Run("success - detached payload", func(t *testing.T) {
		token, err := jwt.NewSigned(context.Background(), newClaims(), params, proofCreator)
		r.NoError(err)

		detached, err := token.Serialize(true)
		r.NoError(err)
		r.Contains(detached, "..")

		_, _, err = jwt.Parse(detached, jwt.WithProofChecker(proofChecker),
			jwt.WithJWTDetachedPayload(token.Compact().Payload))
		r.NoError(err)

		_, _, err = jwt.Parse(detached, jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrMalformedEncoding)
	})

	t.Run("error - unknown alg", func(t *testing.T) {
		_, err := jwt.NewSigned(context.Background(), newClaims(),
			jwt.SignParameters{JWTAlg: "HS256", KeyID: issuerKID}, proofCreator)
		r.ErrorIs(err, vcerr.ErrUnsupportedAlgorithm)
	})

	t.Run("error - canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := jwt.NewSigned(ctx, newClaims(), params, proofCreator)
		r.Error(err)
	})
}

func TestParse(t *testing.T) {
	r := require.New(t)

	proofCreator, proofChecker := testsupport.NewSigVerPair(t,
		testsupport.SigningKey{Type: kms.ECDSAP256TypeIEEEP1363, PublicKeyID: issuerKID, JWK: true})

	token, err := jwt.NewSigned(context.Background(), newClaims(),
		jwt.SignParameters{JWTAlg: "ES256", KeyID: issuerKID}, proofCreator)
	r.NoError(err)

	serialized, err := token.Serialize(false)
	r.NoError(err)

	t.Run("success - without proof checker the token is only decoded", func(t *testing.T) {
		parsed, _, err := jwt.Parse(serialized)
		r.NoError(err)
		r.Equal(issuerDID, parsed.Payload["iss"])
	})

	t.Run("success - ignore claims map decoding", func(t *testing.T) {
		parsed, payload, err := jwt.Parse(serialized, jwt.WithIgnoreClaimsMapDecoding(true))
		r.NoError(err)
		r.Nil(parsed.Payload)
		r.NotEmpty(payload)
	})

	t.Run("error - tampered payload", func(t *testing.T) {
		parts := strings.Split(serialized, ".")

		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		r.NoError(err)

		payload, err = sjson.SetBytes(payload, "privateClaim1", "changed")
		r.NoError(err)

		parts[1] = base64.RawURLEncoding.EncodeToString(payload)

		_, _, err = jwt.Parse(strings.Join(parts, "."), jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrSignatureVerificationFailed)
	})

	t.Run("error - tampered signature", func(t *testing.T) {
		parts := strings.Split(serialized, ".")

		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		r.NoError(err)

		sig[0] ^= 0xff
		parts[2] = base64.RawURLEncoding.EncodeToString(sig)

		_, _, err = jwt.Parse(strings.Join(parts, "."), jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrSignatureVerificationFailed)
	})

	t.Run("error - wrong expected issuer", func(t *testing.T) {
		_, _, err = jwt.Parse(serialized, jwt.WithProofChecker(proofChecker),
			jwt.WithExpectedIssuer("did:example:other"))
		r.Error(err)
	})

	t.Run("error - malformed encodings", func(t *testing.T) {
		parts := strings.Split(serialized, ".")

		for _, malformed := range []string{
			parts[0] + "." + parts[1],
			serialized + ".abc",
			parts[0] + "=." + parts[1] + "." + parts[2],
			parts[0] + "." + parts[1] + "." + parts[2] + "!",
			base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)) + "." + parts[1] + "." + parts[2],
			base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"ES256"}`)) + ".bm90IGpzb24." + parts[2],
		} {
			_, _, err := jwt.Parse(malformed)
			r.ErrorIs(err, vcerr.ErrMalformedEncoding, malformed)
		}
	})

	t.Run("error - unregistered alg", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","kid":"` + issuerKID + `"}`))
		parts := strings.Split(serialized, ".")

		_, _, err := jwt.Parse(header+"."+parts[1]+"."+parts[2], jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrUnsupportedAlgorithm)
	})

	t.Run("error - missing alg", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"kid":"` + issuerKID + `"}`))
		parts := strings.Split(serialized, ".")

		_, _, err := jwt.Parse(header+"."+parts[1]+"."+parts[2], jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrUnsupportedAlgorithm)
	})
}

func TestUnsecured(t *testing.T) {
	r := require.New(t)

	token, err := jwt.NewUnsecured(newClaims())
	r.NoError(err)

	serialized, err := token.Serialize(false)
	r.NoError(err)
	r.True(jwt.IsJWTUnsecured(serialized))

	t.Run("success - explicit unsecured verifier", func(t *testing.T) {
		parsed, _, err := jwt.Parse(serialized, jwt.WithProofChecker(jwt.UnsecuredJWTVerifier()))
		r.NoError(err)
		r.Equal(issuerDID, parsed.Payload["iss"])
	})

	t.Run("error - none is rejected by default", func(t *testing.T) {
		_, _, err := jwt.Parse(serialized)
		r.ErrorIs(err, vcerr.ErrUnsupportedAlgorithm)

		_, proofChecker := testsupport.NewSigVerPair(t,
			testsupport.SigningKey{Type: kms.ED25519Type, PublicKeyID: issuerKID})

		_, _, err = jwt.Parse(serialized, jwt.WithProofChecker(proofChecker))
		r.ErrorIs(err, vcerr.ErrUnsupportedAlgorithm)
	})
}

func TestCheckHeaders(t *testing.T) {
	r := require.New(t)

	r.NoError(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA"}))
	r.NoError(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": "JWT"}))
	r.NoError(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": "vc+sd-jwt"}))
	r.NoError(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": "kb+jwt"}))

	r.ErrorIs(jwt.CheckHeaders(map[string]interface{}{"typ": "JWT"}), vcerr.ErrUnsupportedAlgorithm)
	r.ErrorContains(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": 1}),
		"invalid typ header format")
	r.ErrorContains(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": "vc+ld"}),
		"invalid typ header")
	r.ErrorContains(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "typ": "JOSE"}),
		"typ is not JWT")
	r.ErrorContains(jwt.CheckHeaders(map[string]interface{}{"alg": "EdDSA", "cty": "JWT"}),
		"nested JWT is not supported")
}

func TestEncodeDecode(t *testing.T) {
	r := require.New(t)

	serialized, err := jwt.Encode(jose.Headers{"kid": "k", "alg": "EdDSA"}, []byte(`{"a":1}`), []byte{1, 2, 3})
	r.NoError(err)

	header, err := base64.RawURLEncoding.DecodeString(strings.Split(serialized, ".")[0])
	r.NoError(err)
	r.Equal(`{"alg":"EdDSA","kid":"k"}`, string(header))

	token, err := jwt.Decode(serialized)
	r.NoError(err)
	r.Equal([]byte(`{"a":1}`), token.Payload)
	r.Equal([]byte{1, 2, 3}, token.Signature)
	r.Equal("EdDSA", token.Algorithm())
	r.Equal(serialized, token.Serialize(false))
	r.Equal(strings.Join(strings.Split(serialized, ".")[:2], "."), string(token.SigningInput()))

	_, err = jwt.Decode("a.b")
	r.ErrorIs(err, vcerr.ErrMalformedEncoding)
}

func mustMarshal(t *testing.T, v interface{}) string {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return string(b)
}
