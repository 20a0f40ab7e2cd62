/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder_test

import (
	"context"
	"crypto"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/spi/kms"

	"github.com/trustbloc/sdjwt-vc-go/jwt"
	"github.com/trustbloc/sdjwt-vc-go/proof/checker"
	"github.com/trustbloc/sdjwt-vc-go/proof/jwtproofs"
	"github.com/trustbloc/sdjwt-vc-go/proof/testsupport"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/common"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/holder"
	"github.com/trustbloc/sdjwt-vc-go/sdjwt/issuer"
	"github.com/trustbloc/sdjwt-vc-go/vcerr"
)

const (
	testIssuer = "did:example:issuer"
	testKeyID  = testIssuer + "#key-1"
)

func issue(t *testing.T) (string, *checker.ProofChecker) {
	t.Helper()

	proofCreator, proofChecker := testsupport.NewSigVerPair(t,
		testsupport.SigningKey{Type: kms.ED25519Type, PublicKeyID: testKeyID})

	b, err := issuer.NewBuilder(map[string]interface{}{
		"iss":        testIssuer,
		"given_name": "John",
		"address": map[string]interface{}{
			"street_address": "Schulstr. 12",
			"country":        "DE",
		},
		"nationalities": []interface{}{"US", "DE"},
	})
	require.NoError(t, err)

	for _, path := range []string{"/given_name", "/address", "/address/street_address", "/nationalities/0"} {
		require.NoError(t, b.MakeConcealable(path))
	}

	require.NoError(t, b.AddDecoys("", 3))

	sdJWT, err := b.Finish(context.Background(), proofCreator,
		jwt.SignParameters{KeyID: testKeyID, JWTAlg: string(jwtproofs.EdDSA)})
	require.NoError(t, err)

	combined, err := sdJWT.Serialize()
	require.NoError(t, err)

	return combined, proofChecker
}

func TestParse(t *testing.T) {
	combined, proofChecker := issue(t)

	t.Run("success", func(t *testing.T) {
		sdJWT, err := holder.Parse(combined, holder.WithProofChecker(proofChecker),
			holder.WithExpectedIssuer(testIssuer))
		require.NoError(t, err)

		require.Equal(t, []string{"/address", "/address/street_address", "/given_name", "/nationalities/0"},
			sdJWT.Paths())

		claims, err := sdJWT.Claims()
		require.NoError(t, err)
		require.Equal(t, "John", claims["given_name"])
		require.Equal(t, []interface{}{"US", "DE"}, claims["nationalities"])

		for _, c := range sdJWT.Disclosures {
			if c.Path == "/address/street_address" {
				require.NotEmpty(t, c.Parent)
			}
		}
	})

	t.Run("success - without signature check", func(t *testing.T) {
		_, err := holder.Parse(combined)
		require.NoError(t, err)
	})

	t.Run("error - signature", func(t *testing.T) {
		_, otherChecker := testsupport.NewSigVerPair(t,
			testsupport.SigningKey{Type: kms.ED25519Type, PublicKeyID: testKeyID})

		_, err := holder.Parse(combined, holder.WithProofChecker(otherChecker))
		require.True(t, errors.Is(err, vcerr.ErrSignatureVerificationFailed))
	})

	t.Run("error - key binding in issuance", func(t *testing.T) {
		_, err := holder.Parse(combined + "a.b.c")
		require.ErrorContains(t, err, "key binding JWT is not expected")
	})

	t.Run("error - foreign disclosure", func(t *testing.T) {
		dc, err := common.NewDisclosure(crypto.SHA256, "salt", "name", "value")
		require.NoError(t, err)

		_, err = holder.Parse(combined + dc.Disclosure + "~")
		require.True(t, errors.Is(err, vcerr.ErrDisclosureIntegrityViolation))
	})
}

func TestPresentationBuilder(t *testing.T) {
	combined, _ := issue(t)

	sdJWT, err := holder.Parse(combined)
	require.NoError(t, err)

	presented := func(t *testing.T, b *holder.PresentationBuilder) []string {
		t.Helper()

		token, _ := b.Finish()
		require.Empty(t, token.KeyBindingJWT)

		parsed, err := holder.Parse(token.Serialize())
		require.NoError(t, err)

		return parsed.Paths()
	}

	t.Run("conceal all by default", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)

		token, omitted := b.Finish()
		require.Empty(t, token.Disclosures)
		require.Len(t, omitted, 4)
		require.Equal(t, sdJWT.Token.IssuerJWT, token.IssuerJWT)
	})

	t.Run("disclose nested includes parent", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)
		require.NoError(t, b.Disclose("/address/street_address"))

		require.Equal(t, []string{"/address", "/address/street_address"}, presented(t, b))
	})

	t.Run("disclose path inside concealable claim", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)
		require.NoError(t, b.Disclose("/address/country"))

		require.Equal(t, []string{"/address"}, presented(t, b))
	})

	t.Run("conceal removes nested", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)
		b.DiscloseAll()
		require.NoError(t, b.Conceal("/address"))

		require.Equal(t, []string{"/given_name", "/nationalities/0"}, presented(t, b))

		b.ConcealAll()
		require.Empty(t, presented(t, b))
	})

	t.Run("unknown path", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)

		require.ErrorContains(t, b.Disclose("/family_name"), "claim '/family_name' not found")
		require.ErrorContains(t, b.Disclose("/iss"), "no disclosure for claim '/iss'")
		require.ErrorContains(t, b.Conceal("/address/country"), "no disclosure")
	})

	t.Run("missing path inside concealable claim discloses nothing", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)

		require.ErrorContains(t, b.Disclose("/address/no_such_claim"), "claim '/address/no_such_claim' not found")
		require.ErrorContains(t, b.Disclose("/nationalities/7"), "not found")
		require.Empty(t, presented(t, b))
	})

	t.Run("original token untouched", func(t *testing.T) {
		b := holder.NewPresentationBuilder(sdJWT)
		_, _ = b.Finish()

		require.Len(t, sdJWT.Token.Disclosures, 4)
	})
}
